package ocr

// Bounds are the float corners of a text region in the pixels of the image
// handed to the engine, origin top-left.
type Bounds struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Detection is one recognized text region.
type Detection struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0..1
	Bounds     Bounds  `json:"bbox"`
}

type Options struct {
	Langs []string // engine language hints, e.g. ["eng"] or ["en"]
	Model string   // overrides the engine's default model when set
}
