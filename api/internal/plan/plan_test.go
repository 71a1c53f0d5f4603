package plan

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/image/draw"

	"vastu-check/api/internal/vastu"
)

func blank(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img
}

func rect(img *image.RGBA, r image.Rectangle) {
	draw.Draw(img, r, &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
}

func TestPlanBoundsPicksLargestRegion(t *testing.T) {
	img := blank(400, 300)
	// plan outline: hollow rectangle
	rect(img, image.Rect(100, 80, 300, 82))
	rect(img, image.Rect(100, 218, 300, 220))
	rect(img, image.Rect(100, 80, 102, 220))
	rect(img, image.Rect(298, 80, 300, 220))
	// a filled blob outside it encloses less area
	rect(img, image.Rect(10, 10, 40, 40))

	got, ok := PlanBounds(img)
	if !ok {
		t.Fatalf("no region found")
	}
	if want := image.Rect(100, 80, 300, 220); got != want {
		t.Fatalf("PlanBounds = %v, want %v", got, want)
	}
}

func TestPlanBoundsRanksByEnclosedArea(t *testing.T) {
	img := blank(400, 300)
	// one-pixel diagonal stroke spanning most of the sheet
	for i := 0; i < 290; i++ {
		img.Set(5+i, 5+i, color.Black)
	}
	// compact filled plan
	rect(img, image.Rect(320, 200, 380, 260))

	got, ok := PlanBounds(img)
	if !ok {
		t.Fatalf("no region found")
	}
	if want := image.Rect(320, 200, 380, 260); got != want {
		t.Fatalf("PlanBounds = %v, want %v", got, want)
	}
}

func TestEnclosedArea(t *testing.T) {
	img := blank(50, 50)
	// hollow 20x20 square, 1px walls
	rect(img, image.Rect(10, 10, 30, 11))
	rect(img, image.Rect(10, 29, 30, 30))
	rect(img, image.Rect(10, 10, 11, 30))
	rect(img, image.Rect(29, 10, 30, 30))
	// a dot inside the hole is enclosed too
	img.Set(20, 20, color.Black)

	got, ok := PlanBounds(img)
	if !ok || got != image.Rect(10, 10, 30, 30) {
		t.Fatalf("PlanBounds = %v %v", got, ok)
	}

	labels := make([]int32, 50*50)
	for y := 10; y < 30; y++ {
		for x := 10; x < 30; x++ {
			if x == 10 || x == 29 || y == 10 || y == 29 {
				labels[y*50+x] = 1
			}
		}
	}
	if a := enclosedArea(labels, 50, image.Rect(10, 10, 30, 30), 1); a != 400 {
		t.Fatalf("enclosedArea = %d, want 400", a)
	}
	// open the wall: the inside leaks out
	labels[10*50+20] = 0
	if a := enclosedArea(labels, 50, image.Rect(10, 10, 30, 30), 1); a != 20*4-4-1 {
		t.Fatalf("open square enclosedArea = %d, want %d", a, 20*4-4-1)
	}
}

func TestCropToPlanPadsAndClamps(t *testing.T) {
	img := blank(400, 300)
	rect(img, image.Rect(100, 80, 300, 220))
	got := CropToPlan(img, DefaultPadding).Bounds()
	if want := image.Rect(80, 60, 320, 240); got != want {
		t.Fatalf("crop = %v, want %v", got, want)
	}

	img = blank(200, 100)
	rect(img, image.Rect(5, 5, 195, 95))
	got = CropToPlan(img, DefaultPadding).Bounds()
	if want := img.Bounds(); got != want {
		t.Fatalf("crop should clamp to image: %v", got)
	}
}

func TestCropToPlanBlankImageUnchanged(t *testing.T) {
	img := blank(50, 40)
	if got := CropToPlan(img, DefaultPadding); got != img {
		t.Fatalf("blank image must be returned as is")
	}
}

func TestNearWhiteIsBackground(t *testing.T) {
	img := blank(50, 50)
	draw.Draw(img, image.Rect(10, 10, 20, 20), &image.Uniform{C: color.RGBA{245, 245, 245, 255}}, image.Point{}, draw.Src)
	if _, ok := PlanBounds(img); ok {
		t.Fatalf("gray 245 must count as paper")
	}
	draw.Draw(img, image.Rect(10, 10, 20, 20), &image.Uniform{C: color.RGBA{240, 240, 240, 255}}, image.Point{}, draw.Src)
	if _, ok := PlanBounds(img); !ok {
		t.Fatalf("gray 240 must count as ink")
	}
}

func TestUpscale(t *testing.T) {
	got := Upscale(blank(640, 480), DefaultScale).Bounds()
	if got.Dx() != 1200 || got.Dy() != 900 {
		t.Fatalf("upscaled to %v", got)
	}
	got = Upscale(blank(3, 3), DefaultScale).Bounds()
	if got.Dx() != 6 || got.Dy() != 6 {
		t.Fatalf("rounding: %v", got)
	}
}

func TestNormalize(t *testing.T) {
	img := blank(400, 300)
	rect(img, image.Rect(100, 80, 300, 220))

	out := Normalize(img, DefaultOptions())
	if b := out.Bounds(); b.Min != (image.Point{}) || b.Dx() != 450 || b.Dy() != 338 {
		t.Fatalf("normalized bounds = %v", b)
	}
	out = Normalize(img, Options{Crop: false, Scale: 2})
	if b := out.Bounds(); b.Dx() != 800 || b.Dy() != 600 {
		t.Fatalf("uncropped bounds = %v", b)
	}
}

func TestDecode(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	src.Set(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, format, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format != "png" || img.Bounds() != image.Rect(0, 0, 4, 3) {
		t.Fatalf("format %q bounds %v", format, img.Bounds())
	}
	// transparent pixels flatten to white
	if c := img.RGBAAt(0, 0); c != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("transparent pixel = %v", c)
	}
	if c := img.RGBAAt(1, 1); c != (color.RGBA{10, 20, 30, 255}) {
		t.Fatalf("opaque pixel = %v", c)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("not an image"), {0xFF, 0xD8, 0x00}} {
		if _, _, err := Decode(data); !errors.Is(err, ErrUndecodable) {
			t.Fatalf("Decode(%q) err = %v", data, err)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	jpg, err := EncodeJPEG(blank(10, 10))
	if err != nil || len(jpg) < 2 || jpg[0] != 0xFF || jpg[1] != 0xD8 {
		t.Fatalf("EncodeJPEG: %v", err)
	}
	img, format, err := Decode(jpg)
	if err != nil || format != "jpeg" || img.Bounds().Dx() != 10 {
		t.Fatalf("Decode(jpeg): %v %q", err, format)
	}
}

func TestAnnotateDrawsGridAndBoxes(t *testing.T) {
	img := blank(600, 300)
	rooms := []vastu.LocatedRoom{{
		MatchedRoom: vastu.MatchedRoom{Label: "kitchen", Box: vastu.Box{X: 450, Y: 250, W: 100, H: 30}},
		Zone:        vastu.SouthEast,
	}}
	Annotate(img, rooms)

	if c := img.RGBAAt(200, 10); c != gridColor {
		t.Fatalf("vertical grid line missing: %v", c)
	}
	if c := img.RGBAAt(10, 100); c != gridColor {
		t.Fatalf("horizontal grid line missing: %v", c)
	}
	if c := img.RGBAAt(500, 280); c != boxColor {
		t.Fatalf("room box bottom edge missing: %v", c)
	}
	if c := img.RGBAAt(500, 265); c != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("box interior must stay untouched: %v", c)
	}
	// caption background sits just above the box
	if c := img.RGBAAt(451, 247); c != boxColor && c != labelColor {
		t.Fatalf("caption background missing: %v", c)
	}
	if img.Bounds() != image.Rect(0, 0, 600, 300) {
		t.Fatalf("bounds changed: %v", img.Bounds())
	}
}

func TestAnnotateToleratesBoxesOutsideImage(t *testing.T) {
	img := blank(100, 100)
	Annotate(img, []vastu.LocatedRoom{{
		MatchedRoom: vastu.MatchedRoom{Label: "bath", Box: vastu.Box{X: -20, Y: 0, W: 500, H: 500}},
		Zone:        vastu.Center,
	}})
}
