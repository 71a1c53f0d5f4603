package plan

import (
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"vastu-check/api/internal/vastu"
)

var (
	gridColor  = color.RGBA{R: 255, A: 255}
	boxColor   = color.RGBA{G: 255, A: 255}
	labelColor = color.RGBA{A: 255}
)

// reference width the stroke and font sizes are tuned for
const refWidth = 1200.0

var regularFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

// Annotate draws the 3x3 compass grid and a captioned box per room, in place.
func Annotate(img *image.RGBA, rooms []vastu.LocatedRoom) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := max(0.5, 0.7*(float64(w)/refWidth))
	thick := max(1, int(2*(float64(w)/refWidth)))

	for i := 1; i < 3; i++ {
		x := b.Min.X + w*i/3
		y := b.Min.Y + h*i/3
		fill(img, image.Rect(x, b.Min.Y, x, b.Max.Y), thick, gridColor)
		fill(img, image.Rect(b.Min.X, y, b.Max.X, y), thick, gridColor)
	}

	face := captionFace(scale)
	defer face.Close()
	ascent := face.Metrics().Ascent.Ceil()

	for _, room := range rooms {
		x, y := b.Min.X+room.Box.X, b.Min.Y+room.Box.Y
		outline(img, image.Rect(x, y, x+room.Box.W, y+room.Box.H), thick, boxColor)

		caption := vastu.TitleCase(room.Label) + " (" + string(room.Zone) + ")"
		lw := font.MeasureString(face, caption).Ceil()
		draw.Draw(img, image.Rect(x, y-ascent-10, x+lw, y), &image.Uniform{C: boxColor}, image.Point{}, draw.Src)
		d := &font.Drawer{
			Dst:  img,
			Src:  &image.Uniform{C: labelColor},
			Face: face,
			Dot:  fixed.P(x, y-5),
		}
		d.DrawString(caption)
	}
}

func captionFace(scale float64) font.Face {
	f, err := regularFont()
	if err == nil {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    28 * scale,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			return face
		}
	}
	return basicfont.Face7x13
}

// fill paints a line of the given thickness centred on a degenerate rectangle.
func fill(img *image.RGBA, r image.Rectangle, thick int, c color.Color) {
	half := thick / 2
	if r.Dx() == 0 {
		r = image.Rect(r.Min.X-half, r.Min.Y, r.Min.X-half+thick, r.Max.Y)
	} else {
		r = image.Rect(r.Min.X, r.Min.Y-half, r.Max.X, r.Min.Y-half+thick)
	}
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func outline(img *image.RGBA, r image.Rectangle, thick int, c color.Color) {
	fill(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y), thick, c)
	fill(img, image.Rect(r.Min.X, r.Max.Y, r.Max.X, r.Max.Y), thick, c)
	fill(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X, r.Max.Y), thick, c)
	fill(img, image.Rect(r.Max.X, r.Min.Y, r.Max.X, r.Max.Y), thick, c)
}
