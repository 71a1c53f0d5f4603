package plan

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

const (
	DefaultPadding = 20
	DefaultScale   = 1.875

	// gray levels above this are treated as paper
	backgroundLevel = 240
)

type Options struct {
	Crop    bool
	Padding int
	Scale   float64
}

func DefaultOptions() Options {
	return Options{Crop: true, Padding: DefaultPadding, Scale: DefaultScale}
}

// Normalize crops to the drawing and upscales it for OCR legibility.
func Normalize(img *image.RGBA, opt Options) *image.RGBA {
	src := img
	if opt.Crop {
		src = CropToPlan(img, opt.Padding)
	}
	scale := opt.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	return Upscale(src, scale)
}

// CropToPlan cuts the image down to the largest drawn region plus padding.
// A blank image is returned unchanged.
func CropToPlan(img *image.RGBA, padding int) *image.RGBA {
	r, ok := PlanBounds(img)
	if !ok {
		return img
	}
	r = image.Rect(r.Min.X-padding, r.Min.Y-padding, r.Max.X+padding, r.Max.Y+padding).Intersect(img.Bounds())
	return img.SubImage(r).(*image.RGBA)
}

// PlanBounds finds the 8-connected foreground region enclosing the largest
// area and returns its bounding rectangle. Enclosed area counts the region's
// pixels plus the holes it surrounds, so a hollow outline ranks by the space
// inside it while a thin diagonal stroke ranks by its ink only.
func PlanBounds(img *image.RGBA) (image.Rectangle, bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return image.Rectangle{}, false
	}

	// -1 background, 0 unlabelled foreground, >0 region id
	labels := make([]int32, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			if luma(p[0], p[1], p[2]) > backgroundLevel {
				labels[y*w+x] = -1
			}
		}
	}

	var (
		best     image.Rectangle
		bestArea = 0
		stack    []int32
		id       int32
	)
	for start := range labels {
		if labels[start] != 0 {
			continue
		}
		id++
		labels[start] = id
		stack = append(stack[:0], int32(start))
		minX, minY := start%w, start/w
		maxX, maxY := minX, minY
		for len(stack) > 0 {
			i := int(stack[len(stack)-1])
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					j := ny*w + nx
					if labels[j] == 0 {
						labels[j] = id
						stack = append(stack, int32(j))
					}
				}
			}
		}
		r := image.Rect(minX, minY, maxX+1, maxY+1)
		if r.Dx()*r.Dy() <= bestArea {
			continue
		}
		if area := enclosedArea(labels, w, r, id); area > bestArea {
			bestArea = area
			best = r.Add(b.Min)
		}
	}
	return best, bestArea > 0
}

// enclosedArea is the area of r minus the cells reachable from r's border
// without crossing region id. Outside cells connect 4-way, which is the
// complement of the 8-way foreground connectivity.
func enclosedArea(labels []int32, w int, r image.Rectangle, id int32) int {
	rw, rh := r.Dx(), r.Dy()
	outside := make([]bool, rw*rh)
	var stack []int
	push := func(x, y int) {
		k := (y-r.Min.Y)*rw + (x - r.Min.X)
		if outside[k] || labels[y*w+x] == id {
			return
		}
		outside[k] = true
		stack = append(stack, k)
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		push(x, r.Min.Y)
		push(x, r.Max.Y-1)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		push(r.Min.X, y)
		push(r.Max.X-1, y)
	}
	n := 0
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++
		x, y := r.Min.X+k%rw, r.Min.Y+k/rw
		if x > r.Min.X {
			push(x-1, y)
		}
		if x < r.Max.X-1 {
			push(x+1, y)
		}
		if y > r.Min.Y {
			push(x, y-1)
		}
		if y < r.Max.Y-1 {
			push(x, y+1)
		}
	}
	return rw*rh - n
}

// ITU-R 601 weights, integer form
func luma(r, g, b uint8) int {
	return (299*int(r) + 587*int(g) + 114*int(b) + 500) / 1000
}

// Upscale resizes uniformly with Catmull-Rom (cubic) interpolation.
func Upscale(src image.Image, factor float64) *image.RGBA {
	b := src.Bounds()
	w := max(1, int(math.Round(float64(b.Dx())*factor)))
	h := max(1, int(math.Round(float64(b.Dy())*factor)))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
