package plan

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrUndecodable = errors.New("image cannot be decoded")

const jpegQuality = 90

// Decode reads an uploaded plan into an RGBA canvas anchored at the origin.
// Transparent pixels are flattened onto white so they count as background.
func Decode(data []byte) (*image.RGBA, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty payload", ErrUndecodable)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if strict, f, err2 := tryDecodeStrict(data); err2 == nil {
			img, format = strict, f
		} else {
			return nil, "", fmt.Errorf("%w: %v", ErrUndecodable, err)
		}
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, "", fmt.Errorf("%w: zero-sized image", ErrUndecodable)
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst, format, nil
}

// some phone uploads carry trailing junk that the sniffing decoder rejects
func tryDecodeStrict(b []byte) (image.Image, string, error) {
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		img, err := jpeg.Decode(bytes.NewReader(b))
		return img, "jpeg", err
	}
	if len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A {
		img, err := png.Decode(bytes.NewReader(b))
		return img, "png", err
	}
	return nil, "", errors.New("unknown signature")
}

func EncodeJPEG(img image.Image) ([]byte, error) {
	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return out.Bytes(), nil
}
