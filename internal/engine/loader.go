package engine

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "github.com/spakin/netpbm"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Loader decodes raw image bytes into an 8-bit grayscale grid
type Loader struct {
	maxDimension int
}

// NewLoader creates a loader; images larger than maxDimension on either
// side are downscaled. Zero disables downscaling.
func NewLoader(maxDimension int) *Loader {
	return &Loader{maxDimension: maxDimension}
}

// Load decodes buf. label only annotates the returned *DecodeError.
func (l *Loader) Load(label string, buf []byte) (*image.Gray, error) {
	if len(buf) == 0 {
		return nil, &DecodeError{Label: label, Cause: errEmptyBuffer}
	}

	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, &DecodeError{Label: label, Cause: err}
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &DecodeError{Label: label, Cause: errEmptyImage}
	}

	if l.maxDimension > 0 && (b.Dx() > l.maxDimension || b.Dy() > l.maxDimension) {
		img = resize.Thumbnail(uint(l.maxDimension), uint(l.maxDimension), img, resize.Bilinear)
	}

	return toGray(img), nil
}

// toGray converts img to a zero-origin *image.Gray
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g
	}
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// grayFromNRGBA takes the red channel of an NRGBA produced from a gray source
func grayFromNRGBA(src *image.NRGBA) *image.Gray {
	b := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[y*src.Stride:]
		out := gray.Pix[y*gray.Stride:]
		for x := 0; x < b.Dx(); x++ {
			out[x] = row[x*4]
		}
	}
	return gray
}
