package engine

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"
)

// blockTexture renders square blocks of random gray levels. Block corners
// give FAST plenty of distinctive keypoints.
func blockTexture(w, h, block int, seed int64) *image.Gray {
	r := rand.New(rand.NewSource(seed))
	cols, rows := (w+block-1)/block, (h+block-1)/block
	levels := make([]uint8, cols*rows)
	for i := range levels {
		levels[i] = uint8(r.Intn(256))
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: levels[(y/block)*cols+x/block]})
		}
	}
	return img
}

func uniformGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func encodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func textureBytes(t testing.TB, seed int64) []byte {
	return encodePNG(t, blockTexture(160, 160, 8, seed))
}

func blankBytes(t testing.TB) []byte {
	return encodePNG(t, uniformGray(100, 100, 255))
}

// descriptorWithBits sets the first n bits
func descriptorWithBits(n int) Descriptor {
	var d Descriptor
	for i := 0; i < n; i++ {
		d[i/8] |= 1 << uint(i%8)
	}
	return d
}
