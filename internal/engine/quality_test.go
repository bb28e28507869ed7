package engine

import (
	"image/color"
	"math"
	"testing"
)

func TestQualityMeter_UniformImage(t *testing.T) {
	meter := NewQualityMeter()
	metrics := meter.Measure(uniformGray(100, 80, 128))

	if metrics.Width != 100 || metrics.Height != 80 {
		t.Errorf("Expected 100x80, got %dx%d", metrics.Width, metrics.Height)
	}
	if metrics.LaplacianVariance != 0 {
		t.Errorf("Expected zero Laplacian variance for a uniform image, got %f", metrics.LaplacianVariance)
	}
	if math.Abs(metrics.Brightness-128) > 0.001 {
		t.Errorf("Expected brightness 128, got %f", metrics.Brightness)
	}
	if metrics.Contrast != 0 {
		t.Errorf("Expected zero contrast, got %f", metrics.Contrast)
	}
}

func TestQualityMeter_TexturedImageIsSharper(t *testing.T) {
	meter := NewQualityMeter()

	flat := meter.CalculateLaplacianVariance(uniformGray(120, 120, 90))
	textured := meter.CalculateLaplacianVariance(blockTexture(120, 120, 4, 7))

	if textured <= flat {
		t.Errorf("Expected textured variance %f to exceed flat variance %f", textured, flat)
	}
}

func TestQualityMeter_LargeImageBrightness(t *testing.T) {
	meter := NewQualityMeter()

	// Large enough to take the parallel path
	brightness := meter.CalculateBrightness(uniformGray(400, 300, 40))
	if math.Abs(brightness-40) > 0.001 {
		t.Errorf("Expected brightness 40, got %f", brightness)
	}
}

func TestQualityMeter_TinyImage(t *testing.T) {
	meter := NewQualityMeter()
	for _, side := range []int{2, 3} {
		if v := meter.CalculateLaplacianVariance(uniformGray(side, side, 10)); v != 0 {
			t.Errorf("Expected 0 for a %dx%d image, got %f", side, side, v)
		}
	}

	// one Laplacian sample must not produce NaN
	img := uniformGray(3, 3, 10)
	img.SetGray(1, 1, color.Gray{Y: 200})
	if v := meter.CalculateLaplacianVariance(img); math.IsNaN(v) || v != 0 {
		t.Errorf("Expected 0 for a single-sample image, got %f", v)
	}
	q := meter.Measure(img)
	if math.IsNaN(q.LaplacianVariance) || math.IsNaN(q.Brightness) || math.IsNaN(q.Contrast) {
		t.Errorf("Expected finite quality metrics, got %+v", q)
	}
}
