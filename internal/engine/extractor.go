package engine

import (
	"image"
	"math"
	"slices"

	"github.com/disintegration/imaging"
	"github.com/emirpasic/gods/trees/binaryheap"
)

const smoothingSigma = 2.0

// Extractor detects oriented FAST keypoints and computes rotated BRIEF
// descriptors over a scale pyramid. It holds no mutable state and is safe
// for concurrent use.
type Extractor struct {
	maxKeypoints  int
	levels        int
	scaleFactor   float64
	fastThreshold int
}

// NewExtractor creates an extractor from the engine configuration
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{
		maxKeypoints:  cfg.MaxKeypoints,
		levels:        cfg.PyramidLevels,
		scaleFactor:   cfg.ScaleFactor,
		fastThreshold: cfg.FastThreshold,
	}
}

type pyramidLevel struct {
	gray     *image.Gray
	smoothed *image.Gray
	scale    float64
}

// Extract returns at most maxKeypoints features. A featureless image
// yields an empty set, never an error.
func (e *Extractor) Extract(gray *image.Gray) FeatureSet {
	pyramid := e.buildPyramid(gray)

	heap := binaryheap.NewWith(compareCorners)
	for level, l := range pyramid {
		for _, c := range detectCorners(l.gray, level, e.fastThreshold, edgeBorder) {
			heap.Push(c)
			if heap.Size() > e.maxKeypoints {
				heap.Pop()
			}
		}
	}
	if heap.Empty() {
		return FeatureSet{}
	}

	kept := make([]corner, 0, heap.Size())
	for _, v := range heap.Values() {
		kept = append(kept, v.(corner))
	}
	slices.SortFunc(kept, func(a, b corner) int {
		return compareCorners(b, a)
	})

	fs := FeatureSet{
		Keypoints:   make([]Keypoint, 0, len(kept)),
		Descriptors: make([]Descriptor, 0, len(kept)),
	}
	for _, c := range kept {
		l := pyramid[c.level]
		if l.smoothed == nil {
			l.smoothed = grayFromNRGBA(imaging.Blur(l.gray, smoothingSigma))
			pyramid[c.level] = l
		}
		angle := intensityAngle(l.gray.Pix, l.gray.Stride, c.x, c.y)
		fs.Keypoints = append(fs.Keypoints, Keypoint{
			X:        float64(c.x) * l.scale,
			Y:        float64(c.y) * l.scale,
			Level:    c.level,
			Scale:    l.scale,
			Angle:    angle,
			Response: c.response,
		})
		fs.Descriptors = append(fs.Descriptors, describe(l.smoothed.Pix, l.smoothed.Stride, c.x, c.y, angle))
	}
	return fs
}

// buildPyramid resamples the image once per level, stopping at the first
// level too small to hold a descriptor patch.
func (e *Extractor) buildPyramid(gray *image.Gray) []pyramidLevel {
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	pyramid := []pyramidLevel{{gray: gray, scale: 1}}
	for level := 1; level < e.levels; level++ {
		scale := math.Pow(e.scaleFactor, float64(level))
		lw := int(math.Round(float64(w) / scale))
		lh := int(math.Round(float64(h) / scale))
		if lw <= 2*edgeBorder || lh <= 2*edgeBorder {
			break
		}
		resized := imaging.Resize(gray, lw, lh, imaging.Linear)
		pyramid = append(pyramid, pyramidLevel{gray: grayFromNRGBA(resized), scale: scale})
	}
	return pyramid
}

// compareCorners orders weaker corners first: lower response, then higher
// level, then later raster position. The heap pops the weakest.
func compareCorners(a, b interface{}) int {
	ca, cb := a.(corner), b.(corner)
	switch {
	case ca.response < cb.response:
		return -1
	case ca.response > cb.response:
		return 1
	case ca.level != cb.level:
		return cb.level - ca.level
	case ca.y != cb.y:
		return cb.y - ca.y
	default:
		return cb.x - ca.x
	}
}
