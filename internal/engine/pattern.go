package engine

import (
	"math"
	"math/rand"
)

const (
	patchSize       = 31
	patchRadius     = patchSize / 2
	patternClip     = 13
	patternSeed     = 0x0b5e7
	orientationBins = 30
	// edgeBorder keeps every rotated test, the centroid disc and the
	// Harris window inside the level image.
	edgeBorder = 20
)

type testPair struct {
	x1, y1, x2, y2 int
}

type pointF struct {
	x, y float64
}

// rotatedPatterns[b] holds the test pairs rotated by b*12 degrees
var rotatedPatterns = buildRotatedPatterns(samplePattern(patternSeed))

// samplePattern draws DescriptorBits point pairs from an isotropic
// Gaussian clipped to the patch. Degenerate pairs are redrawn.
func samplePattern(seed int64) [DescriptorBits][2]pointF {
	r := rand.New(rand.NewSource(seed))
	sigma := float64(patchSize) / 5
	sample := func() float64 {
		v := r.NormFloat64() * sigma
		return math.Max(-patternClip, math.Min(patternClip, v))
	}

	var pattern [DescriptorBits][2]pointF
	for i := range pattern {
		for {
			p1 := pointF{sample(), sample()}
			p2 := pointF{sample(), sample()}
			if math.Round(p1.x) != math.Round(p2.x) || math.Round(p1.y) != math.Round(p2.y) {
				pattern[i] = [2]pointF{p1, p2}
				break
			}
		}
	}
	return pattern
}

func buildRotatedPatterns(pattern [DescriptorBits][2]pointF) [orientationBins][DescriptorBits]testPair {
	var rotated [orientationBins][DescriptorBits]testPair
	for b := 0; b < orientationBins; b++ {
		theta := float64(b) * 2 * math.Pi / orientationBins
		sin, cos := math.Sincos(theta)
		for i, pair := range pattern {
			x1, y1 := rotate(pair[0], sin, cos)
			x2, y2 := rotate(pair[1], sin, cos)
			rotated[b][i] = testPair{x1, y1, x2, y2}
		}
	}
	return rotated
}

func rotate(p pointF, sin, cos float64) (int, int) {
	return int(math.Round(p.x*cos - p.y*sin)), int(math.Round(p.x*sin + p.y*cos))
}

// orientationBin maps an angle in radians to its pattern bin
func orientationBin(angle float64) int {
	a := math.Mod(angle, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return int(math.Round(a/(2*math.Pi/orientationBins))) % orientationBins
}

// describe computes the descriptor at (x, y) of a smoothed level image
func describe(smoothed []uint8, stride, x, y int, angle float64) Descriptor {
	var d Descriptor
	tests := &rotatedPatterns[orientationBin(angle)]
	center := y*stride + x
	for i, t := range tests {
		v1 := smoothed[center+t.y1*stride+t.x1]
		v2 := smoothed[center+t.y2*stride+t.x2]
		if v1 < v2 {
			d[i>>3] |= 1 << (uint(i) & 7)
		}
	}
	return d
}
