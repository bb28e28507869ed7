package engine

import (
	"image"
	"math"
)

// circle is the 16-pixel Bresenham circle of radius 3, clockwise from top
var circle = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1}, {3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1}, {-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

const (
	fastArc     = 9
	harrisK     = 0.04
	harrisBlock = 7
)

// corner is a FAST corner surviving non-maximum suppression
type corner struct {
	x, y     int
	level    int
	response float64
}

// detectCorners runs FAST-9 with 3x3 non-maximum suppression and ranks
// survivors by Harris response. Pixels within border of the edge are ignored.
func detectCorners(gray *image.Gray, level, threshold, border int) []corner {
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	if w <= 2*border || h <= 2*border {
		return nil
	}

	pix, stride := gray.Pix, gray.Stride
	var offsets [16]int
	for i, c := range circle {
		offsets[i] = c[1]*stride + c[0]
	}

	scores := make([]int32, w*h)
	for y := border; y < h-border; y++ {
		for x := border; x < w-border; x++ {
			scores[y*w+x] = fastScore(pix, y*stride+x, &offsets, threshold)
		}
	}

	var corners []corner
	for y := border; y < h-border; y++ {
		for x := border; x < w-border; x++ {
			s := scores[y*w+x]
			if s == 0 || !isLocalMax(scores, w, x, y, s) {
				continue
			}
			corners = append(corners, corner{
				x:        x,
				y:        y,
				level:    level,
				response: harrisResponse(pix, stride, x, y),
			})
		}
	}
	return corners
}

// fastScore returns 0 unless fastArc contiguous circle pixels are all
// brighter than center+t or all darker than center-t. The score is the
// summed excess contrast of the pixels on the winning side.
func fastScore(pix []uint8, idx int, offsets *[16]int, t int) int32 {
	p := int(pix[idx])
	var state [16]int8
	for i, off := range offsets {
		v := int(pix[idx+off])
		switch {
		case v > p+t:
			state[i] = 1
		case v < p-t:
			state[i] = -1
		}
	}

	var sign int8
	run := 0
	for i := 0; i < 16+fastArc-1 && sign == 0; i++ {
		s := state[i%16]
		if s != 0 && i > 0 && s == state[(i-1)%16] {
			run++
		} else if s != 0 {
			run = 1
		} else {
			run = 0
		}
		if run >= fastArc {
			sign = s
		}
	}
	if sign == 0 {
		return 0
	}

	var score int32
	for i, off := range offsets {
		if state[i] == sign {
			d := int(pix[idx+off]) - p
			if d < 0 {
				d = -d
			}
			score += int32(d - t)
		}
	}
	return score
}

// isLocalMax keeps the first pixel, in raster order, of a plateau
func isLocalMax(scores []int32, w, x, y int, s int32) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			n := scores[(y+dy)*w+x+dx]
			if n > s || (n == s && (dy < 0 || (dy == 0 && dx < 0))) {
				return false
			}
		}
	}
	return true
}

// harrisResponse evaluates det(M) - k*trace(M)^2 over a 7x7 window of
// Sobel gradients centered on (x, y).
func harrisResponse(pix []uint8, stride, x, y int) float64 {
	r := harrisBlock / 2
	var sxx, syy, sxy float64
	for wy := y - r; wy <= y+r; wy++ {
		for wx := x - r; wx <= x+r; wx++ {
			i := wy*stride + wx
			tl, tc, tr := float64(pix[i-stride-1]), float64(pix[i-stride]), float64(pix[i-stride+1])
			ml, mr := float64(pix[i-1]), float64(pix[i+1])
			bl, bc, br := float64(pix[i+stride-1]), float64(pix[i+stride]), float64(pix[i+stride+1])
			gx := (tr + 2*mr + br) - (tl + 2*ml + bl)
			gy := (bl + 2*bc + br) - (tl + 2*tc + tr)
			sxx += gx * gx
			syy += gy * gy
			sxy += gx * gy
		}
	}
	scale := 1.0 / (4.0 * harrisBlock * 255.0)
	scale = scale * scale * scale * scale
	return (sxx*syy-sxy*sxy)*scale - harrisK*(sxx+syy)*(sxx+syy)*scale
}

// intensityAngle returns the orientation of the intensity centroid over a
// disc of radius patchRadius.
func intensityAngle(pix []uint8, stride, x, y int) float64 {
	var m01, m10 float64
	for dy := -patchRadius; dy <= patchRadius; dy++ {
		span := int(math.Sqrt(float64(patchRadius*patchRadius - dy*dy)))
		row := (y+dy)*stride + x
		for dx := -span; dx <= span; dx++ {
			v := float64(pix[row+dx])
			m10 += float64(dx) * v
			m01 += float64(dy) * v
		}
	}
	return math.Atan2(m01, m10)
}
