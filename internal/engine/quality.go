package engine

import (
	"image"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// QualityMetrics are advisory measurements of a candidate image
type QualityMetrics struct {
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	LaplacianVariance float64 `json:"laplacian_variance"`
	Brightness        float64 `json:"brightness"`
	Contrast          float64 `json:"contrast"`
}

// QualityMeter computes sharpness and exposure metrics
type QualityMeter interface {
	Measure(gray *image.Gray) QualityMetrics
	CalculateLaplacianVariance(gray *image.Gray) float64
	CalculateBrightness(gray *image.Gray) float64
}

type qualityMeter struct {
	slicePool sync.Pool
}

// NewQualityMeter creates a quality meter backed by gonum statistics
func NewQualityMeter() QualityMeter {
	return &qualityMeter{
		slicePool: sync.Pool{
			New: func() interface{} {
				s := make([]float64, 0, 1024)
				return &s
			},
		},
	}
}

// Measure computes every metric for gray
func (qm *qualityMeter) Measure(gray *image.Gray) QualityMetrics {
	b := gray.Bounds()
	return QualityMetrics{
		Width:             b.Dx(),
		Height:            b.Dy(),
		LaplacianVariance: qm.CalculateLaplacianVariance(gray),
		Brightness:        qm.CalculateBrightness(gray),
		Contrast:          qm.calculateContrast(gray),
	}
}

// CalculateLaplacianVariance returns the variance of the 4-neighbour
// Laplacian; low values indicate blur.
func (qm *qualityMeter) CalculateLaplacianVariance(gray *image.Gray) float64 {
	b := gray.Bounds()
	width, height := b.Dx(), b.Dy()
	if width < 3 || height < 3 {
		return 0
	}

	buf := qm.slicePool.Get().(*[]float64)
	defer qm.slicePool.Put(buf)
	data := (*buf)[:0]

	// Laplacian kernel: [0, 1, 0; 1, -4, 1; 0, 1, 0]
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			center := float64(gray.GrayAt(x, y).Y)
			top := float64(gray.GrayAt(x, y-1).Y)
			bottom := float64(gray.GrayAt(x, y+1).Y)
			left := float64(gray.GrayAt(x-1, y).Y)
			right := float64(gray.GrayAt(x+1, y).Y)
			data = append(data, -4*center+top+bottom+left+right)
		}
	}
	*buf = data

	// variance of a single sample is NaN
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// CalculateBrightness returns mean intensity in 0..255, splitting large
// images into horizontal strips processed in parallel.
func (qm *qualityMeter) CalculateBrightness(gray *image.Gray) float64 {
	b := gray.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return 0
	}
	if width*height < 100000 {
		return sumRows(gray, b.Min.Y, b.Max.Y) / float64(width*height)
	}

	numWorkers := runtime.NumCPU()
	if height < numWorkers {
		numWorkers = height
	}
	rowsPerWorker := (height + numWorkers - 1) / numWorkers

	sums := make([]float64, numWorkers)
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		startY := b.Min.Y + i*rowsPerWorker
		endY := min(startY+rowsPerWorker, b.Max.Y)
		if startY >= endY {
			continue
		}
		wg.Add(1)
		go func(i, startY, endY int) {
			defer wg.Done()
			sums[i] = sumRows(gray, startY, endY)
		}(i, startY, endY)
	}
	wg.Wait()

	var total float64
	for _, s := range sums {
		total += s
	}
	return total / float64(width*height)
}

// calculateContrast is the standard deviation of intensities
func (qm *qualityMeter) calculateContrast(gray *image.Gray) float64 {
	b := gray.Bounds()
	if b.Dx()*b.Dy() < 2 {
		return 0
	}
	values := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			values = append(values, float64(gray.GrayAt(x, y).Y))
		}
	}
	return stat.StdDev(values, nil)
}

func sumRows(gray *image.Gray, startY, endY int) float64 {
	b := gray.Bounds()
	var total float64
	for y := startY; y < endY; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			total += float64(gray.GrayAt(x, y).Y)
		}
	}
	return total
}
