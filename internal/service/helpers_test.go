package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anime-shed/note-inspector-go/internal/engine"
	"github.com/anime-shed/note-inspector-go/internal/repository"
	"github.com/anime-shed/note-inspector-go/internal/storage"
)

func notePNG(t testing.TB, block int, seed int64) []byte {
	t.Helper()
	const size = 160
	r := rand.New(rand.NewSource(seed))
	cols := (size + block - 1) / block
	levels := make([]uint8, cols*cols)
	for i := range levels {
		levels[i] = uint8(r.Intn(256))
	}
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetGray(x, y, color.Gray{Y: levels[(y/block)*cols+x/block]})
		}
	}
	return encode(t, img)
}

func blankPNG(t testing.TB) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return encode(t, img)
}

func encode(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeNote(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

// countingRepository counts how often reference images are read
type countingRepository struct {
	repository.ReferenceRepository
	loads atomic.Int32
	delay time.Duration
}

func (r *countingRepository) LoadReferences(ctx context.Context) ([]engine.ReferenceImage, error) {
	r.loads.Add(1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return r.ReferenceRepository.LoadReferences(ctx)
}

func newEngine(t *testing.T) engine.Authenticator {
	t.Helper()
	eng, err := engine.New(engine.DefaultConfig().WithWorkers(2))
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

func newRepo(dir string) *countingRepository {
	return &countingRepository{
		ReferenceRepository: repository.NewReferenceRepository(storage.NewLocalStorage(dir), "", nil),
	}
}
