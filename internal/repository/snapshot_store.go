package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/anime-shed/note-inspector-go/internal/engine"
)

const snapshotVersion = 1

// SnapshotStore persists extracted reference descriptors as zstd
// compressed CBOR so restarts can skip feature extraction.
type SnapshotStore struct {
	path    string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

type snapshot struct {
	Version int            `cbor:"v"`
	Key     string         `cbor:"key"`
	BuiltAt int64          `cbor:"built_at"`
	Notes   []snapshotNote `cbor:"notes"`
	Skipped []snapshotSkip `cbor:"skipped,omitempty"`
}

type snapshotNote struct {
	Label       string             `cbor:"label"`
	Source      string             `cbor:"source"`
	Keypoints   []snapshotKeypoint `cbor:"kp"`
	Descriptors [][]byte           `cbor:"desc"`
}

type snapshotKeypoint struct {
	X        float64 `cbor:"x"`
	Y        float64 `cbor:"y"`
	Level    int     `cbor:"l"`
	Scale    float64 `cbor:"s"`
	Angle    float64 `cbor:"a"`
	Response float64 `cbor:"r"`
}

type snapshotSkip struct {
	Label  string `cbor:"label"`
	Source string `cbor:"source"`
	Reason string `cbor:"reason"`
}

// NewSnapshotStore creates a store writing to path
func NewSnapshotStore(path string) (*SnapshotStore, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &SnapshotStore{path: path, encoder: encoder, decoder: decoder}, nil
}

// Path returns the snapshot file location
func (s *SnapshotStore) Path() string {
	return s.path
}

// Save writes set under key, replacing any previous snapshot atomically
func (s *SnapshotStore) Save(key string, set *engine.ReferenceSet) error {
	snap := snapshot{
		Version: snapshotVersion,
		Key:     key,
		BuiltAt: set.BuiltAt().UnixNano(),
	}
	for _, n := range set.Notes() {
		note := snapshotNote{
			Label:       n.Label,
			Source:      n.Source,
			Keypoints:   make([]snapshotKeypoint, len(n.Features.Keypoints)),
			Descriptors: make([][]byte, len(n.Features.Descriptors)),
		}
		for i, kp := range n.Features.Keypoints {
			note.Keypoints[i] = snapshotKeypoint(kp)
		}
		for i, d := range n.Features.Descriptors {
			note.Descriptors[i] = append([]byte(nil), d[:]...)
		}
		snap.Notes = append(snap.Notes, note)
	}
	for _, sk := range set.Skipped() {
		snap.Skipped = append(snap.Skipped, snapshotSkip(sk))
	}

	raw, err := cbor.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	compressed := s.encoder.EncodeAll(raw, nil)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// Load restores the set saved under key. A snapshot with another key or
// format version yields ErrSnapshotStale.
func (s *SnapshotStore) Load(key string) (*engine.ReferenceSet, error) {
	compressed, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	raw, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	var snap snapshot
	if err := cbor.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion || snap.Key != key {
		return nil, ErrSnapshotStale
	}

	notes := make([]engine.ReferenceNote, 0, len(snap.Notes))
	for _, n := range snap.Notes {
		if len(n.Keypoints) != len(n.Descriptors) {
			return nil, fmt.Errorf("decode snapshot: %s has %d keypoints and %d descriptors",
				n.Source, len(n.Keypoints), len(n.Descriptors))
		}
		features := engine.FeatureSet{
			Keypoints:   make([]engine.Keypoint, len(n.Keypoints)),
			Descriptors: make([]engine.Descriptor, len(n.Descriptors)),
		}
		for i, kp := range n.Keypoints {
			features.Keypoints[i] = engine.Keypoint(kp)
		}
		for i, d := range n.Descriptors {
			if len(d) != engine.DescriptorBytes {
				return nil, fmt.Errorf("decode snapshot: descriptor of %d bytes", len(d))
			}
			copy(features.Descriptors[i][:], d)
		}
		notes = append(notes, engine.ReferenceNote{Label: n.Label, Source: n.Source, Features: features})
	}
	skipped := make([]engine.SkippedReference, 0, len(snap.Skipped))
	for _, sk := range snap.Skipped {
		skipped = append(skipped, engine.SkippedReference(sk))
	}

	return engine.NewReferenceSet(notes, skipped, time.Unix(0, snap.BuiltAt)), nil
}

// Close releases the zstd codecs
func (s *SnapshotStore) Close() error {
	s.decoder.Close()
	return s.encoder.Close()
}
