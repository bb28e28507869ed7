package engine

import (
	"context"
	"image"
)

// Authenticator decides whether a candidate image is a genuine note
type Authenticator interface {
	// BuildReferenceSet decodes and extracts every reference; unusable ones
	// are skipped. It fails with ErrNoReferences when none remain.
	BuildReferenceSet(ctx context.Context, images []ReferenceImage) (*ReferenceSet, error)

	// Authenticate compares the candidate against a prepared reference set
	Authenticate(ctx context.Context, candidate []byte, refs *ReferenceSet) (Verdict, error)

	// AuthenticateImages builds a fresh reference set and authenticates
	AuthenticateImages(ctx context.Context, candidate []byte, refs []ReferenceImage) (Verdict, error)

	MeasureQuality(gray *image.Gray) QualityMetrics
	Config() Config
	Stats() PoolStats

	// Lifecycle management
	Close() error
}
