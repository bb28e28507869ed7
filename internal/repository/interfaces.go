package repository

import (
	"context"
	"time"

	"gopkg.in/guregu/null.v4"

	"github.com/anime-shed/note-inspector-go/internal/engine"
)

// ReferenceRepository enumerates and loads reference note images
type ReferenceRepository interface {
	// ListReferences returns metadata for every reference image
	ListReferences(ctx context.Context) ([]ReferenceInfo, error)

	// LoadReferences reads every reference image. Unreadable objects are
	// logged and left out.
	LoadReferences(ctx context.Context) ([]engine.ReferenceImage, error)

	// Fingerprint changes whenever an image is added, removed or modified
	Fingerprint(ctx context.Context) (string, error)

	// Source describes where references are read from
	Source() string
}

// ReferenceInfo describes one reference image without its content
type ReferenceInfo struct {
	Label   string    `json:"label"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	ETag    string    `json:"etag,omitempty"`
}

// VerdictRepository stores authentication verdicts
type VerdictRepository interface {
	// SaveVerdict stores a verdict record
	SaveVerdict(ctx context.Context, record *VerdictRecord) error

	// GetVerdict retrieves a stored verdict
	GetVerdict(ctx context.Context, id string) (*VerdictRecord, error)

	// ListVerdicts returns the most recent verdicts, newest first
	ListVerdicts(ctx context.Context, limit int) ([]*VerdictRecord, error)
}

// VerdictRecord is a persisted authentication outcome
type VerdictRecord struct {
	ID                string      `json:"id"`
	RequestID         string      `json:"request_id"`
	CreatedAt         time.Time   `json:"created_at"`
	Source            string      `json:"source"`
	Genuine           bool        `json:"genuine"`
	Denomination      null.String `json:"denomination"`
	Score             float64     `json:"score"`
	GoodMatches       int         `json:"good_matches"`
	Reason            string      `json:"reason"`
	ScoringMode       string      `json:"scoring_mode"`
	CandidateFeatures int         `json:"candidate_keypoints"`
	ProcessingTimeMs  int64       `json:"processing_time_ms"`
}
