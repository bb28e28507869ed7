package engine

import (
	"encoding/binary"
	"math/bits"

	"github.com/anime-shed/note-inspector-go/internal/strategy"
)

const (
	// DescriptorBytes is the packed size of one binary descriptor.
	DescriptorBytes = 32
	// DescriptorBits is the number of intensity tests per descriptor.
	DescriptorBits = DescriptorBytes * 8
)

// Descriptor is a 256-bit rotated BRIEF descriptor
type Descriptor [DescriptorBytes]byte

// Distance returns the Hamming distance to other, in 0..256
func (d Descriptor) Distance(other Descriptor) int {
	n := 0
	for i := 0; i < DescriptorBytes; i += 8 {
		n += bits.OnesCount64(binary.LittleEndian.Uint64(d[i:]) ^ binary.LittleEndian.Uint64(other[i:]))
	}
	return n
}

// Keypoint is a detected corner in level-0 pixel coordinates
type Keypoint struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Level    int     `json:"level"`
	Scale    float64 `json:"scale"`
	Angle    float64 `json:"angle"` // radians
	Response float64 `json:"response"`
}

// FeatureSet pairs keypoints with their descriptors, index for index
type FeatureSet struct {
	Keypoints   []Keypoint
	Descriptors []Descriptor
}

// Len returns the number of descriptors
func (fs FeatureSet) Len() int {
	return len(fs.Descriptors)
}

// Empty reports whether no descriptor could be computed
func (fs FeatureSet) Empty() bool {
	return len(fs.Descriptors) == 0
}

// Match pairs a query (candidate) descriptor with a train (reference) descriptor
type Match struct {
	QueryIndex int
	TrainIndex int
	Distance   int
}

// Score is the outcome of comparing the candidate with one reference note
type Score struct {
	Label             string  `json:"label"`
	Source            string  `json:"source"`
	GoodMatches       int     `json:"good_matches"`
	TotalMatches      int     `json:"total_matches"`
	CandidateFeatures int     `json:"candidate_features"`
	ReferenceFeatures int     `json:"reference_features"`
	Value             float64 `json:"score"`
	MeanDistance      float64 `json:"mean_distance"`
	DistanceStdDev    float64 `json:"distance_stddev"`
}

// Reason explains how a verdict was reached
type Reason string

const (
	ReasonAccepted       Reason = "accepted"
	ReasonBelowThreshold Reason = "below_threshold"
	ReasonNoMatches      Reason = "no_matches"
	ReasonNoFeatures     Reason = "no_features"
)

// Verdict is the authentication decision for one candidate.
// Denomination is empty when no reference produced a good match;
// when Genuine is false and Denomination is set it is the closest attempt.
type Verdict struct {
	Genuine             bool
	Denomination        string
	Score               float64
	GoodMatches         int
	Reason              Reason
	ScoringMode         strategy.Mode
	AcceptanceThreshold float64
	CandidateFeatures   int
	Scores              []Score
	Quality             QualityMetrics
}

// ClosestAttempt reports whether Denomination names a rejected best match
func (v Verdict) ClosestAttempt() bool {
	return !v.Genuine && v.Denomination != ""
}

// ReferenceImage is an undecoded reference note
type ReferenceImage struct {
	Label  string
	Source string
	Data   []byte
}

// ReferenceNote is a reference note with its extracted features
type ReferenceNote struct {
	Label    string
	Source   string
	Features FeatureSet
}

// SkippedReference records a reference that contributed nothing
type SkippedReference struct {
	Label  string `json:"label"`
	Source string `json:"source"`
	Reason string `json:"reason"`
}
