package strategy

import "fmt"

// Mode names a scoring strategy.
type Mode string

const (
	ModeAbsolute          Mode = "absolute"
	ModeNormalizedPercent Mode = "normalized_percent"
)

// Normalization selects the denominator of the percent strategy.
type Normalization string

const (
	NormalizeByCandidate Normalization = "candidate"
	NormalizeByMin       Normalization = "min"
)

// ScoringStrategy reduces a good-match count to a comparable score
type ScoringStrategy interface {
	Score(goodMatches, candidateFeatures, referenceFeatures int) float64
	Mode() Mode
	GetStrategyName() string
}

// AbsoluteScoringStrategy scores by the raw number of good matches
type AbsoluteScoringStrategy struct{}

// NewAbsoluteScoringStrategy creates the absolute strategy
func NewAbsoluteScoringStrategy() ScoringStrategy {
	return &AbsoluteScoringStrategy{}
}

// Score returns the good-match count
func (s *AbsoluteScoringStrategy) Score(goodMatches, _, _ int) float64 {
	return float64(goodMatches)
}

// Mode returns ModeAbsolute
func (s *AbsoluteScoringStrategy) Mode() Mode {
	return ModeAbsolute
}

// GetStrategyName returns the strategy name
func (s *AbsoluteScoringStrategy) GetStrategyName() string {
	return "absolute_scoring"
}

// NormalizedPercentScoringStrategy scores good matches as a percentage of
// the candidate's descriptor count, or of the smaller of both counts.
type NormalizedPercentScoringStrategy struct {
	normalizeBy Normalization
}

// NewNormalizedPercentScoringStrategy creates the percent strategy
func NewNormalizedPercentScoringStrategy(normalizeBy Normalization) ScoringStrategy {
	if normalizeBy == "" {
		normalizeBy = NormalizeByCandidate
	}
	return &NormalizedPercentScoringStrategy{normalizeBy: normalizeBy}
}

// Score returns 100*good/denominator, or 0 when the denominator is 0
func (s *NormalizedPercentScoringStrategy) Score(goodMatches, candidateFeatures, referenceFeatures int) float64 {
	denominator := candidateFeatures
	if s.normalizeBy == NormalizeByMin && referenceFeatures < denominator {
		denominator = referenceFeatures
	}
	if denominator <= 0 {
		return 0
	}
	return float64(goodMatches) / float64(denominator) * 100
}

// Mode returns ModeNormalizedPercent
func (s *NormalizedPercentScoringStrategy) Mode() Mode {
	return ModeNormalizedPercent
}

// GetStrategyName returns the strategy name
func (s *NormalizedPercentScoringStrategy) GetStrategyName() string {
	return "normalized_percent_scoring_by_" + string(s.normalizeBy)
}

// NewScoringStrategy creates the strategy for the given mode
func NewScoringStrategy(mode Mode, normalizeBy Normalization) (ScoringStrategy, error) {
	switch mode {
	case ModeAbsolute:
		return NewAbsoluteScoringStrategy(), nil
	case ModeNormalizedPercent:
		if err := normalizeBy.Validate(); err != nil {
			return nil, err
		}
		return NewNormalizedPercentScoringStrategy(normalizeBy), nil
	default:
		return nil, fmt.Errorf("unknown scoring mode: %q", mode)
	}
}

// Validate rejects unknown modes
func (m Mode) Validate() error {
	switch m {
	case ModeAbsolute, ModeNormalizedPercent:
		return nil
	}
	return fmt.Errorf("unknown scoring mode: %q", m)
}

// Validate rejects unknown normalizations
func (n Normalization) Validate() error {
	switch n {
	case NormalizeByCandidate, NormalizeByMin:
		return nil
	}
	return fmt.Errorf("unknown normalize_by: %q", n)
}
