package engine

import (
	"gonum.org/v1/gonum/stat"

	"github.com/anime-shed/note-inspector-go/internal/strategy"
)

// Scorer counts good matches and reduces them through a scoring strategy
type Scorer struct {
	distanceThreshold int
	strategy          strategy.ScoringStrategy
}

// NewScorer creates a scorer. A match is good when its distance is
// strictly below distanceThreshold.
func NewScorer(distanceThreshold int, s strategy.ScoringStrategy) *Scorer {
	return &Scorer{distanceThreshold: distanceThreshold, strategy: s}
}

// Score summarises the matches of the candidate against one reference
func (s *Scorer) Score(label, source string, matches []Match, candidateFeatures, referenceFeatures int) Score {
	distances := make([]float64, 0, len(matches))
	for _, m := range matches {
		if m.Distance < s.distanceThreshold {
			distances = append(distances, float64(m.Distance))
		}
	}

	score := Score{
		Label:             label,
		Source:            source,
		GoodMatches:       len(distances),
		TotalMatches:      len(matches),
		CandidateFeatures: candidateFeatures,
		ReferenceFeatures: referenceFeatures,
		Value:             s.strategy.Score(len(distances), candidateFeatures, referenceFeatures),
	}
	if len(distances) > 0 {
		score.MeanDistance = stat.Mean(distances, nil)
	}
	if len(distances) > 1 {
		score.DistanceStdDev = stat.StdDev(distances, nil)
	}
	return score
}

// Mode returns the active scoring mode
func (s *Scorer) Mode() strategy.Mode {
	return s.strategy.Mode()
}
