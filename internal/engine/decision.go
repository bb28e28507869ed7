package engine

import "github.com/anime-shed/note-inspector-go/internal/strategy"

// DecisionEngine turns per-reference scores into a verdict
type DecisionEngine struct {
	threshold float64
	mode      strategy.Mode
}

// NewDecisionEngine creates a decision engine with the acceptance threshold
func NewDecisionEngine(threshold float64, mode strategy.Mode) *DecisionEngine {
	return &DecisionEngine{threshold: threshold, mode: mode}
}

// Decide picks the highest score. scores must be in canonical reference
// order; on equal values the earlier entry wins.
func (d *DecisionEngine) Decide(scores []Score) (Verdict, error) {
	if len(scores) == 0 {
		return Verdict{}, ErrNoReferences
	}

	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i].Value > scores[best].Value {
			best = i
		}
	}

	v := d.base()
	v.Scores = scores
	v.Score = scores[best].Value
	v.GoodMatches = scores[best].GoodMatches
	v.CandidateFeatures = scores[best].CandidateFeatures

	switch {
	case scores[best].GoodMatches == 0:
		v.Reason = ReasonNoMatches
	case scores[best].Value >= d.threshold:
		v.Genuine = true
		v.Denomination = scores[best].Label
		v.Reason = ReasonAccepted
	default:
		v.Denomination = scores[best].Label
		v.Reason = ReasonBelowThreshold
	}
	return v, nil
}

// NoFeatures is the verdict for a candidate without extractable keypoints
func (d *DecisionEngine) NoFeatures() Verdict {
	v := d.base()
	v.Reason = ReasonNoFeatures
	return v
}

func (d *DecisionEngine) base() Verdict {
	return Verdict{
		ScoringMode:         d.mode,
		AcceptanceThreshold: d.threshold,
	}
}
