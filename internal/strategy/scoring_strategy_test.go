package strategy

import "testing"

func TestAbsoluteScoringStrategy(t *testing.T) {
	s := NewAbsoluteScoringStrategy()

	if got := s.Score(22, 500, 300); got != 22 {
		t.Errorf("Expected 22, got %v", got)
	}
	if got := s.Score(0, 0, 0); got != 0 {
		t.Errorf("Expected 0, got %v", got)
	}
	if s.Mode() != ModeAbsolute {
		t.Errorf("Expected mode %q, got %q", ModeAbsolute, s.Mode())
	}
}

func TestNormalizedPercentScoringStrategy(t *testing.T) {
	tests := []struct {
		name        string
		normalizeBy Normalization
		good        int
		candidate   int
		reference   int
		want        float64
	}{
		{"candidate denominator", NormalizeByCandidate, 50, 200, 100, 25},
		{"min denominator", NormalizeByMin, 50, 200, 100, 50},
		{"min picks candidate when smaller", NormalizeByMin, 10, 40, 400, 25},
		{"zero candidate features", NormalizeByCandidate, 0, 0, 100, 0},
		{"zero reference features with min", NormalizeByMin, 0, 100, 0, 0},
		{"empty normalization defaults to candidate", "", 5, 10, 1, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewNormalizedPercentScoringStrategy(tt.normalizeBy)
			if got := s.Score(tt.good, tt.candidate, tt.reference); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewScoringStrategy(t *testing.T) {
	if _, err := NewScoringStrategy("bogus", NormalizeByCandidate); err == nil {
		t.Error("Expected error for unknown mode")
	}
	if _, err := NewScoringStrategy(ModeNormalizedPercent, "max"); err == nil {
		t.Error("Expected error for unknown normalization")
	}

	s, err := NewScoringStrategy(ModeNormalizedPercent, NormalizeByMin)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.Mode() != ModeNormalizedPercent {
		t.Errorf("Expected mode %q, got %q", ModeNormalizedPercent, s.Mode())
	}
	if s.GetStrategyName() != "normalized_percent_scoring_by_min" {
		t.Errorf("Unexpected strategy name %q", s.GetStrategyName())
	}
}

func TestScoreMonotonicInGoodMatches(t *testing.T) {
	for _, s := range []ScoringStrategy{
		NewAbsoluteScoringStrategy(),
		NewNormalizedPercentScoringStrategy(NormalizeByCandidate),
		NewNormalizedPercentScoringStrategy(NormalizeByMin),
	} {
		prev := -1.0
		for good := 0; good <= 120; good++ {
			got := s.Score(good, 120, 300)
			if got < prev {
				t.Fatalf("%s: score decreased from %v to %v at %d good matches", s.GetStrategyName(), prev, got, good)
			}
			prev = got
		}
	}
}
