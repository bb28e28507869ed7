package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/note-inspector-go/internal/strategy"
)

func absoluteScore(label string, good int) Score {
	return Score{Label: label, Source: label + ".jpg", GoodMatches: good, Value: float64(good)}
}

func TestDecide_Accepted(t *testing.T) {
	d := NewDecisionEngine(20, strategy.ModeAbsolute)

	v, err := d.Decide([]Score{absoluteScore("100", 5), absoluteScore("500", 22)})

	require.NoError(t, err)
	assert.True(t, v.Genuine)
	assert.Equal(t, "500", v.Denomination)
	assert.Equal(t, 22.0, v.Score)
	assert.Equal(t, ReasonAccepted, v.Reason)
	assert.False(t, v.ClosestAttempt())
	assert.Len(t, v.Scores, 2)
}

func TestDecide_ClosestAttempt(t *testing.T) {
	d := NewDecisionEngine(25, strategy.ModeAbsolute)

	v, err := d.Decide([]Score{absoluteScore("100", 5), absoluteScore("500", 22)})

	require.NoError(t, err)
	assert.False(t, v.Genuine)
	assert.Equal(t, "500", v.Denomination)
	assert.Equal(t, 22.0, v.Score)
	assert.Equal(t, ReasonBelowThreshold, v.Reason)
	assert.True(t, v.ClosestAttempt())
}

func TestDecide_NoMatches(t *testing.T) {
	d := NewDecisionEngine(0, strategy.ModeAbsolute)

	v, err := d.Decide([]Score{absoluteScore("100", 0), absoluteScore("500", 0)})

	require.NoError(t, err)
	assert.False(t, v.Genuine)
	assert.Empty(t, v.Denomination)
	assert.Zero(t, v.Score)
	assert.Equal(t, ReasonNoMatches, v.Reason)
}

func TestDecide_TieGoesToFirst(t *testing.T) {
	d := NewDecisionEngine(20, strategy.ModeAbsolute)

	v, err := d.Decide([]Score{absoluteScore("100", 22), absoluteScore("500", 22)})

	require.NoError(t, err)
	assert.Equal(t, "100", v.Denomination)
}

func TestDecide_NoScores(t *testing.T) {
	_, err := NewDecisionEngine(20, strategy.ModeAbsolute).Decide(nil)
	assert.ErrorIs(t, err, ErrNoReferences)
}

func TestDecide_RaisingThresholdNeverAccepts(t *testing.T) {
	scores := []Score{absoluteScore("10", 3), absoluteScore("50", 17), absoluteScore("2000", 9)}

	wasGenuine := true
	for threshold := 0.0; threshold <= 30; threshold++ {
		v, err := NewDecisionEngine(threshold, strategy.ModeAbsolute).Decide(scores)
		require.NoError(t, err)
		if v.Genuine {
			require.True(t, wasGenuine, "threshold %v accepted after a lower threshold rejected", threshold)
		}
		wasGenuine = v.Genuine
		assert.Equal(t, "50", v.Denomination)
	}
}

func TestNoFeaturesVerdict(t *testing.T) {
	v := NewDecisionEngine(15, strategy.ModeNormalizedPercent).NoFeatures()

	assert.False(t, v.Genuine)
	assert.Empty(t, v.Denomination)
	assert.Zero(t, v.Score)
	assert.Equal(t, ReasonNoFeatures, v.Reason)
	assert.Equal(t, strategy.ModeNormalizedPercent, v.ScoringMode)
	assert.Equal(t, 15.0, v.AcceptanceThreshold)
}
