package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorDistance(t *testing.T) {
	zero := Descriptor{}
	full := descriptorWithBits(DescriptorBits)
	half := descriptorWithBits(128)

	assert.Equal(t, 0, zero.Distance(zero))
	assert.Equal(t, DescriptorBits, zero.Distance(full))
	assert.Equal(t, 128, half.Distance(full))
	assert.Equal(t, half.Distance(zero), zero.Distance(half))
}

func TestMatcher_EmptyInputs(t *testing.T) {
	m := NewMatcher(true)

	assert.Empty(t, m.Match(nil, []Descriptor{{}}))
	assert.Empty(t, m.Match([]Descriptor{{}}, nil))
}

func TestMatcher_NearestNeighbour(t *testing.T) {
	a := descriptorWithBits(10)
	b := descriptorWithBits(200)

	matches := NewMatcher(true).Match([]Descriptor{a, b}, []Descriptor{b, a})

	require.Len(t, matches, 2)
	assert.Equal(t, Match{QueryIndex: 0, TrainIndex: 1, Distance: 0}, matches[0])
	assert.Equal(t, Match{QueryIndex: 1, TrainIndex: 0, Distance: 0}, matches[1])
}

func TestMatcher_TieGoesToLowestIndex(t *testing.T) {
	q := descriptorWithBits(20)
	same := descriptorWithBits(40)

	matches := NewMatcher(false).Match([]Descriptor{q}, []Descriptor{same, same, same})

	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].TrainIndex)
	assert.Equal(t, 20, matches[0].Distance)
}

func TestMatcher_CrossCheck(t *testing.T) {
	exact := descriptorWithBits(64)
	near := descriptorWithBits(70)
	query := []Descriptor{exact, near}
	train := []Descriptor{exact}

	withCheck := NewMatcher(true).Match(query, train)
	withoutCheck := NewMatcher(false).Match(query, train)

	require.Len(t, withCheck, 1)
	assert.Equal(t, 0, withCheck[0].QueryIndex)
	require.Len(t, withoutCheck, 2)
	assert.Equal(t, 6, withoutCheck[1].Distance)
}
