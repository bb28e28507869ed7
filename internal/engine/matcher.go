package engine

// Matcher pairs descriptors by brute-force Hamming nearest neighbour
type Matcher struct {
	crossCheck bool
}

// NewMatcher creates a matcher; with crossCheck only mutual nearest
// neighbours are reported.
func NewMatcher(crossCheck bool) *Matcher {
	return &Matcher{crossCheck: crossCheck}
}

type neighbour struct {
	index    int
	distance int
}

// Match returns, for each query descriptor, its nearest train descriptor.
// Ties resolve to the lowest train index. Output is ordered by QueryIndex.
func (m *Matcher) Match(query, train []Descriptor) []Match {
	if len(query) == 0 || len(train) == 0 {
		return nil
	}

	forward := nearest(query, train)
	var backward []neighbour
	if m.crossCheck {
		backward = nearest(train, query)
	}

	matches := make([]Match, 0, len(query))
	for i, nb := range forward {
		if m.crossCheck && backward[nb.index].index != i {
			continue
		}
		matches = append(matches, Match{QueryIndex: i, TrainIndex: nb.index, Distance: nb.distance})
	}
	return matches
}

func nearest(from, to []Descriptor) []neighbour {
	result := make([]neighbour, len(from))
	for i := range from {
		best := neighbour{index: -1, distance: DescriptorBits + 1}
		for j := range to {
			if d := from[i].Distance(to[j]); d < best.distance {
				best = neighbour{index: j, distance: d}
				if d == 0 {
					break
				}
			}
		}
		result[i] = best
	}
	return result
}
