package engine

import (
	"slices"
	"strings"
	"time"
)

// ReferenceSet is an immutable collection of reference notes in canonical
// order: label ascending, then source ascending.
type ReferenceSet struct {
	notes   []ReferenceNote
	skipped []SkippedReference
	builtAt time.Time
}

// NewReferenceSet copies notes into canonical order. It is also used to
// restore a set from a descriptor snapshot.
func NewReferenceSet(notes []ReferenceNote, skipped []SkippedReference, builtAt time.Time) *ReferenceSet {
	sorted := slices.Clone(notes)
	slices.SortStableFunc(sorted, func(a, b ReferenceNote) int {
		if c := strings.Compare(a.Label, b.Label); c != 0 {
			return c
		}
		return strings.Compare(a.Source, b.Source)
	})
	return &ReferenceSet{
		notes:   sorted,
		skipped: slices.Clone(skipped),
		builtAt: builtAt,
	}
}

// Notes returns the notes in canonical order. Callers must not modify them.
func (rs *ReferenceSet) Notes() []ReferenceNote {
	if rs == nil {
		return nil
	}
	return rs.notes
}

// Skipped returns references that were dropped while building the set
func (rs *ReferenceSet) Skipped() []SkippedReference {
	if rs == nil {
		return nil
	}
	return rs.skipped
}

// Len returns the number of usable notes
func (rs *ReferenceSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.notes)
}

// BuiltAt returns when the descriptors were extracted
func (rs *ReferenceSet) BuiltAt() time.Time {
	if rs == nil {
		return time.Time{}
	}
	return rs.builtAt
}

// Labels returns the distinct denominations in canonical order
func (rs *ReferenceSet) Labels() []string {
	var labels []string
	for _, n := range rs.Notes() {
		if len(labels) == 0 || labels[len(labels)-1] != n.Label {
			labels = append(labels, n.Label)
		}
	}
	return labels
}
