package repository

import (
	"context"
	"sync"
)

// DefaultHistoryCapacity bounds the in-memory verdict history
const DefaultHistoryCapacity = 1000

// MemoryVerdictRepository keeps the most recent verdicts in a ring buffer
type MemoryVerdictRepository struct {
	mu       sync.RWMutex
	records  []*VerdictRecord
	next     int
	full     bool
	index    map[string]*VerdictRecord
	capacity int
}

// NewMemoryVerdictRepository creates a history holding at most capacity verdicts
func NewMemoryVerdictRepository(capacity int) *MemoryVerdictRepository {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &MemoryVerdictRepository{
		records:  make([]*VerdictRecord, capacity),
		index:    make(map[string]*VerdictRecord, capacity),
		capacity: capacity,
	}
}

// SaveVerdict stores a copy of record, evicting the oldest when full
func (r *MemoryVerdictRepository) SaveVerdict(ctx context.Context, record *VerdictRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[record.ID]; exists {
		return ErrDuplicateVerdict
	}
	if evicted := r.records[r.next]; evicted != nil {
		delete(r.index, evicted.ID)
	}

	stored := *record
	r.records[r.next] = &stored
	r.index[stored.ID] = &stored
	r.next = (r.next + 1) % r.capacity
	if r.next == 0 {
		r.full = true
	}
	return nil
}

// GetVerdict returns a copy of the stored verdict
func (r *MemoryVerdictRepository) GetVerdict(ctx context.Context, id string) (*VerdictRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.index[id]
	if !ok {
		return nil, ErrVerdictNotFound
	}
	out := *record
	return &out, nil
}

// ListVerdicts returns up to limit verdicts, newest first
func (r *MemoryVerdictRepository) ListVerdicts(ctx context.Context, limit int) ([]*VerdictRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := r.next
	if r.full {
		size = r.capacity
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]*VerdictRecord, 0, limit)
	for i := 1; i <= limit; i++ {
		record := *r.records[(r.next-i+r.capacity)%r.capacity]
		out = append(out, &record)
	}
	return out, nil
}
