package store

import (
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
)

// gameIndex is a bloom filter over the ids of the last loaded games
// document. A negative answer proves the id is absent from that document.
type gameIndex struct {
	mu       sync.RWMutex
	expected uint
	filter   *bloom.BloomFilter
	validTo  time.Time
}

func newGameIndex(expected uint) *gameIndex {
	if expected == 0 {
		expected = 10000
	}
	return &gameIndex{expected: expected}
}

// rebuild replaces the filter with ids, valid until validTo.
func (x *gameIndex) rebuild(ids []string, validTo time.Time) {
	n := x.expected
	if uint(len(ids))*2 > n {
		n = uint(len(ids)) * 2
	}
	filter := bloom.NewWithEstimates(n, 0.01)
	for _, id := range ids {
		filter.AddString(id)
	}

	x.mu.Lock()
	x.filter = filter
	x.validTo = validTo
	x.mu.Unlock()
}

func (x *gameIndex) reset() {
	x.mu.Lock()
	x.filter = nil
	x.mu.Unlock()
}

// absent reports whether id is certainly not in the indexed document.
// An index that is unset or past its deadline knows nothing.
func (x *gameIndex) absent(id string, now time.Time) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.filter == nil || !now.Before(x.validTo) {
		return false
	}
	return !x.filter.TestString(id)
}
