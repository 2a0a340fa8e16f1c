// Package record filters completed calls and keeps the ones worth reporting.
package record

import (
	"sync"

	"github.com/danpilch/calltrace/pkg/objrt"
)

const initialCapacity = 1024

// Record is a completed call that passed the filter.
type Record struct {
	Class    *objrt.Class
	Selector objrt.Selector
	// Depth is the nesting level at entry, 0 for the outermost call.
	Depth int32
	// Duration is in microseconds.
	Duration uint64
}

// Name returns "Class.selector".
func (r Record) Name() string {
	return r.Class.String() + "." + r.Selector.String()
}

// Filter keeps calls that are both slow and shallow.
type Filter struct {
	MinDurationUS uint64
	MaxDepth      int
}

// Keep reports whether a call of the given duration and depth is recorded.
func (f Filter) Keep(durationUS uint64, depth int) bool {
	return durationUS > f.MinDurationUS && depth < f.MaxDepth
}

// Buffer is an append-only sequence of records. Only one goroutine appends;
// the mutex guards the slice header so readers never observe a torn slice.
type Buffer struct {
	mu      sync.Mutex
	records []Record
}

// Append adds r to the end of the buffer, allocating storage on first use.
func (b *Buffer) Append(r Record) {
	b.mu.Lock()
	if b.records == nil {
		b.records = make([]Record, 0, initialCapacity)
	}
	b.records = append(b.records, r)
	b.mu.Unlock()
}

// Records returns the buffer contents without copying, and their count.
// The returned slice must not be modified.
func (b *Buffer) Records() ([]Record, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.records)
	return b.records[:n:n], n
}

// Len returns the number of records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Clear releases the buffer storage.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.records = nil
	b.mu.Unlock()
}
