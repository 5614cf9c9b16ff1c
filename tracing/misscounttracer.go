package tracing

import (
	"sync"

	"github.com/sarchlab/cadence/rtk"
)

// MissCountTracer counts deadline misses per task.
type MissCountTracer struct {
	mu sync.Mutex

	misses map[rtk.TaskID]uint64
}

// NewMissCountTracer creates a MissCountTracer.
func NewMissCountTracer() *MissCountTracer {
	return &MissCountTracer{
		misses: make(map[rtk.TaskID]uint64),
	}
}

// Misses returns the miss count of one task.
func (t *MissCountTracer) Misses(id rtk.TaskID) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.misses[id]
}

// TotalMisses returns the miss count across all tasks.
func (t *MissCountTracer) TotalMisses() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total uint64
	for _, n := range t.misses {
		total += n
	}

	return total
}

// StartSlice does nothing.
func (t *MissCountTracer) StartSlice(_ Slice) {
	// Do nothing
}

// EndSlice does nothing.
func (t *MissCountTracer) EndSlice(_ Slice) {
	// Do nothing
}

// DeadlineMiss counts the miss.
func (t *MissCountTracer) DeadlineMiss(m MissRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.misses[m.Task]++
}
