package tracing

import (
	"sync"

	"github.com/sarchlab/cadence/rtk"
)

// BusyTimeTracer accumulates per-task core occupancy in ticks. The core runs
// at most one task at a time, so the per-task totals also sum to the overall
// busy time.
type BusyTimeTracer struct {
	mu sync.Mutex

	timeTeller rtk.TimeTeller
	filter     SliceFilter

	inflight map[rtk.TaskID]rtk.Tick
	busy     map[rtk.TaskID]rtk.Tick
}

// NewBusyTimeTracer creates a BusyTimeTracer. A nil filter keeps every slice.
func NewBusyTimeTracer(
	timeTeller rtk.TimeTeller,
	filter SliceFilter,
) *BusyTimeTracer {
	return &BusyTimeTracer{
		timeTeller: timeTeller,
		filter:     filter,
		inflight:   make(map[rtk.TaskID]rtk.Tick),
		busy:       make(map[rtk.TaskID]rtk.Tick),
	}
}

// BusyTime returns the ticks the task has held the core so far.
func (t *BusyTimeTracer) BusyTime(id rtk.TaskID) rtk.Tick {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.busy[id]
}

// TotalBusyTime returns the ticks the core spent running any task.
func (t *BusyTimeTracer) TotalBusyTime() rtk.Tick {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total rtk.Tick
	for _, ticks := range t.busy {
		total += ticks
	}

	return total
}

// TerminateAllSlices closes every open slice at the current tick.
func (t *BusyTimeTracer) TerminateAllSlices() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.timeTeller.CurrentTick()
	for id, start := range t.inflight {
		t.busy[id] += now - start
		delete(t.inflight, id)
	}
}

// StartSlice records the slice start tick.
func (t *BusyTimeTracer) StartSlice(s Slice) {
	if t.filter != nil && !t.filter(s) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if start, open := t.inflight[s.Task]; open {
		t.busy[s.Task] += s.Start - start
	}

	t.inflight[s.Task] = s.Start
}

// EndSlice accumulates the closed slice into the task's busy time.
func (t *BusyTimeTracer) EndSlice(s Slice) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start, open := t.inflight[s.Task]
	if !open {
		return
	}

	t.busy[s.Task] += s.End - start
	delete(t.inflight, s.Task)
}

// DeadlineMiss does nothing.
func (t *BusyTimeTracer) DeadlineMiss(_ MissRecord) {
	// Do nothing
}
