package tracing

import (
	"sync"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/cadence/datarecording"
	"github.com/sarchlab/cadence/rtk"
)

type sliceTableEntry struct {
	Task   int64
	Start  uint64
	End    uint64
	Reason string
}

type missTableEntry struct {
	Task     int64
	Deadline uint64
	Now      uint64
}

// DBTracer persists dispatch slices and deadline misses through a
// datarecording backend, so a run can be inspected after the fact.
type DBTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder

	inflight map[rtk.TaskID]Slice
}

// NewDBTracer creates a DBTracer over the given backend. The tracer flushes
// its backend at process exit.
func NewDBTracer(backend datarecording.DataRecorder) *DBTracer {
	backend.CreateTable("trace_slices", sliceTableEntry{})
	backend.CreateTable("trace_misses", missTableEntry{})

	t := &DBTracer{
		backend:  backend,
		inflight: make(map[rtk.TaskID]Slice),
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// StartSlice opens a slice for the task. An already open slice means the
// task yielded; it is closed at the new slice's start.
func (t *DBTracer) StartSlice(s Slice) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if open, ok := t.inflight[s.Task]; ok {
		open.End = s.Start
		open.Reason = EndYield
		t.writeSlice(open)
	}

	t.inflight[s.Task] = s
}

// EndSlice closes the task's open slice and writes it out.
func (t *DBTracer) EndSlice(s Slice) {
	t.mu.Lock()
	defer t.mu.Unlock()

	open, ok := t.inflight[s.Task]
	if !ok {
		return
	}

	open.End = s.End
	open.Reason = s.Reason
	t.writeSlice(open)

	delete(t.inflight, s.Task)
}

// DeadlineMiss writes the miss record.
func (t *DBTracer) DeadlineMiss(m MissRecord) {
	t.backend.InsertData("trace_misses", missTableEntry{
		Task:     int64(m.Task),
		Deadline: uint64(m.Deadline),
		Now:      uint64(m.Now),
	})
}

// Terminate drops open slices and flushes the backend.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.inflight = make(map[rtk.TaskID]Slice)
	t.backend.Flush()
}

func (t *DBTracer) writeSlice(s Slice) {
	t.backend.InsertData("trace_slices", sliceTableEntry{
		Task:   int64(s.Task),
		Start:  uint64(s.Start),
		End:    uint64(s.End),
		Reason: string(s.Reason),
	})
}
