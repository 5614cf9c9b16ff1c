package tracing

// A Tracer can collect dispatch slices and deadline misses.
//
// StartSlice delivers a slice with only Task and Start set. EndSlice delivers
// the matching Task with End and Reason set; tracers pair the two by task ID,
// since one task has at most one slice open at a time. A StartSlice arriving
// while a slice is still open means the previous slice ended in a yield at
// the new slice's start tick.
type Tracer interface {
	StartSlice(s Slice)
	EndSlice(s Slice)
	DeadlineMiss(m MissRecord)
}
