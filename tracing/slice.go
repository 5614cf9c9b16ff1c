// Package tracing converts kernel hook streams into dispatch slices and
// deadline-miss records, and ships them to pluggable tracers.
package tracing

import "github.com/sarchlab/cadence/rtk"

// EndReason tells why a dispatch slice ended.
type EndReason string

const (
	// EndPreempt means a more urgent task took the core.
	EndPreempt EndReason = "preempt"

	// EndBlock means the task blocked on a semaphore or its next period.
	EndBlock EndReason = "block"

	// EndSuspend means the task suspended itself.
	EndSuspend EndReason = "suspend"

	// EndYield means the task gave up the core until the next tick.
	EndYield EndReason = "yield"
)

// A Slice is one continuous span of a task holding the core, from dispatch
// to the moment it leaves the core.
type Slice struct {
	Task   rtk.TaskID
	Start  rtk.Tick
	End    rtk.Tick
	Reason EndReason
}

// A MissRecord captures one deadline miss.
type MissRecord struct {
	Task     rtk.TaskID
	Deadline rtk.Tick
	Now      rtk.Tick
}

// SliceFilter selects interesting slices. A slice is kept when the filter
// returns true.
type SliceFilter func(s Slice) bool
