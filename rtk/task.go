package rtk

import "fmt"

// TaskID identifies a task. The task set is static: every ID is registered
// before the kernel starts and lives for the process lifetime.
type TaskID int

// Priority orders tasks for dispatch. A numerically higher priority is more
// urgent.
type Priority int

// TaskState is the scheduling state of a task.
type TaskState int

// The four task states. Exactly one task is Running at any instant; when no
// task is Ready the kernel's built-in idle context holds the core.
const (
	TaskSuspended TaskState = iota
	TaskReady
	TaskRunning
	TaskBlocked
)

func (s TaskState) String() string {
	switch s {
	case TaskSuspended:
		return "Suspended"
	case TaskReady:
		return "Ready"
	case TaskRunning:
		return "Running"
	case TaskBlocked:
		return "Blocked"
	default:
		return fmt.Sprintf("TaskState(%d)", int(s))
	}
}

// BlockReason tells what a Blocked task is waiting for.
type BlockReason int

// Block reasons. A task blocks only on a semaphore or on its next period
// boundary; no other blocking operation exists.
const (
	BlockedOnNothing BlockReason = iota
	BlockedOnSemaphore
	BlockedOnPeriod
)

func (r BlockReason) String() string {
	switch r {
	case BlockedOnNothing:
		return "Nothing"
	case BlockedOnSemaphore:
		return "Semaphore"
	case BlockedOnPeriod:
		return "Period"
	default:
		return fmt.Sprintf("BlockReason(%d)", int(r))
	}
}

// TaskSpec describes a task to register with Kernel.Create. The initial state
// must be TaskReady or TaskSuspended.
type TaskSpec struct {
	ID       TaskID
	Priority Priority
	State    TaskState
	Entry    func(*TaskCtx)
}

// TaskStatus is a point-in-time snapshot of one task, for inspection.
type TaskStatus struct {
	ID           TaskID
	Priority     Priority
	State        TaskState
	BlockedOn    BlockReason
	BlockedOnSem SemID
	Periodic     bool
	Period       Tick
	NextDeadline Tick
}

// task is the kernel-internal control block.
type task struct {
	id       TaskID
	priority Priority
	entry    func(*TaskCtx)

	state        TaskState
	blockedOn    BlockReason
	blockedOnSem SemID

	seq uint64 // queue order stamp, written by taskQueue.Push

	granted    bool // a run grant is pending or held
	preempt    bool // reschedule requested while running body code
	tickParked bool // parked at a tick boundary inside Busy
	semGranted bool // semaphore ownership handed off while blocked
	exited     bool

	// periodic descriptor
	armed        bool
	period       Tick
	nextDeadline Tick
	pending      bool // a period boundary arrived before the task waited
}
