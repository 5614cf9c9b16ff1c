package rtk

// SemID identifies a semaphore. All semaphores are declared before the kernel
// starts and live for the process lifetime.
type SemID int

// SemDiscipline selects how Release treats waiting tasks.
type SemDiscipline int

// The release disciplines.
//
// SemHandOffDiscipline transfers ownership directly to the highest-priority
// waiter without touching the count, so a released semaphore can never be
// stolen by a lower-priority task that runs before the waiter is dispatched.
// This is the default.
//
// SemCountingDiscipline increments the count and wakes the highest-priority
// waiter, which then re-attempts the decrement. A task that runs between the
// release and the waiter's dispatch may take the semaphore first.
const (
	SemHandOffDiscipline SemDiscipline = iota
	SemCountingDiscipline
)

// SemStatus is a point-in-time snapshot of one semaphore, for inspection.
type SemStatus struct {
	ID      SemID
	Count   int
	Waiters []TaskID
}

// semaphore pairs a count with a queue of blocked tasks. Waiters are ordered
// by priority, ties broken by arrival order regardless of the kernel's ready
// tie-break policy.
type semaphore struct {
	id      SemID
	count   int
	waiters *taskQueue
}

func newSemaphore(id SemID, initial int) *semaphore {
	return &semaphore{
		id:      id,
		count:   initial,
		waiters: newTaskQueue(TieBreakFIFO),
	}
}
