package rtk

import (
	"fmt"
	"log"
)

// TaskCtx is the handle a task entry uses to call into the kernel. It is
// valid only on the task's own goroutine.
type TaskCtx struct {
	k *Kernel
	t *task
}

// ID returns the calling task's ID.
func (tc *TaskCtx) ID() TaskID {
	return tc.t.id
}

// Now returns the current tick count.
func (tc *TaskCtx) Now() Tick {
	return tc.k.CurrentTick()
}

// Acquire takes the semaphore, blocking until it is granted. The acquire and
// the matching Release form a mutual-exclusion region; keep the region as
// short as possible to bound blocking time for higher-priority tasks.
func (tc *TaskCtx) Acquire(id SemID) error {
	k, t := tc.k, tc.t

	k.mu.Lock()
	defer k.mu.Unlock()

	k.enterKernel(t)

	s := k.sems[id]
	if s == nil {
		return fmt.Errorf("%w: id %d", ErrUnknownSemaphore, id)
	}

	for {
		if t.semGranted {
			t.semGranted = false
			break
		}

		if s.count > 0 {
			s.count--
			break
		}

		s.waiters.Push(t)
		k.InvokeHook(HookCtx{
			Domain: k,
			Pos:    HookPosSemBlock,
			Item:   tc.semHookInfo(s),
		})
		k.blockRunning(t, BlockedOnSemaphore, id)
	}

	k.InvokeHook(HookCtx{
		Domain: k,
		Pos:    HookPosSemAcquire,
		Item:   tc.semHookInfo(s),
	})

	return nil
}

// Release gives the semaphore back. Under the hand-off discipline a waiting
// task receives ownership directly and, if it has strictly higher priority,
// preempts the releaser before Release returns.
func (tc *TaskCtx) Release(id SemID) error {
	k, t := tc.k, tc.t

	k.mu.Lock()
	defer k.mu.Unlock()

	k.enterKernel(t)

	s := k.sems[id]
	if s == nil {
		return fmt.Errorf("%w: id %d", ErrUnknownSemaphore, id)
	}

	k.InvokeHook(HookCtx{
		Domain: k,
		Pos:    HookPosSemRelease,
		Item:   tc.semHookInfo(s),
	})

	w := s.waiters.Pop()

	switch {
	case w == nil:
		s.count++
		return nil

	case k.semDiscipline == SemHandOffDiscipline:
		w.semGranted = true
		k.InvokeHook(HookCtx{
			Domain: k,
			Pos:    HookPosSemHandOff,
			Item:   SemHookInfo{Sem: s.id, Task: w.id, Count: s.count, Now: k.CurrentTick()},
		})

	default:
		s.count++
	}

	k.readyTask(w)

	if w.priority > t.priority {
		k.preemptRunning(t)
	}

	return nil
}

// Yield keeps the task Ready but surrenders the core until the next tick.
func (tc *TaskCtx) Yield() {
	k, t := tc.k, tc.t

	k.mu.Lock()
	defer k.mu.Unlock()

	k.enterKernel(t)

	t.state = TaskReady
	k.running = nil
	k.yielded = append(k.yielded, t)
	k.dispatch()
	k.park(t)
}

// Busy occupies the core for n ticks, parking at each tick boundary while
// remaining Running. It stands in for a task body that takes processing time,
// and it is preemptible at every boundary: if a higher-priority task is Ready
// when a boundary arrives, the busy task is moved back to Ready and the
// remaining boundaries are consumed after it regains the core.
func (tc *TaskCtx) Busy(n Tick) {
	k, t := tc.k, tc.t

	k.mu.Lock()
	defer k.mu.Unlock()

	k.enterKernel(t)

	for i := Tick(0); i < n; i++ {
		t.tickParked = true
		k.park(t)
	}
}

// Suspend parks the calling task until another task resumes it.
func (tc *TaskCtx) Suspend() {
	k, t := tc.k, tc.t

	k.mu.Lock()
	defer k.mu.Unlock()

	k.enterKernel(t)

	t.state = TaskSuspended

	k.InvokeHook(HookCtx{
		Domain: k,
		Pos:    HookPosTaskBlock,
		Item:   k.taskHookInfo(t),
	})

	k.running = nil
	k.dispatch()
	k.park(t)
}

// Resume makes a suspended task Ready. Resuming a task that is not suspended,
// or one the kernel does not know, is an error.
func (tc *TaskCtx) Resume(id TaskID) error {
	k, t := tc.k, tc.t

	k.mu.Lock()
	defer k.mu.Unlock()

	k.enterKernel(t)

	target := k.tasks[id]
	if target == nil {
		return fmt.Errorf("%w: id %d", ErrUnknownTask, id)
	}

	if target.state != TaskSuspended || target.exited {
		return fmt.Errorf("%w: task %d is %s", ErrNotSuspended, id, target.state)
	}

	k.readyTask(target)

	if target.priority > t.priority {
		k.preemptRunning(t)
	}

	return nil
}

// InitPeriod arms the task's periodic descriptor. The first deadline is one
// period after the current tick.
func (tc *TaskCtx) InitPeriod(p Tick) error {
	k, t := tc.k, tc.t

	k.mu.Lock()
	defer k.mu.Unlock()

	k.enterKernel(t)

	if p == 0 {
		return fmt.Errorf("%w: task %d period 0", ErrBadPeriod, t.id)
	}

	t.armed = true
	t.period = p
	t.nextDeadline = k.CurrentTick() + p
	t.pending = false

	return nil
}

// WaitForNextPeriod suspends the calling task until its next period boundary
// and reports whether the deadline was met. If a boundary already arrived
// while the task was still working, the call consumes the pending activation
// and returns PeriodMissed immediately, preserving forward progress. Call it
// once per loop iteration, at the top of the loop.
func (tc *TaskCtx) WaitForNextPeriod() PeriodOutcome {
	k, t := tc.k, tc.t

	k.mu.Lock()
	defer k.mu.Unlock()

	k.enterKernel(t)

	if !t.armed {
		log.Panicf("task %d called WaitForNextPeriod before InitPeriod", t.id)
	}

	if t.pending {
		t.pending = false
		return PeriodMissed
	}

	k.blockRunning(t, BlockedOnPeriod, 0)

	return PeriodMet
}

func (tc *TaskCtx) semHookInfo(s *semaphore) SemHookInfo {
	return SemHookInfo{
		Sem:   s.id,
		Task:  tc.t.id,
		Count: s.count,
		Now:   tc.k.CurrentTick(),
	}
}
