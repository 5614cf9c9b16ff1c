package rtk

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
)

// A Kernel dispatches a static set of tasks on one logical core under fixed
// priorities. Tasks run on their own goroutines, but at most one holds the
// core at a time: a task executes only between receiving a run grant and its
// next call back into the kernel. Every kernel operation is serialized by one
// lock, so the tick handler and semaphore operations run to completion before
// any task code resumes.
type Kernel struct {
	HookableBase

	mu   sync.Mutex
	cond *sync.Cond

	timeBase      TimeBase
	tieBreak      TieBreakPolicy
	semDiscipline SemDiscipline

	now atomic.Uint64

	tasks   map[TaskID]*task
	order   []TaskID
	ready   *taskQueue
	sems    map[SemID]*semaphore
	semIDs  []SemID
	running *task
	yielded []*task

	started  bool
	unparked int
}

// Builder builds a Kernel.
type Builder struct {
	timeBase      TimeBase
	tieBreak      TieBreakPolicy
	semDiscipline SemDiscipline
}

// MakeBuilder creates a Builder with the default policies: FIFO tie-break
// among equal priorities and hand-off semaphore release.
func MakeBuilder() Builder {
	return Builder{
		tieBreak:      TieBreakFIFO,
		semDiscipline: SemHandOffDiscipline,
	}
}

// WithTimeBase sets the wall duration of one tick.
func (b Builder) WithTimeBase(tb TimeBase) Builder {
	b.timeBase = tb
	return b
}

// WithTieBreak sets the order among equal-priority ready tasks.
func (b Builder) WithTieBreak(p TieBreakPolicy) Builder {
	b.tieBreak = p
	return b
}

// WithSemDiscipline sets the semaphore release discipline.
func (b Builder) WithSemDiscipline(d SemDiscipline) Builder {
	b.semDiscipline = d
	return b
}

// Build builds the Kernel.
func (b Builder) Build() *Kernel {
	k := &Kernel{
		timeBase:      b.timeBase,
		tieBreak:      b.tieBreak,
		semDiscipline: b.semDiscipline,
		tasks:         make(map[TaskID]*task),
		sems:          make(map[SemID]*semaphore),
	}
	k.ready = newTaskQueue(b.tieBreak)
	k.cond = sync.NewCond(&k.mu)
	return k
}

// TimeBase returns the configured time base.
func (k *Kernel) TimeBase() TimeBase {
	return k.timeBase
}

// CurrentTick returns the current tick count. Safe to call from any
// goroutine.
func (k *Kernel) CurrentTick() Tick {
	return Tick(k.now.Load())
}

// Create registers a static task. It must be called before Start and never
// afterward.
func (k *Kernel) Create(spec TaskSpec) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.started {
		return fmt.Errorf("%w: cannot create task %d", ErrKernelStarted, spec.ID)
	}

	if spec.ID < 0 {
		return fmt.Errorf("%w: negative id %d", ErrBadTaskSpec, spec.ID)
	}

	if spec.Entry == nil {
		return fmt.Errorf("%w: task %d has no entry", ErrBadTaskSpec, spec.ID)
	}

	if spec.State != TaskReady && spec.State != TaskSuspended {
		return fmt.Errorf("%w: task %d initial state %s",
			ErrBadTaskSpec, spec.ID, spec.State)
	}

	if spec.Priority < 0 {
		return fmt.Errorf("%w: task %d priority %d",
			ErrBadPriority, spec.ID, spec.Priority)
	}

	if _, ok := k.tasks[spec.ID]; ok {
		return fmt.Errorf("%w: id %d", ErrDuplicateTask, spec.ID)
	}

	t := &task{
		id:       spec.ID,
		priority: spec.Priority,
		entry:    spec.Entry,
		state:    spec.State,
	}
	k.tasks[spec.ID] = t
	k.order = append(k.order, spec.ID)

	return nil
}

// AddSemaphore declares a semaphore with its initial count. It must be called
// before Start.
func (k *Kernel) AddSemaphore(id SemID, initial int) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.started {
		return fmt.Errorf("%w: cannot add semaphore %d", ErrKernelStarted, id)
	}

	if initial < 0 {
		return fmt.Errorf("%w: semaphore %d initial count %d",
			ErrBadTaskSpec, id, initial)
	}

	if _, ok := k.sems[id]; ok {
		return fmt.Errorf("%w: id %d", ErrDuplicateSemaphore, id)
	}

	k.sems[id] = newSemaphore(id, initial)
	k.semIDs = append(k.semIDs, id)

	return nil
}

// Start validates the configuration, spawns the task goroutines, and
// dispatches the highest-priority initially-Ready task. It returns once the
// scheduled phase is established; ticks are delivered separately through
// Kernel.Tick.
func (k *Kernel) Start() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.started {
		return ErrKernelStarted
	}

	if k.timeBase <= 0 {
		return ErrNoTimeBase
	}

	if len(k.tasks) == 0 {
		return fmt.Errorf("%w: no tasks registered", ErrBadTaskSpec)
	}

	k.started = true

	for _, id := range k.order {
		t := k.tasks[id]
		k.unparked++
		go k.taskLoop(t)

		if t.state == TaskReady {
			k.ready.Push(t)
		}
	}

	k.dispatch()

	return nil
}

// Tick is the tick-service entry point. It increments the tick counter,
// releases yielded tasks, services period boundaries, and performs the
// scheduling decision. It runs to completion before any task code resumes.
func (k *Kernel) Tick() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.started {
		log.Panic("tick delivered before kernel start")
	}

	now := Tick(k.now.Add(1))

	k.InvokeHook(HookCtx{
		Domain: k,
		Pos:    HookPosBeforeTick,
		Item:   TickInfo{Now: now},
	})

	for _, t := range k.yielded {
		k.readyTask(t)
	}
	k.yielded = k.yielded[:0]

	k.servicePeriods(now)
	k.resolve()

	k.InvokeHook(HookCtx{
		Domain: k,
		Pos:    HookPosAfterTick,
		Item:   TickInfo{Now: now},
	})
}

// servicePeriods advances the periodic descriptors. Tasks are visited in
// registration order so tick outcomes are deterministic.
func (k *Kernel) servicePeriods(now Tick) {
	for _, id := range k.order {
		t := k.tasks[id]
		if !t.armed || t.exited || now < t.nextDeadline {
			continue
		}

		deadline := t.nextDeadline
		t.nextDeadline += t.period

		if t.state == TaskBlocked && t.blockedOn == BlockedOnPeriod {
			k.readyTask(t)
			continue
		}

		// The task is still working for an earlier period. Latch one
		// activation so the next wait returns immediately; markers do
		// not accumulate, the cadence re-synchronizes instead of
		// catching up.
		t.pending = true
		k.InvokeHook(HookCtx{
			Domain: k,
			Pos:    HookPosDeadlineMiss,
			Item:   MissInfo{Task: t.id, Deadline: deadline, Now: now},
		})
	}
}

// resolve finishes a tick's scheduling decision: it fills an idle core,
// preempts a lower-priority task at its tick boundary, or records a pending
// reschedule for a task that is executing body code.
func (k *Kernel) resolve() {
	if k.running == nil {
		k.dispatch()
		return
	}

	top := k.ready.Peek()
	higherReady := top != nil && top.priority > k.running.priority

	atBoundary := k.running.tickParked && !k.running.granted

	if !higherReady {
		if atBoundary {
			k.grant(k.running)
		}
		return
	}

	if atBoundary {
		t := k.running
		k.running = nil
		t.state = TaskReady
		k.InvokeHook(HookCtx{
			Domain: k,
			Pos:    HookPosTaskPreempt,
			Item:   k.taskHookInfo(t),
		})
		k.ready.Push(t)
		k.dispatch()
		return
	}

	k.running.preempt = true
}

// taskLoop is the goroutine body backing one task. The goroutine parks until
// the first grant, then runs the task entry. Entries normally never return;
// one that does retires its task in the Suspended state.
func (k *Kernel) taskLoop(t *task) {
	k.mu.Lock()
	k.park(t)
	k.mu.Unlock()

	t.entry(&TaskCtx{k: k, t: t})

	k.mu.Lock()
	k.taskExited(t)
	k.mu.Unlock()
}

func (k *Kernel) taskExited(t *task) {
	t.exited = true
	t.state = TaskSuspended
	t.blockedOn = BlockedOnNothing

	if k.running == t {
		k.running = nil
		k.dispatch()
	}

	k.unparked--
	k.cond.Broadcast()
}

// dispatch grants the core to the most urgent Ready task. If no task is
// Ready, the built-in idle context holds the core until a later scheduling
// point. The core must be free.
func (k *Kernel) dispatch() {
	if k.running != nil {
		log.Panic("dispatching while a task holds the core")
	}

	next := k.ready.Pop()
	if next == nil {
		return
	}

	if next.state != TaskReady {
		log.Panicf("dispatching task %d in state %s", next.id, next.state)
	}

	next.state = TaskRunning
	next.blockedOn = BlockedOnNothing
	k.running = next

	k.InvokeHook(HookCtx{
		Domain: k,
		Pos:    HookPosTaskDispatch,
		Item:   k.taskHookInfo(next),
	})

	k.grant(next)
}

// readyTask moves a task to Ready and queues it. The caller decides whether
// the transition preempts the running task.
func (k *Kernel) readyTask(t *task) {
	t.state = TaskReady
	t.blockedOn = BlockedOnNothing
	k.ready.Push(t)

	k.InvokeHook(HookCtx{
		Domain: k,
		Pos:    HookPosTaskReady,
		Item:   k.taskHookInfo(t),
	})
}

// blockRunning parks the running task with the given reason and hands the
// core to the next Ready task. It returns once the task is dispatched again.
func (k *Kernel) blockRunning(t *task, reason BlockReason, sem SemID) {
	t.state = TaskBlocked
	t.blockedOn = reason
	t.blockedOnSem = sem

	k.InvokeHook(HookCtx{
		Domain: k,
		Pos:    HookPosTaskBlock,
		Item:   k.taskHookInfo(t),
	})

	k.running = nil
	k.dispatch()
	k.park(t)
}

// preemptRunning moves the running task back to Ready, dispatches the most
// urgent Ready task, and parks the caller until it is dispatched again.
func (k *Kernel) preemptRunning(t *task) {
	k.running = nil
	t.state = TaskReady

	k.InvokeHook(HookCtx{
		Domain: k,
		Pos:    HookPosTaskPreempt,
		Item:   k.taskHookInfo(t),
	})

	k.ready.Push(t)
	k.dispatch()
	k.park(t)
}

// enterKernel is the first step of every kernel call made by a running task.
// It honors a reschedule that was requested while the task was executing body
// code, so preemption takes effect within one scheduling quantum.
func (k *Kernel) enterKernel(t *task) {
	if t.preempt {
		t.preempt = false
		k.preemptRunning(t)
	}
}

// grant hands the core to a parked task. At most one grant is outstanding.
func (k *Kernel) grant(t *task) {
	if t.granted {
		log.Panicf("task %d already granted", t.id)
	}

	t.granted = true
	k.unparked++
	k.cond.Broadcast()
}

// park blocks the calling task goroutine until it is granted the core.
func (k *Kernel) park(t *task) {
	k.unparked--
	k.cond.Broadcast()

	for !t.granted {
		k.cond.Wait()
	}

	t.granted = false
	t.tickParked = false
}

// WaitQuiescent blocks until no task goroutine is executing body code, that
// is, every task is parked inside the kernel. Deterministic tick sources use
// it to keep test outcomes independent of goroutine scheduling.
func (k *Kernel) WaitQuiescent() {
	k.mu.Lock()
	defer k.mu.Unlock()

	for k.unparked > 0 {
		k.cond.Wait()
	}
}

// RunningTask returns the task currently holding the core. The second return
// value is false when the built-in idle context holds the core.
func (k *Kernel) RunningTask() (TaskID, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.running == nil {
		return 0, false
	}

	return k.running.id, true
}

// TaskStatuses snapshots all tasks, sorted by ID.
func (k *Kernel) TaskStatuses() []TaskStatus {
	k.mu.Lock()
	defer k.mu.Unlock()

	statuses := make([]TaskStatus, 0, len(k.tasks))
	for _, t := range k.tasks {
		statuses = append(statuses, TaskStatus{
			ID:           t.id,
			Priority:     t.priority,
			State:        t.state,
			BlockedOn:    t.blockedOn,
			BlockedOnSem: t.blockedOnSem,
			Periodic:     t.armed,
			Period:       t.period,
			NextDeadline: t.nextDeadline,
		})
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].ID < statuses[j].ID
	})

	return statuses
}

// SemStatuses snapshots all semaphores, sorted by ID.
func (k *Kernel) SemStatuses() []SemStatus {
	k.mu.Lock()
	defer k.mu.Unlock()

	statuses := make([]SemStatus, 0, len(k.sems))
	for _, id := range k.semIDs {
		s := k.sems[id]
		statuses = append(statuses, SemStatus{
			ID:      s.id,
			Count:   s.count,
			Waiters: s.waiters.IDs(),
		})
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].ID < statuses[j].ID
	})

	return statuses
}

func (k *Kernel) taskHookInfo(t *task) TaskHookInfo {
	return TaskHookInfo{
		Task:     t.id,
		Priority: t.priority,
		State:    t.state,
		Now:      Tick(k.now.Load()),
	}
}
