package rtk

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

// recorder collects events from task bodies and hooks. Assertions read it
// only at quiescent points.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// recordingHook records selected hook positions into a recorder.
type recordingHook struct {
	rec       *recorder
	positions map[*HookPos]bool
}

func newRecordingHook(rec *recorder, positions ...*HookPos) *recordingHook {
	h := &recordingHook{rec: rec, positions: make(map[*HookPos]bool)}
	for _, p := range positions {
		h.positions[p] = true
	}
	return h
}

func (h *recordingHook) Func(ctx HookCtx) {
	if !h.positions[ctx.Pos] {
		return
	}

	switch item := ctx.Item.(type) {
	case TaskHookInfo:
		h.rec.add("%s task %d tick %d", ctx.Pos.Name, item.Task, item.Now)
	case MissInfo:
		h.rec.add("%s task %d tick %d", ctx.Pos.Name, item.Task, item.Now)
	case SemHookInfo:
		h.rec.add("%s task %d tick %d", ctx.Pos.Name, item.Task, item.Now)
	case TickInfo:
		h.rec.add("%s tick %d", ctx.Pos.Name, item.Now)
	}
}

// waiterEntry parks the task in its periodic wait forever.
func waiterEntry(period Tick) func(*TaskCtx) {
	return func(tc *TaskCtx) {
		if err := tc.InitPeriod(period); err != nil {
			panic(err)
		}
		for {
			tc.WaitForNextPeriod()
		}
	}
}

var _ = Describe("Kernel", func() {
	var (
		kernel *Kernel
		src    *ManualSource
		rec    *recorder
	)

	BeforeEach(func() {
		kernel = MakeBuilder().
			WithTimeBase(TimeBase20Ms).
			Build()
		src = NewManualSource(kernel)
		rec = &recorder{}
	})

	It("should advance the tick counter by exactly one per tick", func() {
		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 1, State: TaskReady, Entry: waiterEntry(10),
		})).To(Succeed())

		Expect(kernel.Start()).To(Succeed())
		Expect(kernel.CurrentTick()).To(Equal(Tick(0)))

		for i := 1; i <= 5; i++ {
			src.Advance(1)
			Expect(kernel.CurrentTick()).To(Equal(Tick(i)))
		}
	})

	It("should keep at most one task in the Running state", func() {
		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 2, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				for {
					tc.Busy(3)
				}
			},
		})).To(Succeed())
		Expect(kernel.Create(TaskSpec{
			ID: 2, Priority: 2, State: TaskReady, Entry: waiterEntry(2),
		})).To(Succeed())
		Expect(kernel.Create(TaskSpec{
			ID: 3, Priority: 1, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				for {
					tc.Yield()
				}
			},
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())

		for i := 0; i < 10; i++ {
			src.Advance(1)

			running := 0
			for _, s := range kernel.TaskStatuses() {
				if s.State == TaskRunning {
					running++
				}
			}
			Expect(running).To(BeNumerically("<=", 1))
		}
	})

	It("should run the built-in idle context when no task is ready", func() {
		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 1, State: TaskReady, Entry: waiterEntry(100),
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())

		src.Advance(3)

		_, running := kernel.RunningTask()
		Expect(running).To(BeFalse())

		statuses := kernel.TaskStatuses()
		Expect(statuses).To(HaveLen(1))
		Expect(statuses[0].State).To(Equal(TaskBlocked))
		Expect(statuses[0].BlockedOn).To(Equal(BlockedOnPeriod))
	})

	It("should keep a busy task running across ticks", func() {
		Expect(kernel.Create(TaskSpec{
			ID: 7, Priority: 1, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				for {
					tc.Busy(100)
				}
			},
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())

		src.Advance(5)

		id, running := kernel.RunningTask()
		Expect(running).To(BeTrue())
		Expect(id).To(Equal(TaskID(7)))
	})

	It("should preempt a lower-priority task within one tick", func() {
		kernel.AcceptHook(newRecordingHook(rec,
			HookPosTaskDispatch, HookPosTaskPreempt, HookPosTaskReady))

		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 3, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				for {
					tc.Busy(10)
				}
			},
		})).To(Succeed())
		Expect(kernel.Create(TaskSpec{
			ID: 2, Priority: 5, State: TaskReady, Entry: waiterEntry(4),
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())

		src.Advance(4)

		Expect(rec.list()).To(ContainElements(
			"TaskReady task 2 tick 4",
			"TaskPreempt task 1 tick 4",
			"TaskDispatch task 2 tick 4",
		))

		id, running := kernel.RunningTask()
		Expect(running).To(BeTrue())
		Expect(id).To(Equal(TaskID(1)), "busy task regains the core once the periodic task waits")
	})

	It("should not preempt among equal priorities", func() {
		kernel.AcceptHook(newRecordingHook(rec, HookPosTaskPreempt))

		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 2, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				for {
					tc.Busy(10)
				}
			},
		})).To(Succeed())
		Expect(kernel.Create(TaskSpec{
			ID: 2, Priority: 2, State: TaskReady, Entry: waiterEntry(3),
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())

		src.Advance(8)

		Expect(rec.list()).To(BeEmpty())
		id, running := kernel.RunningTask()
		Expect(running).To(BeTrue())
		Expect(id).To(Equal(TaskID(1)))
	})

	It("should dispatch all tasks within a bounded number of ticks", func() {
		for id := 1; id <= 4; id++ {
			Expect(kernel.Create(TaskSpec{
				ID: TaskID(id), Priority: 1, State: TaskReady,
				Entry: func(tc *TaskCtx) {
					for {
						rec.add("run %d", tc.ID())
						tc.Yield()
					}
				},
			})).To(Succeed())
		}
		Expect(kernel.Start()).To(Succeed())

		src.Advance(2)

		events := rec.list()
		for id := 1; id <= 4; id++ {
			Expect(events).To(ContainElement(fmt.Sprintf("run %d", id)))
		}
	})

	It("should round-robin equal priorities in arrival order", func() {
		for _, id := range []TaskID{3, 1, 2} {
			Expect(kernel.Create(TaskSpec{
				ID: id, Priority: 1, State: TaskReady,
				Entry: func(tc *TaskCtx) {
					for {
						rec.add("run %d", tc.ID())
						tc.Yield()
					}
				},
			})).To(Succeed())
		}
		Expect(kernel.Start()).To(Succeed())
		src.Advance(0)

		Expect(rec.list()).To(Equal([]string{"run 3", "run 1", "run 2"}))
	})

	It("should break ties by lowest ID when configured", func() {
		kernel = MakeBuilder().
			WithTimeBase(TimeBase20Ms).
			WithTieBreak(TieBreakLowestID).
			Build()
		src = NewManualSource(kernel)

		for _, id := range []TaskID{3, 1, 2} {
			Expect(kernel.Create(TaskSpec{
				ID: id, Priority: 1, State: TaskReady,
				Entry: func(tc *TaskCtx) {
					for {
						rec.add("run %d", tc.ID())
						tc.Yield()
					}
				},
			})).To(Succeed())
		}
		Expect(kernel.Start()).To(Succeed())
		src.Advance(0)

		Expect(rec.list()).To(Equal([]string{"run 1", "run 2", "run 3"}))
	})

	It("should suspend and resume tasks", func() {
		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 2, State: TaskSuspended,
			Entry: func(tc *TaskCtx) {
				for {
					rec.add("task 1 resumed at tick %d", tc.Now())
					tc.Suspend()
				}
			},
		})).To(Succeed())
		Expect(kernel.Create(TaskSpec{
			ID: 2, Priority: 1, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				if err := tc.InitPeriod(3); err != nil {
					panic(err)
				}
				for {
					tc.WaitForNextPeriod()
					if err := tc.Resume(1); err != nil {
						panic(err)
					}
				}
			},
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())

		src.Advance(7)

		Expect(rec.list()).To(Equal([]string{
			"task 1 resumed at tick 3",
			"task 1 resumed at tick 6",
		}))
	})

	It("should reject resuming a task that is not suspended", func() {
		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 1, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				rec.add("resume unknown: %v", tc.Resume(99))
				rec.add("resume self: %v", tc.Resume(1))
				tc.Suspend()
			},
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())
		src.Advance(0)

		events := rec.list()
		Expect(events[0]).To(ContainSubstring("unknown task"))
		Expect(events[1]).To(ContainSubstring("not suspended"))
	})

	It("should invoke tick hooks on every tick", func() {
		ctrl := gomock.NewController(GinkgoT())
		defer ctrl.Finish()

		hook := NewMockHook(ctrl)
		calls := 0
		hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
			if ctx.Pos == HookPosBeforeTick || ctx.Pos == HookPosAfterTick {
				calls++
			}
		}).AnyTimes()
		kernel.AcceptHook(hook)

		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 1, State: TaskReady, Entry: waiterEntry(10),
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())

		src.Advance(3)

		Expect(calls).To(Equal(6))
	})
})

var _ = Describe("Kernel configuration", func() {
	var kernel *Kernel

	BeforeEach(func() {
		kernel = MakeBuilder().WithTimeBase(TimeBase20Ms).Build()
	})

	entry := func(*TaskCtx) {}

	DescribeTable("rejects bad task specs",
		func(spec TaskSpec, expected error) {
			Expect(kernel.Create(spec)).To(MatchError(expected))
		},
		Entry("negative id",
			TaskSpec{ID: -1, Priority: 1, State: TaskReady, Entry: entry},
			ErrBadTaskSpec),
		Entry("nil entry",
			TaskSpec{ID: 1, Priority: 1, State: TaskReady},
			ErrBadTaskSpec),
		Entry("running initial state",
			TaskSpec{ID: 1, Priority: 1, State: TaskRunning, Entry: entry},
			ErrBadTaskSpec),
		Entry("negative priority",
			TaskSpec{ID: 1, Priority: -2, State: TaskReady, Entry: entry},
			ErrBadPriority),
	)

	It("should reject duplicate task IDs", func() {
		spec := TaskSpec{ID: 1, Priority: 1, State: TaskReady, Entry: entry}
		Expect(kernel.Create(spec)).To(Succeed())
		Expect(kernel.Create(spec)).To(MatchError(ErrDuplicateTask))
	})

	It("should reject duplicate semaphore IDs", func() {
		Expect(kernel.AddSemaphore(1, 1)).To(Succeed())
		Expect(kernel.AddSemaphore(1, 1)).To(MatchError(ErrDuplicateSemaphore))
	})

	It("should refuse to start without a time base", func() {
		k := MakeBuilder().Build()
		Expect(k.Create(TaskSpec{
			ID: 1, Priority: 1, State: TaskReady, Entry: entry,
		})).To(Succeed())
		Expect(k.Start()).To(MatchError(ErrNoTimeBase))
	})

	It("should refuse to start without tasks", func() {
		Expect(kernel.Start()).To(MatchError(ErrBadTaskSpec))
	})

	It("should refuse registration after start", func() {
		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 1, State: TaskReady,
			Entry: func(tc *TaskCtx) { tc.Suspend() },
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())

		Expect(kernel.Create(TaskSpec{
			ID: 2, Priority: 1, State: TaskReady, Entry: entry,
		})).To(MatchError(ErrKernelStarted))
		Expect(kernel.AddSemaphore(1, 1)).To(MatchError(ErrKernelStarted))
		Expect(kernel.Start()).To(MatchError(ErrKernelStarted))
	})
})

var _ = Describe("WallSource", func() {
	It("should deliver ticks at the time base until cancelled", func() {
		kernel := MakeBuilder().
			WithTimeBase(TimeBase(time.Millisecond)).
			Build()
		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 1, State: TaskReady, Entry: waiterEntry(2),
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())

		src := NewWallSource(kernel)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- src.Run(ctx) }()

		Eventually(func() Tick {
			return kernel.CurrentTick()
		}).Should(BeNumerically(">", 10))

		src.Pause()
		paused := kernel.CurrentTick()
		Consistently(func() Tick {
			return kernel.CurrentTick()
		}, "30ms", "5ms").Should(Equal(paused))

		src.Continue()
		Eventually(func() Tick {
			return kernel.CurrentTick()
		}).Should(BeNumerically(">", paused))

		cancel()
		Eventually(done).Should(Receive())
	})
})
