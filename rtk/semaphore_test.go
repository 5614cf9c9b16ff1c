package rtk

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Semaphore", func() {
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

	It("should report unknown semaphore IDs", func() {
		Expect(kernel.AddSemaphore(1, 1)).To(Succeed())
		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 1, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				rec.add("acquire: %v", tc.Acquire(9))
				rec.add("release: %v", tc.Release(9))
				tc.Suspend()
			},
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())
		src.Advance(0)

		events := rec.list()
		Expect(events[0]).To(ContainSubstring("unknown semaphore"))
		Expect(events[1]).To(ContainSubstring("unknown semaphore"))
	})

	It("should block a higher-priority task until the holder releases", func() {
		// Task 1 (priority 1) enters a 3-tick critical section. Task 2
		// (priority 5) attempts the acquire mid-section and must block,
		// not proceed.
		Expect(kernel.AddSemaphore(1, 1)).To(Succeed())

		Expect(kernel.Create(TaskSpec{
			ID: 2, Priority: 5, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				if err := tc.InitPeriod(2); err != nil {
					panic(err)
				}
				for {
					tc.WaitForNextPeriod()
					if err := tc.Acquire(1); err != nil {
						panic(err)
					}
					rec.add("task 2 in section at tick %d", tc.Now())
					if err := tc.Release(1); err != nil {
						panic(err)
					}
				}
			},
		})).To(Succeed())
		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 1, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				if err := tc.Acquire(1); err != nil {
					panic(err)
				}
				rec.add("task 1 enters section at tick %d", tc.Now())
				tc.Busy(3)
				rec.add("task 1 leaves section at tick %d", tc.Now())
				if err := tc.Release(1); err != nil {
					panic(err)
				}
				tc.Suspend()
			},
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())

		src.Advance(3)

		Expect(rec.list()).To(Equal([]string{
			"task 1 enters section at tick 0",
			"task 1 leaves section at tick 3",
			"task 2 in section at tick 3",
		}))
	})

	It("should hand off directly to the highest-priority waiter", func() {
		kernel.AcceptHook(newRecordingHook(rec, HookPosSemHandOff))

		Expect(kernel.AddSemaphore(1, 1)).To(Succeed())
		addContender := func(id TaskID, prio Priority) {
			Expect(kernel.Create(TaskSpec{
				ID: id, Priority: prio, State: TaskReady,
				Entry: func(tc *TaskCtx) {
					if err := tc.Acquire(1); err != nil {
						panic(err)
					}
					rec.add("task %d acquired", tc.ID())
					tc.Yield()
					if err := tc.Release(1); err != nil {
						panic(err)
					}
					tc.Suspend()
				},
			})).To(Succeed())
		}

		// Registration order differs from priority order on purpose.
		addContender(1, 2)
		addContender(2, 1)
		addContender(3, 3)
		Expect(kernel.Start()).To(Succeed())

		src.Advance(5)

		Expect(rec.list()).To(Equal([]string{
			"task 3 acquired",
			"SemHandOff task 1 tick 1",
			"task 1 acquired",
			"SemHandOff task 2 tick 2",
			"task 2 acquired",
		}))

		status := kernel.SemStatuses()
		Expect(status).To(HaveLen(1))
		Expect(status[0].Count).To(Equal(1))
		Expect(status[0].Waiters).To(BeEmpty())
	})

	It("should break waiter ties by arrival order", func() {
		Expect(kernel.AddSemaphore(1, 0)).To(Succeed())
		for _, id := range []TaskID{5, 4, 6} {
			Expect(kernel.Create(TaskSpec{
				ID: id, Priority: 1, State: TaskReady,
				Entry: func(tc *TaskCtx) {
					if err := tc.Acquire(1); err != nil {
						panic(err)
					}
					rec.add("task %d acquired", tc.ID())
					if err := tc.Release(1); err != nil {
						panic(err)
					}
					tc.Suspend()
				},
			})).To(Succeed())
		}
		Expect(kernel.Create(TaskSpec{
			ID: 9, Priority: 0, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				if err := tc.Release(1); err != nil {
					panic(err)
				}
				tc.Suspend()
			},
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())

		src.Advance(2)

		Expect(rec.list()).To(Equal([]string{
			"task 5 acquired",
			"task 4 acquired",
			"task 6 acquired",
		}))
	})

	It("should count releases when nobody waits", func() {
		Expect(kernel.AddSemaphore(1, 0)).To(Succeed())
		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 1, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				if err := tc.Release(1); err != nil {
					panic(err)
				}
				if err := tc.Release(1); err != nil {
					panic(err)
				}
				if err := tc.Acquire(1); err != nil {
					panic(err)
				}
				rec.add("acquired without blocking")
				tc.Suspend()
			},
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())
		src.Advance(0)

		Expect(rec.list()).To(Equal([]string{"acquired without blocking"}))

		status := kernel.SemStatuses()
		Expect(status[0].Count).To(Equal(1))
	})

	It("should serve waiters under the counting discipline too", func() {
		kernel = MakeBuilder().
			WithTimeBase(TimeBase20Ms).
			WithSemDiscipline(SemCountingDiscipline).
			Build()
		src = NewManualSource(kernel)
		handOffs := &recorder{}
		kernel.AcceptHook(newRecordingHook(handOffs, HookPosSemHandOff))

		Expect(kernel.AddSemaphore(1, 1)).To(Succeed())
		for _, id := range []TaskID{1, 2} {
			Expect(kernel.Create(TaskSpec{
				ID: id, Priority: 1, State: TaskReady,
				Entry: func(tc *TaskCtx) {
					if err := tc.Acquire(1); err != nil {
						panic(err)
					}
					rec.add("task %d acquired", tc.ID())
					tc.Yield()
					if err := tc.Release(1); err != nil {
						panic(err)
					}
					tc.Suspend()
				},
			})).To(Succeed())
		}
		Expect(kernel.Start()).To(Succeed())

		src.Advance(4)

		Expect(rec.list()).To(Equal([]string{
			"task 1 acquired",
			"task 2 acquired",
		}))
		Expect(handOffs.list()).To(BeEmpty(),
			"the counting discipline never hands off")
	})
})
