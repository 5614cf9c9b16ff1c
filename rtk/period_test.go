package rtk

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Periodic scheduling", func() {
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

	It("should activate on every period boundary without drift", func() {
		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 1, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				if err := tc.InitPeriod(3); err != nil {
					panic(err)
				}
				for {
					outcome := tc.WaitForNextPeriod()
					rec.add("tick %d %s", tc.Now(), outcome)
				}
			},
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())

		src.Advance(12)

		Expect(rec.list()).To(Equal([]string{
			"tick 3 Met",
			"tick 6 Met",
			"tick 9 Met",
			"tick 12 Met",
		}))
	})

	It("should keep the cadence independent of body length", func() {
		// A body that takes 1 tick of a 4-tick period still activates at
		// every multiple of 4.
		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 1, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				if err := tc.InitPeriod(4); err != nil {
					panic(err)
				}
				for {
					tc.WaitForNextPeriod()
					rec.add("activated at tick %d", tc.Now())
					tc.Busy(1)
				}
			},
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())

		src.Advance(13)

		Expect(rec.list()).To(Equal([]string{
			"activated at tick 4",
			"activated at tick 8",
			"activated at tick 12",
		}))
	})

	It("should report a miss when the body overruns the period", func() {
		// Period 5, body 6 ticks: the second wait call must report the
		// miss and return immediately, re-synchronized to the boundary
		// that already arrived.
		kernel.AcceptHook(newRecordingHook(rec, HookPosDeadlineMiss))

		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 1, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				if err := tc.InitPeriod(5); err != nil {
					panic(err)
				}
				for {
					outcome := tc.WaitForNextPeriod()
					rec.add("wait returned %s at tick %d", outcome, tc.Now())
					tc.Busy(6)
				}
			},
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())

		src.Advance(11)

		Expect(rec.list()).To(Equal([]string{
			"wait returned Met at tick 5",
			"DeadlineMiss task 1 tick 10",
			"wait returned Missed at tick 11",
		}))
	})

	It("should not accumulate missed activations", func() {
		// Two boundaries pass while the task is busy; only one pending
		// activation is latched, so the cadence re-synchronizes instead
		// of bursting.
		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 1, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				if err := tc.InitPeriod(2); err != nil {
					panic(err)
				}
				for {
					outcome := tc.WaitForNextPeriod()
					rec.add("wait returned %s at tick %d", outcome, tc.Now())
					tc.Busy(5)
				}
			},
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())

		src.Advance(7)

		Expect(rec.list()).To(Equal([]string{
			"wait returned Met at tick 2",
			"wait returned Missed at tick 7",
		}))
	})

	It("should keep deadlines strictly increasing by one period", func() {
		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 1, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				if err := tc.InitPeriod(3); err != nil {
					panic(err)
				}
				for {
					tc.WaitForNextPeriod()
				}
			},
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())

		last := Tick(0)
		for i := 0; i < 9; i++ {
			src.Advance(1)
			status := kernel.TaskStatuses()[0]
			Expect(status.NextDeadline).To(BeNumerically(">", kernel.CurrentTick()))
			if status.NextDeadline != last {
				if last != 0 {
					Expect(status.NextDeadline).To(Equal(last + 3))
				}
				last = status.NextDeadline
			}
		}
	})

	It("should reject a zero period", func() {
		Expect(kernel.Create(TaskSpec{
			ID: 1, Priority: 1, State: TaskReady,
			Entry: func(tc *TaskCtx) {
				rec.add("init: %v", tc.InitPeriod(0))
				tc.Suspend()
			},
		})).To(Succeed())
		Expect(kernel.Start()).To(Succeed())
		src.Advance(0)

		Expect(rec.list()[0]).To(ContainSubstring("bad period"))
	})
})
