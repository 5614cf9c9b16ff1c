package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/cadence/rtk"
)

// CollectSlices lets the tracer collect dispatch slices and deadline misses
// from a kernel. Attaching the same tracer twice is a configuration error.
func CollectSlices(kernel rtk.Hookable, tracer Tracer) {
	hooks := kernel.Hooks()
	for _, hook := range hooks {
		hook, ok := hook.(*sliceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"kernel already has tracer %s", reflect.TypeOf(tracer)))
		}
	}

	h := sliceHook{t: tracer}
	kernel.AcceptHook(&h)
}

// A sliceHook translates kernel hook events into tracer calls.
type sliceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered.
func (h *sliceHook) Func(ctx rtk.HookCtx) {
	switch ctx.Pos {
	case rtk.HookPosTaskDispatch:
		info := ctx.Item.(rtk.TaskHookInfo)
		h.t.StartSlice(Slice{Task: info.Task, Start: info.Now})
	case rtk.HookPosTaskPreempt:
		info := ctx.Item.(rtk.TaskHookInfo)
		h.t.EndSlice(Slice{Task: info.Task, End: info.Now, Reason: EndPreempt})
	case rtk.HookPosTaskBlock:
		info := ctx.Item.(rtk.TaskHookInfo)
		reason := EndBlock
		if info.State == rtk.TaskSuspended {
			reason = EndSuspend
		}
		h.t.EndSlice(Slice{Task: info.Task, End: info.Now, Reason: reason})
	case rtk.HookPosDeadlineMiss:
		info := ctx.Item.(rtk.MissInfo)
		h.t.DeadlineMiss(MissRecord{
			Task:     info.Task,
			Deadline: info.Deadline,
			Now:      info.Now,
		})
	}
}
