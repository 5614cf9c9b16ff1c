package rtk

import (
	"log"
)

// LogHookBase provides the common logic for hooks that write to a logger.
type LogHookBase struct {
	*log.Logger
}

// DispatchLogger is a hook that prints every dispatch and preemption.
type DispatchLogger struct {
	LogHookBase
}

// NewDispatchLogger returns a DispatchLogger that writes into the logger.
func NewDispatchLogger(logger *log.Logger) *DispatchLogger {
	h := new(DispatchLogger)
	h.Logger = logger
	return h
}

// Func writes the dispatch information into the logger.
func (h *DispatchLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosTaskDispatch && ctx.Pos != HookPosTaskPreempt {
		return
	}

	info, ok := ctx.Item.(TaskHookInfo)
	if !ok {
		return
	}

	h.Printf("tick %d, %s, task %d prio %d",
		info.Now, ctx.Pos.Name, info.Task, info.Priority)
}

// MissLogger is a hook that reports each deadline miss once per occurrence.
type MissLogger struct {
	LogHookBase

	// Names optionally maps task IDs to display names.
	Names map[TaskID]string
}

// NewMissLogger returns a MissLogger that writes into the logger.
func NewMissLogger(logger *log.Logger) *MissLogger {
	h := new(MissLogger)
	h.Logger = logger
	return h
}

// Func writes the miss information into the logger.
func (h *MissLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosDeadlineMiss {
		return
	}

	info, ok := ctx.Item.(MissInfo)
	if !ok {
		return
	}

	if name, ok := h.Names[info.Task]; ok {
		h.Printf("deadline miss: %s (deadline %d, tick %d)",
			name, info.Deadline, info.Now)
		return
	}

	h.Printf("deadline miss: task %d (deadline %d, tick %d)",
		info.Task, info.Deadline, info.Now)
}
