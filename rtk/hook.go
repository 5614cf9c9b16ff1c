package rtk

// HookPos defines the enum of possible hooking positions
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable defines an object that accept Hooks
type Hookable interface {
	// AcceptHook registers a hook
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered
	NumHooks() int

	// Hooks returns the hooks registered
	Hooks() []Hook
}

// Hook positions of the kernel. Hooks run with the kernel lock held and must
// not call back into the kernel.
var (
	HookPosBeforeTick   = &HookPos{Name: "BeforeTick"}
	HookPosAfterTick    = &HookPos{Name: "AfterTick"}
	HookPosTaskDispatch = &HookPos{Name: "TaskDispatch"}
	HookPosTaskPreempt  = &HookPos{Name: "TaskPreempt"}
	HookPosTaskBlock    = &HookPos{Name: "TaskBlock"}
	HookPosTaskReady    = &HookPos{Name: "TaskReady"}
	HookPosDeadlineMiss = &HookPos{Name: "DeadlineMiss"}
	HookPosSemAcquire   = &HookPos{Name: "SemAcquire"}
	HookPosSemBlock     = &HookPos{Name: "SemBlock"}
	HookPosSemHandOff   = &HookPos{Name: "SemHandOff"}
	HookPosSemRelease   = &HookPos{Name: "SemRelease"}
)

// TickInfo is the hook item at the BeforeTick and AfterTick positions.
type TickInfo struct {
	Now Tick
}

// TaskHookInfo is the hook item at the task state-change positions.
type TaskHookInfo struct {
	Task     TaskID
	Priority Priority
	State    TaskState
	Now      Tick
}

// MissInfo is the hook item at the DeadlineMiss position.
type MissInfo struct {
	Task     TaskID
	Deadline Tick
	Now      Tick
}

// SemHookInfo is the hook item at the semaphore positions.
type SemHookInfo struct {
	Sem   SemID
	Task  TaskID
	Count int
	Now   Tick
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface.
type HookableBase struct {
	hooks []Hook
}

// NewHookableBase creates a HookableBase object
func NewHookableBase() *HookableBase {
	h := new(HookableBase)
	h.hooks = make([]Hook, 0)
	return h
}

// AcceptHook register a hook
func (h *HookableBase) AcceptHook(hook Hook) {
	h.hooks = append(h.hooks, hook)
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// Hooks returns the hooks registered.
func (h *HookableBase) Hooks() []Hook {
	return h.hooks
}

// InvokeHook triggers the register Hooks
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
