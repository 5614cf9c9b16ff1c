package rtk

import "errors"

// Configuration and runtime errors returned by the kernel's public API.
// Configuration errors are detected before or at Start and are fatal to the
// caller; the kernel never proceeds with an undefined task or semaphore set.
var (
	ErrKernelStarted      = errors.New("kernel already started")
	ErrKernelNotStarted   = errors.New("kernel not started")
	ErrBadTaskSpec        = errors.New("bad task spec")
	ErrDuplicateTask      = errors.New("duplicate task")
	ErrUnknownTask        = errors.New("unknown task")
	ErrBadPriority        = errors.New("bad priority")
	ErrBadPeriod          = errors.New("bad period")
	ErrNoTimeBase         = errors.New("time base not configured")
	ErrUnknownSemaphore   = errors.New("unknown semaphore")
	ErrDuplicateSemaphore = errors.New("duplicate semaphore")
	ErrNotSuspended       = errors.New("task not suspended")
	ErrDeviceNotReady     = errors.New("device not ready")
)
