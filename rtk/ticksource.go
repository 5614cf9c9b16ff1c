package rtk

import (
	"context"
	"sync"
	"time"
)

// A WallSource drives Kernel.Tick from a wall-clock timer at the kernel's
// time base. It runs until its context is cancelled.
type WallSource struct {
	kernel *Kernel

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex
}

// NewWallSource creates a WallSource for the kernel.
func NewWallSource(k *Kernel) *WallSource {
	return &WallSource{kernel: k}
}

// Run delivers ticks until the context is cancelled.
func (s *WallSource) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.kernel.TimeBase().Period())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.pauseLock.Lock()
			s.kernel.Tick()
			s.pauseLock.Unlock()
		}
	}
}

// Pause prevents the source from delivering more ticks.
func (s *WallSource) Pause() {
	s.isPausedLock.Lock()
	defer s.isPausedLock.Unlock()

	if s.isPaused {
		return
	}

	s.pauseLock.Lock()
	s.isPaused = true
}

// Continue allows the source to deliver ticks again.
func (s *WallSource) Continue() {
	s.isPausedLock.Lock()
	defer s.isPausedLock.Unlock()

	if !s.isPaused {
		return
	}

	s.pauseLock.Unlock()
	s.isPaused = false
}

// A ManualSource drives ticks programmatically for deterministic tests. It
// waits for the kernel to go quiescent between ticks, so outcomes do not
// depend on goroutine scheduling.
type ManualSource struct {
	kernel *Kernel
}

// NewManualSource creates a ManualSource for the kernel.
func NewManualSource(k *Kernel) *ManualSource {
	return &ManualSource{kernel: k}
}

// Advance delivers n ticks, waiting for quiescence before and after each.
func (s *ManualSource) Advance(n Tick) {
	s.kernel.WaitQuiescent()

	for i := Tick(0); i < n; i++ {
		s.kernel.Tick()
		s.kernel.WaitQuiescent()
	}
}

// Run wraps Start plus a WallSource. It blocks until the context is
// cancelled, the hosted stand-in for a scheduler start that never returns.
func (k *Kernel) Run(ctx context.Context) error {
	if err := k.Start(); err != nil {
		return err
	}

	return NewWallSource(k).Run(ctx)
}
