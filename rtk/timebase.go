package rtk

import (
	"log"
	"time"
)

// Tick is a count of time-base periods. The kernel's tick counter starts at
// zero and increases by exactly one per hardware period; it is never reset.
// Periodic task periods and deadlines are expressed in the same unit.
type Tick uint64

// TimeBase is the wall duration of one tick. It must be configured before the
// kernel starts.
type TimeBase time.Duration

// Common time bases.
const (
	TimeBase1Ms  = TimeBase(time.Millisecond)
	TimeBase10Ms = TimeBase(10 * time.Millisecond)
	TimeBase20Ms = TimeBase(20 * time.Millisecond)
)

// Period returns the wall duration between two consecutive ticks.
func (b TimeBase) Period() time.Duration {
	if b <= 0 {
		log.Panic("time base is not configured")
	}
	return time.Duration(b)
}

// Duration converts a tick count into a wall duration.
func (b TimeBase) Duration(n Tick) time.Duration {
	return time.Duration(n) * b.Period()
}

// TicksIn returns the number of whole ticks in the given duration.
func (b TimeBase) TicksIn(d time.Duration) Tick {
	if d < 0 {
		log.Panic("negative duration")
	}
	return Tick(d / b.Period())
}

// PerSecond returns the number of ticks in one second.
func (b TimeBase) PerSecond() float64 {
	return float64(time.Second) / float64(b.Period())
}

// A TimeTeller can tell the current tick count.
type TimeTeller interface {
	CurrentTick() Tick
}
