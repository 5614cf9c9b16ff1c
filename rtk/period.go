package rtk

import "fmt"

// PeriodOutcome is the result of WaitForNextPeriod.
type PeriodOutcome int

// The outcomes. PeriodMissed means the period boundary arrived while the
// task was still working for an earlier period.
const (
	PeriodMet PeriodOutcome = iota
	PeriodMissed
)

func (o PeriodOutcome) String() string {
	switch o {
	case PeriodMet:
		return "Met"
	case PeriodMissed:
		return "Missed"
	default:
		return fmt.Sprintf("PeriodOutcome(%d)", int(o))
	}
}
