package accel

import (
	"fmt"
	"log"

	"github.com/sarchlab/cadence/hal"
	"github.com/sarchlab/cadence/rtk"
)

// Canvas geometry. The left half shows raw and filtered readings, the right
// half hosts the scrolling plot band.
const (
	canvasWidth  = 320
	canvasHeight = 240

	axisY = 120
	axisX = 160

	plotBaselineY = 180
	plotSlots     = 5
	filterWindow  = 10
)

func mustInitPeriod(tc *rtk.TaskCtx, p rtk.Tick) {
	if err := tc.InitPeriod(p); err != nil {
		panic(err)
	}
}

// timerEntry counts seconds and renders the running time.
func timerEntry(d hal.Display, period rtk.Tick) func(*rtk.TaskCtx) {
	return func(tc *rtk.TaskCtx) {
		mustInitPeriod(tc, period)

		seconds := 0
		for {
			tc.WaitForNextPeriod()

			seconds++

			d.Text(70, 140, "timer", hal.ColWhite, hal.ColBlack)
			d.Text(70, 165, fmt.Sprintf("%5d", seconds),
				hal.ColWhite, hal.ColBlack)
		}
	}
}

// samplerEntry reads the accelerometer, publishes the sample, and renders
// the raw axes.
func samplerEntry(
	acc hal.Accelerometer,
	store *SampleStore,
	d hal.Display,
	logger *log.Logger,
	period rtk.Tick,
) func(*rtk.TaskCtx) {
	return func(tc *rtk.TaskCtx) {
		mustInitPeriod(tc, period)

		for {
			tc.WaitForNextPeriod()

			sample, err := acc.Read()
			if err != nil {
				logger.Printf("sampler: %s", err)
				continue
			}

			if err := store.Put(tc, sample); err != nil {
				panic(err)
			}

			d.Text(60, 25, "sampler", hal.ColWhite, hal.ColBlack)

			d.Text(60, 40, "X", hal.ColWhite, hal.ColBlack)
			d.Text(70, 40, fmt.Sprintf("%4d", sample.X),
				hal.ColWhite, hal.ColBlack)

			d.Text(60, 50, "Y", hal.ColWhite, hal.ColBlack)
			d.Text(70, 50, fmt.Sprintf("%4d", sample.Y),
				hal.ColWhite, hal.ColBlack)

			d.Text(60, 60, "Z", hal.ColWhite, hal.ColBlack)
			d.Text(70, 60, fmt.Sprintf("%4d", sample.Z),
				hal.ColWhite, hal.ColBlack)
		}
	}
}

// filterEntry keeps a ring of the last ten samples and renders the running
// mean once the ring has filled.
func filterEntry(
	store *SampleStore,
	d hal.Display,
	period rtk.Tick,
) func(*rtk.TaskCtx) {
	return func(tc *rtk.TaskCtx) {
		mustInitPeriod(tc, period)

		var ring [filterWindow]hal.Sample
		counter := 0
		filled := false

		for {
			tc.WaitForNextPeriod()

			sample, err := store.Get(tc)
			if err != nil {
				panic(err)
			}
			ring[counter] = sample

			d.Text(200, 35, "filter", hal.ColWhite, hal.ColBlack)

			switch {
			case filled:
				var avgX, avgY, avgZ int
				for _, s := range ring {
					avgX += int(s.X)
					avgY += int(s.Y)
					avgZ += int(s.Z)
				}
				avgX /= filterWindow
				avgY /= filterWindow
				avgZ /= filterWindow

				d.Text(220, 50, "X", hal.ColWhite, hal.ColBlack)
				d.Text(230, 50, fmt.Sprintf("%4d", avgX),
					hal.ColWhite, hal.ColBlack)

				d.Text(220, 60, "Y", hal.ColWhite, hal.ColBlack)
				d.Text(230, 60, fmt.Sprintf("%4d", avgY),
					hal.ColWhite, hal.ColBlack)

				d.Text(220, 70, "Z", hal.ColWhite, hal.ColBlack)
				d.Text(230, 70, fmt.Sprintf("%4d", avgZ),
					hal.ColWhite, hal.ColBlack)
			case counter == filterWindow-1:
				filled = true
				d.ClearRegion(170, 0, canvasWidth-1, 110)
			default:
				d.Text(200, 65, "sampling...", hal.ColWhite, hal.ColBlack)
			}

			counter = (counter + 1) % filterWindow
		}
	}
}

// plotterEntry draws the Z axis as a scrolling dot plot over a cyan
// baseline. The band restarts from the left every plotSlots activations.
func plotterEntry(
	store *SampleStore,
	d hal.Display,
	period rtk.Tick,
) func(*rtk.TaskCtx) {
	return func(tc *rtk.TaskCtx) {
		mustInitPeriod(tc, period)

		counter := 0
		for {
			tc.WaitForNextPeriod()

			if counter == 0 {
				d.ClearRegion(170, 125, canvasWidth-1, canvasHeight-1)
			}

			d.Text(200, 130, "plotter", hal.ColWhite, hal.ColBlack)

			sample, err := store.Get(tc)
			if err != nil {
				panic(err)
			}

			d.Text(190, plotBaselineY, "0", hal.ColWhite, hal.ColBlack)
			d.HLine(200, plotBaselineY, 60, hal.ColCyan)

			d.FilledCircle(
				int16(205+5*counter),
				int16(plotBaselineY-int(sample.Z)/8),
				1,
				hal.ColGreen)

			counter = (counter + 1) % plotSlots
		}
	}
}

// idleEntry yields every tick and emits a heartbeat dot now and then, so a
// quiet log still shows the kernel is alive.
func idleEntry(logger *log.Logger, heartbeat rtk.Tick) func(*rtk.TaskCtx) {
	return func(tc *rtk.TaskCtx) {
		var n rtk.Tick
		for {
			tc.Yield()

			n++
			if heartbeat > 0 && n%heartbeat == 0 {
				logger.Print(".")
			}
		}
	}
}
