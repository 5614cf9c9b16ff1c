package accel

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sarchlab/cadence/hal"
	"github.com/sarchlab/cadence/rtk"
)

// App is the assembled demo: a configured kernel plus the devices its tasks
// render to. Attach tracers or a monitor to Kernel before starting it.
type App struct {
	Kernel *rtk.Kernel

	display hal.Display
	store   *SampleStore
}

// Builder assembles the demo application. The zero value is not usable; use
// MakeBuilder.
type Builder struct {
	timeBase       rtk.TimeBase
	period         rtk.Tick
	heartbeat      rtk.Tick
	display        hal.Display
	accel          hal.Accelerometer
	buttons        hal.ButtonPad
	logger         *log.Logger
	deviceAttempts int
}

// MakeBuilder returns a builder with the demo defaults: a 20 ms time base,
// one-second task periods, and ten device warm-up attempts.
func MakeBuilder() Builder {
	return Builder{
		timeBase:       rtk.TimeBase20Ms,
		heartbeat:      50,
		deviceAttempts: 10,
	}
}

// WithTimeBase sets the kernel time base.
func (b Builder) WithTimeBase(tb rtk.TimeBase) Builder {
	b.timeBase = tb
	return b
}

// WithPeriod sets the period, in ticks, shared by the four worker tasks.
// The default is one second at the configured time base.
func (b Builder) WithPeriod(p rtk.Tick) Builder {
	b.period = p
	return b
}

// WithHeartbeat sets how many yields pass between idle heartbeat dots.
// Zero disables the heartbeat.
func (b Builder) WithHeartbeat(n rtk.Tick) Builder {
	b.heartbeat = n
	return b
}

// WithDisplay sets the display the tasks render to.
func (b Builder) WithDisplay(d hal.Display) Builder {
	b.display = d
	return b
}

// WithAccelerometer sets the sampled device.
func (b Builder) WithAccelerometer(a hal.Accelerometer) Builder {
	b.accel = a
	return b
}

// WithButtonPad sets the pad polled before boot.
func (b Builder) WithButtonPad(p hal.ButtonPad) Builder {
	b.buttons = p
	return b
}

// WithLogger sets the logger for the idle heartbeat and the miss reports.
func (b Builder) WithLogger(l *log.Logger) Builder {
	b.logger = l
	return b
}

// WithDeviceAttempts bounds how often Open and Init are retried before boot
// fails.
func (b Builder) WithDeviceAttempts(n int) Builder {
	b.deviceAttempts = n
	return b
}

// Build boots the demo: splash screen, button wait, device warm-up, axes,
// then kernel assembly. The returned app is ready to start.
func (b Builder) Build() (*App, error) {
	if b.display == nil || b.accel == nil || b.buttons == nil {
		return nil, fmt.Errorf("display, accelerometer, and button pad " +
			"must all be set")
	}

	logger := b.logger
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}

	period := b.period
	if period == 0 {
		period = b.timeBase.TicksIn(time.Second)
	}

	b.splash()
	b.waitForButton()
	b.display.Clear(hal.ColBlack)

	if err := b.warmUpDevices(logger); err != nil {
		return nil, err
	}

	b.drawAxes()

	kernel := rtk.MakeBuilder().WithTimeBase(b.timeBase).Build()

	missLogger := rtk.NewMissLogger(logger)
	missLogger.Names = TaskNames
	kernel.AcceptHook(missLogger)

	if err := kernel.AddSemaphore(SharedDataSem, 1); err != nil {
		return nil, err
	}

	store := NewSampleStore(SharedDataSem)

	specs := []rtk.TaskSpec{
		{
			ID:       IdleTask,
			Priority: IdlePriority,
			State:    rtk.TaskReady,
			Entry:    idleEntry(logger, b.heartbeat),
		},
		{
			ID:       TimerTask,
			Priority: WorkerPriority,
			State:    rtk.TaskReady,
			Entry:    timerEntry(b.display, period),
		},
		{
			ID:       SamplerTask,
			Priority: WorkerPriority,
			State:    rtk.TaskReady,
			Entry:    samplerEntry(b.accel, store, b.display, logger, period),
		},
		{
			ID:       FilterTask,
			Priority: WorkerPriority,
			State:    rtk.TaskReady,
			Entry:    filterEntry(store, b.display, period),
		},
		{
			ID:       PlotterTask,
			Priority: WorkerPriority,
			State:    rtk.TaskReady,
			Entry:    plotterEntry(store, b.display, period),
		},
	}

	for _, spec := range specs {
		if err := kernel.Create(spec); err != nil {
			return nil, err
		}
	}

	return &App{
		Kernel:  kernel,
		display: b.display,
		store:   store,
	}, nil
}

func (b Builder) splash() {
	b.display.Clear(hal.ColBlack)
	b.display.Text(150, 20, "cadence", hal.ColMagenta, hal.ColBlack)
	b.display.Text(140, 120, "press any button", hal.ColRed, hal.ColBlack)
}

// waitForButton polls the pad until one of the two low button bits reads
// pressed.
func (b Builder) waitForButton() {
	for b.buttons.Read()&0x3 == 0x3 {
	}
}

func (b Builder) warmUpDevices(logger *log.Logger) error {
	if err := b.retry(b.accel.Open, logger,
		"unable to open accelerometer device"); err != nil {
		return err
	}

	if err := b.retry(b.accel.Init, logger,
		"unable to initialize accelerometer"); err != nil {
		return err
	}

	return nil
}

func (b Builder) retry(op func() error, logger *log.Logger, msg string) error {
	var err error
	for i := 0; i < b.deviceAttempts; i++ {
		err = op()
		if err == nil {
			return nil
		}

		logger.Printf("%s: %s", msg, err)
	}

	return fmt.Errorf("%w: %s", rtk.ErrDeviceNotReady, msg)
}

func (b Builder) drawAxes() {
	b.display.HLine(0, axisY, canvasWidth-1, hal.ColWhite)
	b.display.VLine(axisX, 0, canvasHeight-1, hal.ColWhite)
}

// Run starts the kernel and drives it from a wall tick source until the
// context is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.Kernel.Run(ctx)
}
