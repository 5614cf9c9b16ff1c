package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sarchlab/cadence/accel"
	"github.com/sarchlab/cadence/datarecording"
	"github.com/sarchlab/cadence/hal/halsim"
	"github.com/sarchlab/cadence/monitoring"
	"github.com/sarchlab/cadence/rtk"
	"github.com/sarchlab/cadence/tracing"
)

var runFlags struct {
	configPath   string
	tracePath    string
	monitor      bool
	monitorPort  int
	snapshotPath string
	duration     time.Duration
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the accelerometer demo",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runDemo()
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.configPath, "config", "",
		"path to a YAML config file")
	runCmd.Flags().StringVar(&runFlags.tracePath, "trace", "",
		"record dispatch slices into this SQLite database")
	runCmd.Flags().BoolVar(&runFlags.monitor, "monitor", false,
		"serve the monitoring dashboard")
	runCmd.Flags().IntVar(&runFlags.monitorPort, "monitor-port", 0,
		"monitoring server port (0 picks a free port)")
	runCmd.Flags().StringVar(&runFlags.snapshotPath, "snapshot", "",
		"write a PNG of the final frame to this path")
	runCmd.Flags().DurationVar(&runFlags.duration, "duration", 0,
		"stop after this long (0 runs until interrupted)")

	rootCmd.AddCommand(runCmd)
}

// progressHook advances a dashboard progress bar every tick.
type progressHook struct {
	bar *monitoring.ProgressBar
}

func (h *progressHook) Func(ctx rtk.HookCtx) {
	if ctx.Pos != rtk.HookPosAfterTick {
		return
	}

	h.bar.SetFinished(uint64(ctx.Item.(rtk.TickInfo).Now))
}

func runDemo() error {
	_ = godotenv.Load()

	cfg := LoadConfig(runFlags.configPath)
	applyFlagOverrides(&cfg)

	logger := log.New(os.Stderr, "", 0)

	fb := halsim.NewFramebuffer(320, 240)
	app, err := accel.MakeBuilder().
		WithTimeBase(rtk.TimeBase(time.Duration(cfg.TickMS) * time.Millisecond)).
		WithPeriod(rtk.Tick(cfg.PeriodTicks)).
		WithHeartbeat(rtk.Tick(cfg.HeartbeatTicks)).
		WithDisplay(halsim.NewDisplay(fb)).
		WithAccelerometer(halsim.NewAccelerometer(halsim.AccelerometerConfig{
			Seed:         cfg.Wave.Seed,
			Amplitude:    cfg.Wave.Amplitude,
			Gravity:      int16(cfg.Wave.Gravity),
			Noise:        int16(cfg.Wave.Noise),
			OpenFailures: cfg.Wave.OpenFailures,
			InitFailures: cfg.Wave.InitFailures,
		})).
		WithButtonPad(halsim.NewButtonPad(0)).
		WithLogger(logger).
		WithDeviceAttempts(cfg.DeviceAttempts).
		Build()
	if err != nil {
		return err
	}

	busyTracer := tracing.NewBusyTimeTracer(app.Kernel, nil)
	tracing.CollectSlices(app.Kernel, busyTracer)

	var recorder datarecording.DataRecorder
	if cfg.TracePath != "" {
		recorder = datarecording.New(
			strings.TrimSuffix(cfg.TracePath, ".sqlite3"))
		tracing.CollectSlices(app.Kernel, tracing.NewDBTracer(recorder))
	}

	wallSource := rtk.NewWallSource(app.Kernel)

	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if runFlags.duration > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, runFlags.duration)
		defer timeoutCancel()
	}

	if runFlags.monitor {
		m := monitoring.NewMonitor().WithPortNumber(cfg.MonitorPort)
		m.RegisterKernel(app.Kernel)
		m.RegisterWallSource(wallSource)
		m.RegisterFrameSnapshotter(fb)

		if runFlags.duration > 0 {
			bar := m.CreateProgressBar("run",
				uint64(app.Kernel.TimeBase().TicksIn(runFlags.duration)))
			app.Kernel.AcceptHook(&progressHook{bar: bar})
		}

		m.StartServer()
	}

	if err := app.Kernel.Start(); err != nil {
		return err
	}

	err = wallSource.Run(ctx)
	if err != nil &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	busyTracer.TerminateAllSlices()
	reportBusyTimes(logger, app.Kernel, busyTracer)

	if recorder != nil {
		if err := recorder.Close(); err != nil {
			return err
		}
	}

	if runFlags.snapshotPath != "" {
		if err := writeSnapshot(fb, runFlags.snapshotPath); err != nil {
			return err
		}
	}

	return nil
}

func applyFlagOverrides(cfg *Config) {
	if runFlags.tracePath != "" {
		cfg.TracePath = runFlags.tracePath
	}

	if runFlags.monitorPort != 0 {
		cfg.MonitorPort = runFlags.monitorPort
	}

	if runFlags.snapshotPath != "" {
		cfg.SnapshotPath = runFlags.snapshotPath
	}

	if cfg.SnapshotPath != "" {
		runFlags.snapshotPath = cfg.SnapshotPath
	}
}

func reportBusyTimes(
	logger *log.Logger,
	k *rtk.Kernel,
	tracer *tracing.BusyTimeTracer,
) {
	elapsed := k.CurrentTick()
	if elapsed == 0 {
		return
	}

	for _, s := range k.TaskStatuses() {
		busy := tracer.BusyTime(s.ID)
		name := accel.TaskNames[s.ID]

		logger.Printf("%s: %d/%d ticks on core (%.1f%%)",
			name, busy, elapsed, 100*float64(busy)/float64(elapsed))
	}
}

func writeSnapshot(fb *halsim.Framebuffer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(os.Stderr, "Frame snapshot written to %s\n", path)

	return fb.EncodePNG(f)
}
