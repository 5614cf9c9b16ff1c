// Package accel is the demo application: five tasks sampling, filtering, and
// plotting accelerometer data on a 320x240 canvas, scheduled by the kernel at
// a 20 ms time base.
package accel

import "github.com/sarchlab/cadence/rtk"

// The task set is closed: these five identities are the only tasks the demo
// registers.
const (
	IdleTask    rtk.TaskID = 0
	TimerTask   rtk.TaskID = 1
	SamplerTask rtk.TaskID = 2
	FilterTask  rtk.TaskID = 3
	PlotterTask rtk.TaskID = 4
)

// TaskNames maps the demo task IDs to display names.
var TaskNames = map[rtk.TaskID]string{
	IdleTask:    "idle",
	TimerTask:   "timer",
	SamplerTask: "sampler",
	FilterTask:  "filter",
	PlotterTask: "plotter",
}

// SharedDataSem guards the shared accelerometer sample.
const SharedDataSem rtk.SemID = 1

// Task priorities. The idle task runs only when nothing else is ready.
const (
	IdlePriority   rtk.Priority = 0
	WorkerPriority rtk.Priority = 1
)
