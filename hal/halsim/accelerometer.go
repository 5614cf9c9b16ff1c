package halsim

import (
	"math"
	"math/rand"
	"sync"

	"github.com/sarchlab/cadence/hal"
)

// Accelerometer produces a deterministic seeded waveform: gravity on the Z
// axis plus a sinusoid and a little noise. A configurable number of warm-up
// calls fail before the device reports ready, which exercises the startup
// retry loop.
type Accelerometer struct {
	mu sync.Mutex

	rng  *rand.Rand
	step int

	openFailures int
	initFailures int
	opened       bool
	inited       bool

	amplitude float64
	gravity   int16
	noise     int16
}

// AccelerometerConfig tunes the simulated device.
type AccelerometerConfig struct {
	Seed         int64
	OpenFailures int
	InitFailures int
	Amplitude    float64
	Gravity      int16
	Noise        int16
}

// NewAccelerometer creates a simulated accelerometer.
func NewAccelerometer(cfg AccelerometerConfig) *Accelerometer {
	if cfg.Amplitude == 0 {
		cfg.Amplitude = 40
	}
	if cfg.Gravity == 0 {
		cfg.Gravity = 250
	}

	return &Accelerometer{
		rng:          rand.New(rand.NewSource(cfg.Seed)),
		openFailures: cfg.OpenFailures,
		initFailures: cfg.InitFailures,
		amplitude:    cfg.Amplitude,
		gravity:      cfg.Gravity,
		noise:        cfg.Noise,
	}
}

// Open reports the device present. The first OpenFailures calls fail.
func (a *Accelerometer) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.openFailures > 0 {
		a.openFailures--
		return hal.ErrNotReady
	}

	a.opened = true
	return nil
}

// Init configures the device. The first InitFailures calls fail, as does
// initializing before a successful Open.
func (a *Accelerometer) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.opened || a.initFailures > 0 {
		if a.initFailures > 0 {
			a.initFailures--
		}
		return hal.ErrNotReady
	}

	a.inited = true
	return nil
}

// Read returns the next waveform sample.
func (a *Accelerometer) Read() (hal.Sample, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.inited {
		return hal.Sample{}, hal.ErrNotReady
	}

	phase := float64(a.step) * 2 * math.Pi / 20
	a.step++

	return hal.Sample{
		X: a.jitter(int16(a.amplitude * math.Sin(phase))),
		Y: a.jitter(int16(a.amplitude * math.Cos(phase))),
		Z: a.jitter(a.gravity + int16(a.amplitude*math.Sin(phase/2))),
	}, nil
}

func (a *Accelerometer) jitter(v int16) int16 {
	if a.noise == 0 {
		return v
	}
	return v + int16(a.rng.Intn(int(a.noise)*2+1)) - a.noise
}
