package main

import (
	"os"

	yaml "github.com/goccy/go-yaml"
)

// WaveConfig tunes the simulated accelerometer.
type WaveConfig struct {
	Seed         int64   `yaml:"seed"`
	Amplitude    float64 `yaml:"amplitude"`
	Gravity      int     `yaml:"gravity"`
	Noise        int     `yaml:"noise"`
	OpenFailures int     `yaml:"open_failures"`
	InitFailures int     `yaml:"init_failures"`
}

// Config mirrors the run config file.
type Config struct {
	TickMS         int        `yaml:"tick_ms"`         // 20 (by default)
	PeriodTicks    int        `yaml:"period_ticks"`    // 50 (by default)
	HeartbeatTicks int        `yaml:"heartbeat_ticks"` // 50 (by default)
	DeviceAttempts int        `yaml:"device_attempts"` // 10 (by default)
	MonitorPort    int        `yaml:"monitor_port"`
	TracePath      string     `yaml:"trace_path"`
	SnapshotPath   string     `yaml:"snapshot_path"`
	Wave           WaveConfig `yaml:"wave"`
}

// If the config file is not found, we use default values.
func defaultConfig() Config {
	return Config{
		TickMS:         20,
		PeriodTicks:    50,
		HeartbeatTicks: 50,
		DeviceAttempts: 10,
		Wave: WaveConfig{
			Amplitude: 40,
			Gravity:   250,
		},
	}
}

// LoadConfig reads YAML and overrides defaults; empty path = defaults only.
func LoadConfig(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		return cfg
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, &cfg)

	// sanity clamps
	if cfg.TickMS <= 0 {
		cfg.TickMS = 20
	}
	if cfg.PeriodTicks <= 0 {
		cfg.PeriodTicks = 50
	}
	if cfg.HeartbeatTicks < 0 {
		cfg.HeartbeatTicks = 0
	}
	if cfg.DeviceAttempts <= 0 {
		cfg.DeviceAttempts = 10
	}
	if cfg.Wave.Noise < 0 {
		cfg.Wave.Noise = 0
	}

	return cfg
}
