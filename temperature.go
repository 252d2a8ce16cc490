package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/shirou/gopsutil/v4/sensors"
)

// TemperatureProbe returns the CPU die temperature in Celsius, or nil when
// no source on this platform produced a reading. It never returns an error.
type TemperatureProbe interface {
	Probe(ctx context.Context) *float64
}

// newTemperatureProbe picks the strategy for the detected platform once;
// callers keep the returned probe for the lifetime of the process.
func newTemperatureProbe(goos string, cfg TemperatureConfig, runner CommandRunner, logger *slog.Logger) TemperatureProbe {
	if cfg.Disable {
		return unsupportedTemperature{}
	}
	switch goos {
	case "darwin":
		return &darwinTemperature{runner: runner, sudo: cfg.Sudo, logger: logger}
	case "linux":
		return &linuxTemperature{
			zonePath: cfg.ThermalZone,
			runner:   runner,
			hwmon:    sensors.TemperaturesWithContext,
			logger:   logger,
		}
	default:
		return unsupportedTemperature{}
	}
}

// temperatureSource is one attempt in a platform's priority order.
type temperatureSource struct {
	name string
	read func(ctx context.Context) (float64, error)
}

// firstReading tries sources in order and returns the first success. Every
// failure is logged at debug level and swallowed.
func firstReading(ctx context.Context, logger *slog.Logger, platform string, sources []temperatureSource) *float64 {
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			logger.Debug("temperature probe abandoned", "platform", platform, "source", src.name, "error", err)
			return nil
		}
		v, err := readSource(ctx, src)
		if err != nil {
			logger.Debug("temperature source unavailable", "platform", platform, "source", src.name, "error", err)
			continue
		}
		return &v
	}
	return nil
}

func readSource(ctx context.Context, src temperatureSource) (v float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	v, err = src.read(ctx)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite reading %v", v)
	}
	return v, nil
}

// darwinTemperature reads the SMC die temperature through powermetrics,
// which requires root. With sudo enabled it runs "sudo -n" so a missing
// sudoers entry fails fast instead of prompting.
type darwinTemperature struct {
	runner CommandRunner
	sudo   bool
	logger *slog.Logger
}

func (d *darwinTemperature) Probe(ctx context.Context) *float64 {
	return firstReading(ctx, d.logger, "darwin", []temperatureSource{
		{name: "powermetrics", read: d.powermetrics},
	})
}

func (d *darwinTemperature) powermetrics(ctx context.Context) (float64, error) {
	args := []string{"powermetrics", "--samplers", "smc", "-i1", "-n1"}
	name := args[0]
	if d.sudo {
		name, args = "sudo", append([]string{"-n"}, args...)
	} else {
		args = args[1:]
	}
	out, err := d.runner.Run(ctx, name, args...)
	if err != nil {
		return 0, err
	}
	return parsePowermetrics(out)
}

// linuxTemperature tries the thermal zone file, lm-sensors, the Raspberry Pi
// firmware tool and finally hwmon through gopsutil.
type linuxTemperature struct {
	zonePath string
	runner   CommandRunner
	hwmon    func(ctx context.Context) ([]sensors.TemperatureStat, error)
	logger   *slog.Logger
}

func (l *linuxTemperature) Probe(ctx context.Context) *float64 {
	return firstReading(ctx, l.logger, "linux", []temperatureSource{
		{name: "thermal_zone", read: l.thermalZone},
		{name: "sensors", read: l.lmSensors},
		{name: "vcgencmd", read: l.vcgencmd},
		{name: "hwmon", read: l.hwmonSensors},
	})
}

func (l *linuxTemperature) thermalZone(ctx context.Context) (float64, error) {
	data, err := os.ReadFile(l.zonePath)
	if err != nil {
		return 0, err
	}
	return parseThermalZone(data)
}

func (l *linuxTemperature) lmSensors(ctx context.Context) (float64, error) {
	out, err := l.runner.Run(ctx, "sensors", "-j")
	if err != nil {
		return 0, err
	}
	return parseSensorsJSON(out)
}

func (l *linuxTemperature) vcgencmd(ctx context.Context) (float64, error) {
	out, err := l.runner.Run(ctx, "vcgencmd", "measure_temp")
	if err != nil {
		return 0, err
	}
	return parseVcgencmd(out)
}

func (l *linuxTemperature) hwmonSensors(ctx context.Context) (float64, error) {
	if l.hwmon == nil {
		return 0, errNoTemperature
	}
	stats, err := l.hwmon(ctx)
	if len(stats) == 0 {
		if err != nil {
			return 0, err
		}
		return 0, errNoTemperature
	}
	return pickHwmonTemperature(stats)
}

type unsupportedTemperature struct{}

func (unsupportedTemperature) Probe(context.Context) *float64 { return nil }
