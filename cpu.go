package main

import (
	"context"
	"log/slog"
	"math"
)

// CounterReader returns the current per-core tick counters, index = core id.
// A core whose counters could not be parsed is returned as a zero sample.
type CounterReader interface {
	ReadCores(ctx context.Context) ([]CoreSample, error)
}

// CPUProbe derives per-core utilization from a single counter read. The
// result approximates average utilization since boot, not a delta.
type CPUProbe struct {
	reader CounterReader
	cores  int
	logger *slog.Logger
}

func newCPUProbe(reader CounterReader, cores int, logger *slog.Logger) *CPUProbe {
	return &CPUProbe{reader: reader, cores: cores, logger: logger}
}

// Sample never fails. When the counters cannot be read at all, every core
// is reported as 0.0 so the slice length stays equal to the core count.
func (p *CPUProbe) Sample(ctx context.Context) CPUUtilization {
	samples, err := p.reader.ReadCores(ctx)
	if err != nil {
		p.logger.Debug("reading cpu counters", "error", err)
		samples = nil
	}

	n := len(samples)
	if n < p.cores {
		n = p.cores
	}
	usage := make(CPUUtilization, n)
	for i, s := range samples {
		usage[i] = coreUtilization(s)
	}
	return usage
}

// coreUtilization returns 100 - 100*idle/total, clamped to [0, 100] and
// rounded to one decimal. A zero total yields 0.
func coreUtilization(s CoreSample) float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	pct := 100 - 100*float64(s.Idle)/float64(total)
	pct = math.Max(0, math.Min(100, pct))
	return math.Round(pct*10) / 10
}
