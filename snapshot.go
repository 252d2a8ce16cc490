package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// errSnapshotUnavailable marks failures that abort a whole snapshot: the
// host identity or memory totals could not be read.
var errSnapshotUnavailable = errors.New("system snapshot unavailable")

// Assembler builds one SystemSnapshot per call. It holds no mutable state,
// so concurrent calls are independent.
type Assembler struct {
	identity    IdentitySource
	cpu         *CPUProbe
	memory      *MemoryProbe
	temperature TemperatureProbe
	budget      time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

func newAssembler(identity IdentitySource, cpu *CPUProbe, memory *MemoryProbe, temperature TemperatureProbe, budget time.Duration, logger *slog.Logger) *Assembler {
	return &Assembler{
		identity:    identity,
		cpu:         cpu,
		memory:      memory,
		temperature: temperature,
		budget:      budget,
		now:         time.Now,
		logger:      logger,
	}
}

// Assemble samples the host. Identity, CPU and memory are read first; the
// temperature probe runs last because it may spawn a subprocess. The whole
// call is bounded by the assembler's budget and by ctx; a cancelled context
// only ever costs the temperature reading.
func (a *Assembler) Assemble(ctx context.Context) (SystemSnapshot, error) {
	if a.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.budget)
		defer cancel()
	}

	identity, err := a.identity.Identity(ctx)
	if err != nil {
		return SystemSnapshot{}, fmt.Errorf("%w: identity: %w", errSnapshotUnavailable, err)
	}

	usage := a.cpu.Sample(ctx)

	memory, err := a.memory.Sample(ctx)
	if err != nil {
		return SystemSnapshot{}, fmt.Errorf("%w: %w", errSnapshotUnavailable, err)
	}

	temperature := a.temperature.Probe(ctx)
	if temperature == nil {
		a.logger.Debug("cpu temperature unavailable", "platform", identity.Platform)
	}

	return SystemSnapshot{
		Identity:       identity,
		Temperature:    temperature,
		CPUUtilization: usage,
		Memory:         memory,
		Timestamp:      a.now(),
	}, nil
}
