package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v4/mem"
)

const bytesPerGB = 1 << 30

// MemoryReader returns host total and free memory in bytes.
type MemoryReader interface {
	ReadMemory(ctx context.Context) (total, free uint64, err error)
}

// MemoryProbe has no "unavailable" state: a reader error is returned to the
// assembler, which fails the whole snapshot.
type MemoryProbe struct {
	reader MemoryReader
}

func newMemoryProbe(reader MemoryReader) *MemoryProbe {
	return &MemoryProbe{reader: reader}
}

func (p *MemoryProbe) Sample(ctx context.Context) (MemoryUsage, error) {
	total, free, err := p.reader.ReadMemory(ctx)
	if err != nil {
		return MemoryUsage{}, fmt.Errorf("reading host memory: %w", err)
	}
	return newMemoryUsage(total, free), nil
}

// newMemoryUsage converts byte counts to gigabytes. free is clamped to
// total so used never goes negative.
func newMemoryUsage(total, free uint64) MemoryUsage {
	if free > total {
		free = total
	}
	return MemoryUsage{
		Total: float64(total) / bytesPerGB,
		Used:  float64(total-free) / bytesPerGB,
		Free:  float64(free) / bytesPerGB,
	}
}

// hostMemory reads memory through gopsutil. Available is reported as free:
// it is what the kernel can hand out without swapping, page cache included.
type hostMemory struct{}

func (hostMemory) ReadMemory(ctx context.Context) (uint64, uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return virtualMemoryTotals(vm)
}

func virtualMemoryTotals(vm *mem.VirtualMemoryStat) (uint64, uint64, error) {
	if vm == nil || vm.Total == 0 {
		return 0, 0, errors.New("host reported zero total memory")
	}
	return vm.Total, vm.Available, nil
}
