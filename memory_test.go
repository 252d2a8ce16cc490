package main

import (
	"context"
	"errors"
	"math"
	"runtime"
	"testing"

	"github.com/shirou/gopsutil/v4/mem"
)

func TestMemoryProbeSixteenGigabytes(t *testing.T) {
	probe := newMemoryProbe(fakeMemory{total: 16 << 30, free: 4 << 30})

	got, err := probe.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample() error: %v", err)
	}
	want := MemoryUsage{Total: 16, Used: 12, Free: 4}
	if got != want {
		t.Errorf("Sample() = %+v, want %+v", got, want)
	}
}

func TestMemoryUsageInvariant(t *testing.T) {
	totals := []uint64{0, 1, 1023, 1 << 30, 3*(1<<30) + 12345, 1 << 40, 17179869184}
	for _, total := range totals {
		for _, free := range []uint64{0, 1, total / 3, total / 2, total - total/7, total} {
			if free > total {
				continue
			}
			m := newMemoryUsage(total, free)
			if m.Total < 0 || m.Used < 0 || m.Free < 0 {
				t.Fatalf("newMemoryUsage(%d, %d) = %+v has a negative field", total, free, m)
			}
			diff := math.Abs(m.Used + m.Free - m.Total)
			if diff > 1e-6*m.Total+1e-12 {
				t.Fatalf("newMemoryUsage(%d, %d): used+free = %v, total = %v", total, free, m.Used+m.Free, m.Total)
			}
		}
	}
}

func TestMemoryUsageClampsFree(t *testing.T) {
	m := newMemoryUsage(1<<30, 2<<30)
	if m.Used != 0 || m.Free != 1 || m.Total != 1 {
		t.Errorf("newMemoryUsage(1GB, 2GB) = %+v, want free clamped to total", m)
	}
}

func TestMemoryProbeError(t *testing.T) {
	cause := errors.New("sysinfo: operation not permitted")
	_, err := newMemoryProbe(fakeMemory{err: cause}).Sample(context.Background())
	if !errors.Is(err, cause) {
		t.Errorf("Sample() error = %v, want wrapped %v", err, cause)
	}
}

func TestVirtualMemoryTotals(t *testing.T) {
	if _, _, err := virtualMemoryTotals(&mem.VirtualMemoryStat{Free: 1 << 30}); err == nil {
		t.Error("zero total: expected error")
	}
	if _, _, err := virtualMemoryTotals(nil); err == nil {
		t.Error("nil stat: expected error")
	}

	total, free, err := virtualMemoryTotals(&mem.VirtualMemoryStat{Total: 16 << 30, Available: 5 << 30, Free: 1 << 30})
	if err != nil || total != 16<<30 || free != 5<<30 {
		t.Errorf("virtualMemoryTotals() = %d, %d, %v; want available reported as free", total, free, err)
	}
}

func TestHostMemory(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("reads the real host")
	}
	total, free, err := hostMemory{}.ReadMemory(context.Background())
	if err != nil {
		t.Fatalf("ReadMemory() error: %v", err)
	}
	if total == 0 || free > total {
		t.Errorf("ReadMemory() = %d total, %d free", total, free)
	}
}
