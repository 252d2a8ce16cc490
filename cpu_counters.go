package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
)

// USER_HZ on every platform gopsutil reports times for. Only used to turn
// gopsutil's seconds back into integer ticks; the ratio is scale free.
const ticksPerSecond = 100

// Upper bound on a parsed core id, guards the slice growth below.
const maxCoreID = 1 << 13

func newCounterReader(goos string) CounterReader {
	if goos == "linux" {
		return procStatReader{path: "/proc/stat"}
	}
	return gopsutilCounterReader{}
}

// procStatReader parses the per-core "cpuN" lines of /proc/stat:
//
//	cpu0 user nice system idle iowait irq softirq steal guest guest_nice
//
// guest and guest_nice are already accounted in user/nice and are ignored.
type procStatReader struct {
	path string
}

func (r procStatReader) ReadCores(ctx context.Context) ([]CoreSample, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var samples []CoreSample
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0] == "cpu" || !strings.HasPrefix(fields[0], "cpu") {
			continue
		}
		id, err := strconv.Atoi(fields[0][len("cpu"):])
		if err != nil || id < 0 || id > maxCoreID {
			continue
		}
		for len(samples) <= id {
			samples = append(samples, CoreSample{})
		}
		samples[id] = parseCoreFields(fields[1:])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.path, err)
	}
	if len(samples) == 0 {
		return nil, errors.New("no per-core lines in " + r.path)
	}
	return samples, nil
}

// parseCoreFields needs at least user, nice, system and idle. Older kernels
// omit the trailing columns, which count as zero. Any unparseable value
// discards the whole core.
func parseCoreFields(fields []string) CoreSample {
	if len(fields) < 4 {
		return CoreSample{}
	}
	var values [8]uint64
	for i := 0; i < len(values) && i < len(fields); i++ {
		v, err := strconv.ParseUint(fields[i], 10, 64)
		if err != nil {
			return CoreSample{}
		}
		values[i] = v
	}
	return CoreSample{
		User:    values[0],
		Nice:    values[1],
		System:  values[2],
		Idle:    values[3],
		Iowait:  values[4],
		Irq:     values[5],
		Softirq: values[6],
		Steal:   values[7],
	}
}

// gopsutilCounterReader covers hosts without /proc/stat (darwin, BSDs,
// windows).
type gopsutilCounterReader struct{}

func (gopsutilCounterReader) ReadCores(ctx context.Context) ([]CoreSample, error) {
	times, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("per-cpu times: %w", err)
	}
	samples := make([]CoreSample, len(times))
	for i, t := range times {
		samples[i] = CoreSample{
			User:    toTicks(t.User),
			Nice:    toTicks(t.Nice),
			System:  toTicks(t.System),
			Idle:    toTicks(t.Idle),
			Iowait:  toTicks(t.Iowait),
			Irq:     toTicks(t.Irq),
			Softirq: toTicks(t.Softirq),
			Steal:   toTicks(t.Steal),
		}
	}
	return samples, nil
}

func toTicks(seconds float64) uint64 {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	return uint64(math.Round(seconds * ticksPerSecond))
}

// hostCoreCount is the logical core count used to keep utilization indices
// aligned when some cores are missing from the counter read.
func hostCoreCount(ctx context.Context) int {
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}
