package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRunner returns canned output keyed by the full command line.
type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	f.mu.Lock()
	f.calls = append(f.calls, line)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.errs[line]; ok {
		return nil, err
	}
	if out, ok := f.outputs[line]; ok {
		return []byte(out), nil
	}
	return nil, errors.New("exec: \"" + name + "\": executable file not found in $PATH")
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeCounters struct {
	samples []CoreSample
	err     error
}

func (f fakeCounters) ReadCores(context.Context) ([]CoreSample, error) {
	return f.samples, f.err
}

type fakeMemory struct {
	total, free uint64
	err         error
}

func (f fakeMemory) ReadMemory(context.Context) (uint64, uint64, error) {
	return f.total, f.free, f.err
}

type fakeTemperature struct {
	value *float64
}

func (f fakeTemperature) Probe(context.Context) *float64 { return f.value }

type failingIdentity struct{ err error }

func (f failingIdentity) Identity(context.Context) (HostIdentity, error) {
	return HostIdentity{}, f.err
}

func celsius(v float64) *float64 { return &v }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

var testIdentity = HostIdentity{Hostname: "pi", Platform: "linux", Architecture: "arm64"}

// newTestAssembler wires fakes with a 16 GB host, 4 GB free, two cores.
func newTestAssembler(temperature TemperatureProbe) *Assembler {
	return newAssembler(
		staticIdentity(testIdentity),
		newCPUProbe(fakeCounters{samples: []CoreSample{{User: 100, Idle: 900}, {}}}, 2, discardLogger()),
		newMemoryProbe(fakeMemory{total: 16 << 30, free: 4 << 30}),
		temperature,
		0,
		discardLogger(),
	)
}
