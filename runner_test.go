package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExecRunnerOutput(t *testing.T) {
	out, err := newExecRunner(time.Second).Run(context.Background(), "sh", "-c", "echo 48312")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if string(out) != "48312\n" {
		t.Errorf("Run() = %q, want %q", out, "48312\n")
	}
}

func TestExecRunnerFailures(t *testing.T) {
	runner := newExecRunner(time.Second)

	if _, err := runner.Run(context.Background(), "definitely-not-a-sensor-tool"); err == nil {
		t.Error("Run() of a missing binary: expected error")
	}

	_, err := runner.Run(context.Background(), "sh", "-c", "echo 'No sensors found!' >&2; exit 1")
	if err == nil || !strings.Contains(err.Error(), "No sensors found!") {
		t.Errorf("Run() error = %v, want stderr included", err)
	}
}

func TestExecRunnerTimeout(t *testing.T) {
	start := time.Now()
	_, err := newExecRunner(50*time.Millisecond).Run(context.Background(), "sleep", "5")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Run() took %v after a 50ms timeout", elapsed)
	}
}

func TestExecRunnerHonoursCallerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newExecRunner(0).Run(ctx, "sh", "-c", "echo hi"); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context canceled", err)
	}
}
