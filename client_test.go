package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestPollClientRendersSnapshot(t *testing.T) {
	ts := httptest.NewServer(testServer(newTestAssembler(fakeTemperature{}), "s3cret").Handler())
	defer ts.Close()

	var out bytes.Buffer
	client := newPollClient(ts.URL+"/api/system", "s3cret", time.Second, &out, discardLogger())
	client.poll(context.Background())

	if client.last == nil {
		t.Fatal("last snapshot not recorded")
	}
	if client.last.CPUTemp != nil {
		t.Errorf("cpuTemp = %v, want nil", *client.last.CPUTemp)
	}
	for _, want := range []string{
		"pi (linux/arm64)",
		"CPU temperature: N/A",
		"cpu0 10.0%  cpu1 0.0%",
		"Memory: 12.00 / 16.00 GB used, 4.00 GB free",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestPollClientKeepsLastSnapshotOnFailure(t *testing.T) {
	var fail atomic.Bool
	assembler := newTestAssembler(fakeTemperature{value: celsius(50)})
	ts := httptest.NewServer(testServer(snapshotFunc(func(ctx context.Context) (SystemSnapshot, error) {
		if fail.Load() {
			return SystemSnapshot{}, errors.New("boom")
		}
		return assembler.Assemble(ctx)
	}), "").Handler())
	defer ts.Close()

	var out bytes.Buffer
	client := newPollClient(ts.URL+"/api/system", "", time.Second, &out, discardLogger())
	client.poll(context.Background())
	first := client.last
	if first == nil {
		t.Fatal("first poll did not record a snapshot")
	}

	fail.Store(true)
	out.Reset()
	client.poll(context.Background())

	if client.last != first {
		t.Error("failed poll replaced the last snapshot")
	}
	if got := strings.TrimSpace(out.String()); got != "error: Failed to get system information" {
		t.Errorf("output = %q", got)
	}
}

func TestPollClientUnauthorized(t *testing.T) {
	ts := httptest.NewServer(testServer(newTestAssembler(fakeTemperature{}), "s3cret").Handler())
	defer ts.Close()

	var out bytes.Buffer
	client := newPollClient(ts.URL+"/api/system", "wrong", time.Second, &out, discardLogger())
	client.poll(context.Background())

	if client.last != nil {
		t.Error("unauthorized poll recorded a snapshot")
	}
	if !strings.Contains(out.String(), "error: Unauthorized") {
		t.Errorf("output = %q", out.String())
	}
}

func TestPollClientRunStopsOnCancel(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, newSystemResponse(SystemSnapshot{Identity: testIdentity}))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	client := newPollClient(ts.URL, "", 10*time.Millisecond, &bytes.Buffer{}, discardLogger())
	go func() { done <- client.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for hits.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if hits.Load() < 2 {
		t.Errorf("server saw %d polls, want at least 2", hits.Load())
	}
}

func TestRenderSnapshotTemperature(t *testing.T) {
	var out bytes.Buffer
	renderSnapshot(&out, &SystemResponse{CPUTemp: celsius(48.3)})
	if !strings.Contains(out.String(), "CPU temperature: 48.3°C") {
		t.Errorf("output = %q", out.String())
	}
}
