package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// pollClient fetches /api/system on a fixed interval. A successful poll
// replaces the last snapshot wholesale; a failed one prints the server's
// message and waits for the next tick, with no backoff.
type pollClient struct {
	url      string
	token    string
	interval time.Duration
	http     *http.Client
	out      io.Writer
	logger   *slog.Logger

	last *SystemResponse
}

func newPollClient(url, token string, interval time.Duration, out io.Writer, logger *slog.Logger) *pollClient {
	return &pollClient{
		url:      url,
		token:    token,
		interval: interval,
		http:     &http.Client{Timeout: interval},
		out:      out,
		logger:   logger,
	}
}

func (c *pollClient) Run(ctx context.Context) error {
	c.poll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.poll(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *pollClient) poll(ctx context.Context) {
	snapshot, err := c.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Debug("poll failed", "url", c.url, "error", err)
		fmt.Fprintf(c.out, "error: %v\n", err)
		return
	}
	c.last = snapshot
	renderSnapshot(c.out, snapshot)
}

func (c *pollClient) fetch(ctx context.Context) (*SystemResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return nil, errors.New(e.Error)
		}
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var snapshot SystemResponse
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snapshot, nil
}

func renderSnapshot(w io.Writer, s *SystemResponse) {
	temp := "N/A"
	if s.CPUTemp != nil {
		temp = fmt.Sprintf("%.1f°C", *s.CPUTemp)
	}

	cores := make([]string, len(s.CPUUsage))
	for i, u := range s.CPUUsage {
		cores[i] = fmt.Sprintf("cpu%d %s%%", i, u)
	}

	fmt.Fprintf(w, "%s (%s/%s)\n", s.OS.Hostname, s.OS.Platform, s.OS.Arch)
	fmt.Fprintf(w, "  CPU temperature: %s\n", temp)
	fmt.Fprintf(w, "  CPU usage: %s\n", strings.Join(cores, "  "))
	fmt.Fprintf(w, "  Memory: %.2f / %.2f GB used, %.2f GB free\n",
		s.MemoryUsage.Used, s.MemoryUsage.Total, s.MemoryUsage.Free)
}
