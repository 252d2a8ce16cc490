package main

import (
	"math"
	"strconv"
	"time"
)

const snapshotErrorMessage = "Failed to get system information"

// SystemResponse is the JSON body of GET /api/system.
type SystemResponse struct {
	OS          OSInfo         `json:"os"`
	CPUTemp     *float64       `json:"cpuTemp"`
	CPUUsage    []string       `json:"cpuUsage"`
	MemoryUsage MemoryResponse `json:"memoryUsage"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

type OSInfo struct {
	Hostname string `json:"hostname"`
	Platform string `json:"platform"`
	Arch     string `json:"arch"`
}

// MemoryResponse values are gigabytes rounded to two decimals.
type MemoryResponse struct {
	Total float64 `json:"total"`
	Used  float64 `json:"used"`
	Free  float64 `json:"free"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func newSystemResponse(s SystemSnapshot) SystemResponse {
	usage := make([]string, len(s.CPUUtilization))
	for i, pct := range s.CPUUtilization {
		usage[i] = strconv.FormatFloat(pct, 'f', 1, 64)
	}

	resp := SystemResponse{
		OS: OSInfo{
			Hostname: s.Identity.Hostname,
			Platform: s.Identity.Platform,
			Arch:     s.Identity.Architecture,
		},
		CPUTemp:  s.Temperature,
		CPUUsage: usage,
		MemoryUsage: MemoryResponse{
			Total: roundTo(s.Memory.Total, 2),
			Used:  roundTo(s.Memory.Used, 2),
			Free:  roundTo(s.Memory.Free, 2),
		},
	}
	if !s.Timestamp.IsZero() {
		resp.Timestamp = s.Timestamp.UTC().Format(time.RFC3339)
	}
	return resp
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
