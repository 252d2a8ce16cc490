package main

import "time"

// CoreSample holds the cumulative tick counters of one CPU core, in the
// order the kernel reports them in /proc/stat.
type CoreSample struct {
	User    uint64
	Nice    uint64
	System  uint64
	Idle    uint64
	Iowait  uint64
	Irq     uint64
	Softirq uint64
	Steal   uint64
}

// Total sums every counted tick category.
func (s CoreSample) Total() uint64 {
	return s.User + s.Nice + s.System + s.Idle + s.Iowait + s.Irq + s.Softirq + s.Steal
}

// CPUUtilization is one percentage per core, indexed by core id.
type CPUUtilization []float64

// MemoryUsage is host memory in gigabytes (2^30 bytes), full precision.
type MemoryUsage struct {
	Total float64
	Used  float64
	Free  float64
}

// HostIdentity is constant for the lifetime of the process.
type HostIdentity struct {
	Hostname     string
	Platform     string
	Architecture string
}

// SystemSnapshot is one point-in-time bundle of host metrics. A new value is
// built for every request and never modified afterwards.
type SystemSnapshot struct {
	Identity       HostIdentity
	Temperature    *float64 // nil when no sensor could be read
	CPUUtilization CPUUtilization
	Memory         MemoryUsage
	Timestamp      time.Time
}
