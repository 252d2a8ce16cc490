package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// IdentitySource supplies the host identity for a snapshot.
type IdentitySource interface {
	Identity(ctx context.Context) (HostIdentity, error)
}

// staticIdentity is resolved once at startup.
type staticIdentity HostIdentity

func (s staticIdentity) Identity(context.Context) (HostIdentity, error) {
	return HostIdentity(s), nil
}

// detectIdentity queries the hostname through gopsutil. Platform and
// architecture use Go's names ("linux", "amd64").
func detectIdentity(ctx context.Context) (HostIdentity, error) {
	return identityFromInfo(host.InfoWithContext(ctx))
}

// identityFromInfo accepts partial info: gopsutil returns warnings alongside
// usable fields, and only the hostname matters.
func identityFromInfo(info *host.InfoStat, err error) (HostIdentity, error) {
	if info == nil || info.Hostname == "" {
		if err == nil {
			err = errors.New("empty hostname")
		}
		return HostIdentity{}, fmt.Errorf("host info: %w", err)
	}
	return HostIdentity{
		Hostname:     info.Hostname,
		Platform:     runtime.GOOS,
		Architecture: runtime.GOARCH,
	}, nil
}
