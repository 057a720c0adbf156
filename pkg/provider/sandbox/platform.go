package sandbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/morezero/snapkit-bridge/pkg/capability"
)

// PlatformVersion reports the OS the bridge runs on, e.g. "Ubuntu 22.04".
func (p *Provider) PlatformVersion(ctx context.Context) (string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", capability.NewError(capability.ReasonUnknown, fmt.Sprintf("read host info: %v", err), nil)
	}
	return formatPlatform(info), nil
}

// SDKVersion reports the configured sandbox SDK version.
func (p *Provider) SDKVersion(context.Context) (string, error) {
	return p.opts.SDKVersion, nil
}

func formatPlatform(info *host.InfoStat) string {
	name, version := info.Platform, info.PlatformVersion
	if name == "" {
		name, version = info.OS, info.KernelVersion
	}
	if name == "" {
		return "unknown"
	}
	name = strings.ToUpper(name[:1]) + name[1:]
	return strings.TrimSpace(name + " " + version)
}
