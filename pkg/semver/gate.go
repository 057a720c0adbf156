// Package semver gates capability sets on the vendor SDK version a host reports.
package semver

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"

	"github.com/morezero/snapkit-bridge/pkg/capability"
	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
)

const logPrefix = "semver:gate"

// ReasonSDKIncompatible is the provider error code for a rejected SDK version.
const ReasonSDKIncompatible = "SDK_INCOMPATIBLE"

var majorOnlyRegex = regexp.MustCompile(`^\d+$`)

// IsMajorOnly checks if a range is a major-only specifier (e.g., "2").
func IsMajorOnly(rangeStr string) bool {
	return majorOnlyRegex.MatchString(rangeStr)
}

// Gate checks SDK versions against a constraint. A nil Gate accepts everything.
type Gate struct {
	raw        string
	constraint *masterminds.Constraints
}

// NewGate parses constraint. Major-only values ("2") mean "2.x". An empty
// constraint returns a nil Gate.
func NewGate(constraint string) (*Gate, error) {
	raw := strings.TrimSpace(constraint)
	if raw == "" {
		return nil, nil
	}
	expr := raw
	if IsMajorOnly(raw) {
		expr = raw + ".x"
	}
	c, err := masterminds.NewConstraint(expr)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid SDK version constraint %q: %w", logPrefix, raw, err)
	}
	return &Gate{raw: raw, constraint: c}, nil
}

// String returns the constraint as configured.
func (g *Gate) String() string {
	if g == nil {
		return "*"
	}
	return g.raw
}

// Check returns a capability error when version does not satisfy the gate.
func (g *Gate) Check(version string) error {
	if g == nil {
		return nil
	}
	v, err := masterminds.NewVersion(strings.TrimPrefix(strings.TrimSpace(version), "v"))
	if err != nil {
		return capability.NewError(ReasonSDKIncompatible,
			fmt.Sprintf("SDK version %q is not a semantic version", version),
			map[string]interface{}{"version": version, "constraint": g.raw})
	}
	if !g.constraint.Check(v) {
		return capability.NewError(ReasonSDKIncompatible,
			fmt.Sprintf("SDK version %s does not satisfy %s", v, g.raw),
			map[string]interface{}{"version": v.String(), "constraint": g.raw})
	}
	return nil
}

// Guard wraps factory so a set whose SDK version fails the gate is closed
// and rejected. Sets without PlatformInfo pass unchecked.
func (g *Gate) Guard(factory capability.Factory) capability.Factory {
	if g == nil {
		return factory
	}
	return func(ctx context.Context, host lifecycle.Host) (*capability.Set, error) {
		set, err := factory(ctx, host)
		if err != nil {
			return nil, err
		}
		if set.Platform == nil {
			return set, nil
		}
		version, err := set.Platform.SDKVersion(ctx)
		if err == nil {
			err = g.Check(version)
		}
		if err != nil {
			if cerr := set.Close(); cerr != nil {
				slog.Warn(fmt.Sprintf("%s - closing rejected set: %v", logPrefix, cerr))
			}
			return nil, err
		}
		slog.Debug(fmt.Sprintf("%s - host %s SDK %s satisfies %s", logPrefix, host.ID(), version, g.raw))
		return set, nil
	}
}
