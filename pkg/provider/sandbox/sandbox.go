// Package sandbox is a self-contained capability provider for development and CI.
// Sessions live in the OS keyring, shares and verifications optionally in the ledger.
package sandbox

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/morezero/snapkit-bridge/pkg/capability"
	"github.com/morezero/snapkit-bridge/pkg/db"
	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
)

const logPrefix = "sandbox:provider"

// Defaults used when Options leaves a field empty.
const (
	DefaultKeyringService = "snapkit-bridge"
	DefaultDisplayName    = "Sandbox User"
	DefaultSDKVersion     = "2.5.0"
	DefaultMaxPhotoBytes  = 15 << 20
	DefaultMaxVideoBytes  = 300 << 20
	MaxStickerBytes       = 1 << 20
	// MaxVerifications bounds the in-memory verifications kept without a ledger.
	MaxVerifications = 1024
)

// Ledger persists what the sandbox shares and verifies. *db.Ledger satisfies it.
type Ledger interface {
	RecordShare(ctx context.Context, rec *db.ShareRecord) (*db.ShareRecord, error)
	RecordVerification(ctx context.Context, rec *db.VerificationRecord) (*db.VerificationRecord, error)
}

// Options configures the sandbox provider.
type Options struct {
	KeyringService string
	DisplayName    string
	SDKVersion     string
	MaxPhotoBytes  int64
	MaxVideoBytes  int64
	// Ledger is optional; without it verifications are kept in memory.
	Ledger Ledger
	Stat   func(name string) (fs.FileInfo, error)
}

func (o Options) withDefaults() Options {
	if o.KeyringService == "" {
		o.KeyringService = DefaultKeyringService
	}
	if o.DisplayName == "" {
		o.DisplayName = DefaultDisplayName
	}
	if o.SDKVersion == "" {
		o.SDKVersion = DefaultSDKVersion
	}
	if o.MaxPhotoBytes <= 0 {
		o.MaxPhotoBytes = DefaultMaxPhotoBytes
	}
	if o.MaxVideoBytes <= 0 {
		o.MaxVideoBytes = DefaultMaxVideoBytes
	}
	if o.Stat == nil {
		o.Stat = os.Stat
	}
	return o
}

// Provider implements every capability against local resources.
type Provider struct {
	opts Options

	verifications *lru.Cache[string, *capability.Verification]
}

// New creates a sandbox Provider.
func New(opts Options) *Provider {
	cache, err := lru.New[string, *capability.Verification](MaxVerifications)
	if err != nil {
		panic(err)
	}
	return &Provider{opts: opts.withDefaults(), verifications: cache}
}

// Factory returns a capability.Factory that hands out the provider for every host.
func (p *Provider) Factory() capability.Factory {
	return func(_ context.Context, host lifecycle.Host) (*capability.Set, error) {
		slog.Info(fmt.Sprintf("%s - Building sandbox capabilities for host %s", logPrefix, host.ID()))
		set := &capability.Set{
			Installs: p,
			Auth:     p,
			Profiles: p,
			Media:    p,
			Phones:   p,
			Platform: p,
		}
		set.OnClose(func() error {
			slog.Debug(fmt.Sprintf("%s - Released sandbox capabilities for host %s", logPrefix, host.ID()))
			return nil
		})
		return set, nil
	}
}

// IsInstalled always reports the vendor app as present.
func (p *Provider) IsInstalled(context.Context, lifecycle.Host) (bool, error) {
	return true, nil
}
