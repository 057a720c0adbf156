package server

import (
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/snapkit-bridge/internal/config"
	"github.com/morezero/snapkit-bridge/pkg/capability"
	"github.com/morezero/snapkit-bridge/pkg/commsutil"
	"github.com/morezero/snapkit-bridge/pkg/db"
	"github.com/morezero/snapkit-bridge/pkg/provider/remote"
	"github.com/morezero/snapkit-bridge/pkg/provider/sandbox"
)

const providerLogPrefix = "server:provider"

// provider is the configured capability source.
type provider struct {
	factory capability.Factory
	// platform answers version queries without a host; nil for remote hosts.
	platform capability.PlatformInfo
}

func buildProvider(cfg *config.Config, nc *comms.Conn, ledger *db.Ledger) (*provider, error) {
	switch cfg.Provider {
	case config.ProviderSandbox:
		opts := sandbox.Options{
			KeyringService: cfg.KeyringService,
			DisplayName:    cfg.SandboxDisplayName,
			MaxPhotoBytes:  cfg.SandboxMaxPhotoBytes,
			MaxVideoBytes:  cfg.SandboxMaxVideoBytes,
		}
		// A nil *db.Ledger must not become a non-nil interface.
		if ledger != nil {
			opts.Ledger = ledger
		}
		sb := sandbox.New(opts)
		slog.Info(fmt.Sprintf("%s - Using sandbox provider (keyring service %s)", providerLogPrefix, cfg.KeyringService))
		return &provider{factory: sb.Factory(), platform: sb}, nil

	case config.ProviderRemote:
		codec, err := commsutil.CodecFor(cfg.BridgeCodec)
		if err != nil {
			return nil, fmt.Errorf("%s - %w", providerLogPrefix, err)
		}
		inv := remote.NewInvoker(nc, remote.InvokerOptions{
			SubjectPrefix: cfg.NativeSubjectPrefix,
			Timeout:       cfg.ProviderTimeout,
			Codec:         codec,
		})
		slog.Info(fmt.Sprintf("%s - Using remote provider on %s.<hostId> (timeout %s)", providerLogPrefix, cfg.NativeSubjectPrefix, cfg.ProviderTimeout))
		return &provider{factory: remote.NewFactory(inv)}, nil

	default:
		return nil, fmt.Errorf("%s - unknown provider %q", providerLogPrefix, cfg.Provider)
	}
}
