package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/zalando/go-keyring"

	"github.com/morezero/snapkit-bridge/pkg/capability"
	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
)

const sessionLogPrefix = "sandbox:session"

var notLoggedIn = capability.NewError(capability.ReasonNotLoggedIn, "User Not Logged In", nil)

// IsLoggedIn reports whether the host has a token in the keyring.
func (p *Provider) IsLoggedIn(_ context.Context, host lifecycle.Host) (bool, error) {
	_, err := keyring.Get(p.opts.KeyringService, host.ID())
	if errors.Is(err, keyring.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storageError("read session", err)
	}
	return true, nil
}

// Login issues a fresh token for the host.
func (p *Provider) Login(_ context.Context, host lifecycle.Host) error {
	token := uuid.NewString()
	if err := keyring.Set(p.opts.KeyringService, host.ID(), token); err != nil {
		return storageError("store session", err)
	}
	slog.Info(fmt.Sprintf("%s - Host %s logged in", sessionLogPrefix, host.ID()))
	return nil
}

// Logout removes the host's token.
func (p *Provider) Logout(_ context.Context, host lifecycle.Host) error {
	err := keyring.Delete(p.opts.KeyringService, host.ID())
	if errors.Is(err, keyring.ErrNotFound) {
		return notLoggedIn
	}
	if err != nil {
		return storageError("delete session", err)
	}
	slog.Info(fmt.Sprintf("%s - Host %s logged out", sessionLogPrefix, host.ID()))
	return nil
}

// AccessToken returns the host's token.
func (p *Provider) AccessToken(_ context.Context, host lifecycle.Host) (string, error) {
	token, err := keyring.Get(p.opts.KeyringService, host.ID())
	if errors.Is(err, keyring.ErrNotFound) {
		return "", notLoggedIn
	}
	if err != nil {
		return "", storageError("read session", err)
	}
	return token, nil
}

// CurrentUser returns a profile derived from the host id. Bitmoji is never
// linked in the sandbox, which is reported as a partial error.
func (p *Provider) CurrentUser(ctx context.Context, host lifecycle.Host) (*capability.Profile, error) {
	loggedIn, err := p.IsLoggedIn(ctx, host)
	if err != nil {
		return nil, err
	}
	if !loggedIn {
		return nil, notLoggedIn
	}
	partial := "bitmoji: no avatar linked in sandbox"
	return &capability.Profile{
		ExternalID:  uuid.NewSHA1(uuid.NameSpaceURL, []byte("snapkit-sandbox/"+host.ID())).String(),
		DisplayName: p.opts.DisplayName,
		Errors:      &partial,
	}, nil
}

func storageError(op string, err error) error {
	return capability.NewError(capability.ReasonStorage, fmt.Sprintf("%s: %v", op, err), nil)
}
