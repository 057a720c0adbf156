// Package snapkit implements the SnapKit command catalog on top of the
// dispatcher and the capability interfaces.
package snapkit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/morezero/snapkit-bridge/pkg/capability"
	"github.com/morezero/snapkit-bridge/pkg/commsutil"
	"github.com/morezero/snapkit-bridge/pkg/dispatcher"
	"github.com/morezero/snapkit-bridge/pkg/events"
	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
)

const logPrefix = "snapkit:service"

// Options configures a Service.
type Options struct {
	// Channel names the bridge channel in published events.
	Channel string
	// Publisher receives session and media events. Nil disables them.
	Publisher events.EventPublisher
	// Platform answers getPlatformVersion and sdkVersion without a host.
	// When nil the bound host's capability set is used.
	Platform capability.PlatformInfo
	// Stat checks media files before any provider call. Defaults to os.Stat.
	Stat func(name string) (fs.FileInfo, error)
}

// Service owns the per-host capability set and the command handlers.
type Service struct {
	sets      *lifecycle.Scoped[*capability.Set]
	platform  capability.PlatformInfo
	publisher events.EventPublisher
	channel   string
	stat      func(name string) (fs.FileInfo, error)
}

// NewService creates a Service whose capability set is built by factory
// against the host bound to binder and rebuilt after every rebinding.
func NewService(binder *lifecycle.Binder, factory capability.Factory, opts Options) *Service {
	pub := opts.Publisher
	if pub == nil {
		pub = &events.NoOpPublisher{}
	}
	stat := opts.Stat
	if stat == nil {
		stat = os.Stat
	}
	channel := opts.Channel
	if channel == "" {
		channel = commsutil.DefaultChannel
	}
	return &Service{
		sets:      lifecycle.NewScoped("capability set", binder, lifecycle.BuildFunc[*capability.Set](factory)),
		platform:  opts.Platform,
		publisher: pub,
		channel:   channel,
		stat:      stat,
	}
}

// Routes returns the registration table, legacy aliases included.
func (s *Service) Routes() map[string]dispatcher.Route {
	host := func(h dispatcher.HandlerFunc) dispatcher.Route {
		return dispatcher.Route{Handler: h, RequiresHost: true}
	}
	free := func(h dispatcher.HandlerFunc) dispatcher.Route {
		return dispatcher.Route{Handler: h}
	}

	routes := map[string]dispatcher.Route{
		MethodIsInstalled:        host(s.isInstalled),
		MethodIsLoggedIn:         host(s.isLoggedIn),
		MethodLogin:              host(s.login),
		MethodLogout:             host(s.logout),
		MethodGetCurrentUser:     host(s.getCurrentUser),
		MethodGetAccessToken:     host(s.getAccessToken),
		MethodSendMedia:          host(s.sendMedia),
		MethodVerifyPhoneNumber:  host(s.verifyPhoneNumber),
		MethodGetPlatformVersion: free(s.getPlatformVersion),
		MethodSDKVersion:         free(s.sdkVersion),
		MethodShareToCamera:      host(s.share(shareToCamera)),
		MethodShareWithPhoto:     host(s.share(shareWithPhoto)),
		MethodShareWithVideo:     host(s.share(shareWithVideo)),
	}
	for alias, target := range map[string]string{
		AliasIsSnapchatInstalled: MethodIsInstalled,
		AliasCallLogin:           MethodLogin,
		AliasCallLogout:          MethodLogout,
		AliasGetUser:             MethodGetCurrentUser,
		AliasVerifyNumber:        MethodVerifyPhoneNumber,
	} {
		routes[alias] = routes[target]
	}
	return routes
}

// capabilities returns the set for the bound host. ErrNotBound passes through
// so the dispatcher reports it as a missing host context.
func (s *Service) capabilities(ctx context.Context, code string) (*capability.Set, error) {
	set, err := s.sets.Get(ctx)
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotBound) {
			return nil, err
		}
		return nil, capabilityFailure(code, err)
	}
	return set, nil
}

// capabilityFailure forwards a provider error under the handler's code.
func capabilityFailure(code string, err error) error {
	capErr := capability.AsError(err)
	return dispatcher.NewCommandError(code, capErr.Message, capErr)
}

func argumentFailure(code string, err error) error {
	return dispatcher.ArgumentError(code, err.Error())
}

func (s *Service) publish(ctx context.Context, kind string, host lifecycle.Host, detail map[string]interface{}) {
	event := &events.BridgeEvent{
		Kind:      kind,
		Channel:   s.channel,
		Detail:    detail,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if host != nil {
		event.HostID = host.ID()
		event.Platform = host.Platform()
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish %s: %v", logPrefix, kind, err))
	}
}
