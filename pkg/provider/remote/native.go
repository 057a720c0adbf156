package remote

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/snapkit-bridge/pkg/bridge"
	"github.com/morezero/snapkit-bridge/pkg/capability"
	"github.com/morezero/snapkit-bridge/pkg/commsutil"
	"github.com/morezero/snapkit-bridge/pkg/dispatcher"
	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
)

const nativeLogPrefix = "remote:native"

// NativeOptions configures Serve.
type NativeOptions struct {
	SubjectPrefix string
	Host          lifecycle.HostInfo
}

// Serve exposes set as the native endpoint of opts.Host, so an Invoker can
// reach it. Capabilities missing from set answer as unimplemented. Close the
// returned channel to stop serving.
func Serve(ctx context.Context, nc *comms.Conn, set *capability.Set, opts NativeOptions) (*bridge.Channel, error) {
	if opts.Host.ID() == "" {
		return nil, fmt.Errorf("%s - a host id is required", nativeLogPrefix)
	}
	prefix := opts.SubjectPrefix
	if prefix == "" {
		prefix = commsutil.DefaultNativePrefix
	}

	ch := bridge.NewChannel(nc, dispatcher.NewDispatcher(nativeRoutes(set, opts.Host), nil), bridge.ChannelOptions{
		Name:          opts.Host.ID(),
		SubjectPrefix: prefix,
	})
	if err := ch.Open(ctx); err != nil {
		return nil, err
	}
	slog.Info(fmt.Sprintf("%s - Serving native capabilities for host %s on %s", nativeLogPrefix, opts.Host.ID(), ch.Subject()))
	return ch, nil
}

func nativeRoutes(set *capability.Set, host lifecycle.Host) map[string]dispatcher.Route {
	routes := map[string]dispatcher.Route{}
	add := func(op string, fn func(ctx context.Context, args dispatcher.Arguments) (interface{}, error)) {
		routes[op] = dispatcher.Route{Handler: func(ctx context.Context, call *dispatcher.Call) (interface{}, error) {
			result, err := fn(ctx, call.Args)
			if err != nil {
				capErr := capability.AsError(err)
				return nil, dispatcher.NewCommandError(capErr.Code, capErr.Message, capErr.Details)
			}
			return result, nil
		}}
	}

	if set.Installs != nil {
		add(OpIsInstalled, func(ctx context.Context, _ dispatcher.Arguments) (interface{}, error) {
			return set.Installs.IsInstalled(ctx, host)
		})
	}
	if set.Auth != nil {
		add(OpIsLoggedIn, func(ctx context.Context, _ dispatcher.Arguments) (interface{}, error) {
			return set.Auth.IsLoggedIn(ctx, host)
		})
		add(OpLogin, func(ctx context.Context, _ dispatcher.Arguments) (interface{}, error) {
			return nil, set.Auth.Login(ctx, host)
		})
		add(OpLogout, func(ctx context.Context, _ dispatcher.Arguments) (interface{}, error) {
			return nil, set.Auth.Logout(ctx, host)
		})
		add(OpGetAccessToken, func(ctx context.Context, _ dispatcher.Arguments) (interface{}, error) {
			return set.Auth.AccessToken(ctx, host)
		})
	}
	if set.Profiles != nil {
		add(OpGetCurrentUser, func(ctx context.Context, _ dispatcher.Arguments) (interface{}, error) {
			return set.Profiles.CurrentUser(ctx, host)
		})
	}
	if set.Media != nil {
		add(OpSendMedia, func(ctx context.Context, args dispatcher.Arguments) (interface{}, error) {
			var share capability.Share
			if err := convert(map[string]interface{}(args), &share); err != nil {
				return nil, capability.NewError(capability.ReasonUnknown, fmt.Sprintf("decode share: %v", err), nil)
			}
			return nil, set.Media.Send(ctx, host, &share)
		})
	}
	if set.Phones != nil {
		add(OpVerifyPhoneNumber, func(ctx context.Context, args dispatcher.Arguments) (interface{}, error) {
			phone, _ := args.String("phoneNumber")
			region, _ := args.String("region")
			v, err := set.Phones.Verify(ctx, host, phone, region)
			if err != nil {
				return nil, err
			}
			return []interface{}{v.PhoneID, v.VerifyID}, nil
		})
	}
	if set.Platform != nil {
		add(OpGetPlatformVersion, func(ctx context.Context, _ dispatcher.Arguments) (interface{}, error) {
			return set.Platform.PlatformVersion(ctx)
		})
		add(OpSDKVersion, func(ctx context.Context, _ dispatcher.Arguments) (interface{}, error) {
			return set.Platform.SDKVersion(ctx)
		})
	}
	return routes
}
