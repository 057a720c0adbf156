package snapkit

import (
	"context"

	"github.com/morezero/snapkit-bridge/pkg/capability"
	"github.com/morezero/snapkit-bridge/pkg/dispatcher"
	"github.com/morezero/snapkit-bridge/pkg/events"
)

func (s *Service) isInstalled(ctx context.Context, call *dispatcher.Call) (interface{}, error) {
	set, err := s.capabilities(ctx, CodeIsInstalled)
	if err != nil {
		return nil, err
	}
	if set.Installs == nil {
		return nil, capabilityFailure(CodeIsInstalled, capability.Unsupported(capability.KindInstallChecker))
	}
	installed, err := set.Installs.IsInstalled(ctx, call.Host)
	if err != nil {
		return nil, capabilityFailure(CodeIsInstalled, err)
	}
	return installed, nil
}

func (s *Service) isLoggedIn(ctx context.Context, call *dispatcher.Call) (interface{}, error) {
	auth, err := s.authenticator(ctx, CodeIsLoggedIn)
	if err != nil {
		return nil, err
	}
	loggedIn, err := auth.IsLoggedIn(ctx, call.Host)
	if err != nil {
		return nil, capabilityFailure(CodeIsLoggedIn, err)
	}
	return loggedIn, nil
}

// login replies through the call's own continuation, so concurrent logins
// each get their reply.
func (s *Service) login(ctx context.Context, call *dispatcher.Call) (interface{}, error) {
	auth, err := s.authenticator(ctx, CodeLogin)
	if err != nil {
		return nil, err
	}
	if err := auth.Login(ctx, call.Host); err != nil {
		return nil, capabilityFailure(CodeLogin, err)
	}
	s.publish(ctx, events.KindSessionLogin, call.Host, nil)
	return LoginSuccess, nil
}

func (s *Service) logout(ctx context.Context, call *dispatcher.Call) (interface{}, error) {
	auth, err := s.authenticator(ctx, CodeLogout)
	if err != nil {
		return nil, err
	}
	if err := auth.Logout(ctx, call.Host); err != nil {
		return nil, capabilityFailure(CodeLogout, err)
	}
	s.publish(ctx, events.KindSessionLogout, call.Host, nil)
	return LogoutSuccess, nil
}

func (s *Service) getAccessToken(ctx context.Context, call *dispatcher.Call) (interface{}, error) {
	auth, err := s.authenticator(ctx, CodeGetAccessToken)
	if err != nil {
		return nil, err
	}
	token, err := auth.AccessToken(ctx, call.Host)
	if err != nil {
		return nil, capabilityFailure(CodeGetAccessToken, err)
	}
	return token, nil
}

func (s *Service) authenticator(ctx context.Context, code string) (capability.Authenticator, error) {
	set, err := s.capabilities(ctx, code)
	if err != nil {
		return nil, err
	}
	if set.Auth == nil {
		return nil, capabilityFailure(code, capability.Unsupported(capability.KindAuthenticator))
	}
	return set.Auth, nil
}

func (s *Service) getCurrentUser(ctx context.Context, call *dispatcher.Call) (interface{}, error) {
	set, err := s.capabilities(ctx, CodeGetUser)
	if err != nil {
		return nil, err
	}
	if set.Profiles == nil {
		return nil, capabilityFailure(CodeGetUser, capability.Unsupported(capability.KindProfileFetcher))
	}
	profile, err := set.Profiles.CurrentUser(ctx, call.Host)
	if err != nil {
		return nil, capabilityFailure(CodeGetUser, err)
	}
	return profileMap(profile), nil
}

// profileMap keeps every key present, null when the provider has no value.
func profileMap(p *capability.Profile) map[string]interface{} {
	opt := func(v *string) interface{} {
		if v == nil {
			return nil
		}
		return *v
	}
	return map[string]interface{}{
		"externalId":         p.ExternalID,
		"displayName":        p.DisplayName,
		"bitmojiAvatarId":    opt(p.BitmojiAvatarID),
		"bitmoji2DAvatarUrl": opt(p.BitmojiAvatarURL),
		"errors":             opt(p.Errors),
	}
}

func (s *Service) sendMedia(ctx context.Context, call *dispatcher.Call) (interface{}, error) {
	share, err := s.parseShare(call.Args)
	if err != nil {
		return nil, err
	}

	if err := s.send(ctx, call, share, CodeSendMedia); err != nil {
		return nil, err
	}
	return SendMediaSuccess, nil
}

// send hands share to the media sender, reporting failures under code.
func (s *Service) send(ctx context.Context, call *dispatcher.Call, share *capability.Share, code string) error {
	set, err := s.capabilities(ctx, code)
	if err != nil {
		return err
	}
	if set.Media == nil {
		return capabilityFailure(code, capability.Unsupported(capability.KindMediaSender))
	}
	if err := set.Media.Send(ctx, call.Host, share); err != nil {
		return capabilityFailure(code, err)
	}
	s.publish(ctx, events.KindMediaSent, call.Host, map[string]interface{}{
		"command":    call.Method,
		"mediaType":  string(share.MediaType),
		"hasSticker": share.Sticker != nil,
	})
	return nil
}

func (s *Service) verifyPhoneNumber(ctx context.Context, call *dispatcher.Call) (interface{}, error) {
	if err := validate(verifyPhoneNumberSchema, call.Args); err != nil {
		return nil, argumentFailure(CodeVerifyNumber, err)
	}
	phone, _ := call.Args.String("phoneNumber")
	region, _ := call.Args.String("region")

	set, err := s.capabilities(ctx, CodeVerifyNumber)
	if err != nil {
		return nil, err
	}
	if set.Phones == nil {
		return nil, capabilityFailure(CodeVerifyNumber, capability.Unsupported(capability.KindPhoneVerifier))
	}
	v, err := set.Phones.Verify(ctx, call.Host, phone, region)
	if err != nil {
		return nil, capabilityFailure(CodeVerifyNumber, err)
	}
	return []interface{}{v.PhoneID, v.VerifyID}, nil
}

func (s *Service) getPlatformVersion(ctx context.Context, _ *dispatcher.Call) (interface{}, error) {
	info, err := s.platformInfo(ctx, CodePlatformVersion)
	if err != nil {
		return nil, err
	}
	version, err := info.PlatformVersion(ctx)
	if err != nil {
		return nil, capabilityFailure(CodePlatformVersion, err)
	}
	return version, nil
}

func (s *Service) sdkVersion(ctx context.Context, _ *dispatcher.Call) (interface{}, error) {
	info, err := s.platformInfo(ctx, CodePlatformVersion)
	if err != nil {
		return nil, err
	}
	version, err := info.SDKVersion(ctx)
	if err != nil {
		return nil, capabilityFailure(CodePlatformVersion, err)
	}
	return version, nil
}

// platformInfo prefers the host-independent provider and falls back to the
// bound host's set.
func (s *Service) platformInfo(ctx context.Context, code string) (capability.PlatformInfo, error) {
	if s.platform != nil {
		return s.platform, nil
	}
	set, err := s.capabilities(ctx, code)
	if err != nil {
		return nil, err
	}
	if set.Platform == nil {
		return nil, capabilityFailure(code, capability.Unsupported(capability.KindPlatformInfo))
	}
	return set.Platform, nil
}
