package remote

import (
	"context"
	"fmt"

	"github.com/morezero/snapkit-bridge/pkg/capability"
	"github.com/morezero/snapkit-bridge/pkg/commsutil"
	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
)

// Native operation names. They match the bridge command names.
const (
	OpIsInstalled        = "isInstalled"
	OpIsLoggedIn         = "isLoggedIn"
	OpLogin              = "login"
	OpLogout             = "logout"
	OpGetAccessToken     = "getAccessToken"
	OpGetCurrentUser     = "getCurrentUser"
	OpSendMedia          = "sendMedia"
	OpVerifyPhoneNumber  = "verifyPhoneNumber"
	OpGetPlatformVersion = "getPlatformVersion"
	OpSDKVersion         = "sdkVersion"
)

// NewFactory returns a capability.Factory whose sets forward every call through inv.
func NewFactory(inv capability.Invoker) capability.Factory {
	return func(_ context.Context, host lifecycle.Host) (*capability.Set, error) {
		a := &adapter{inv: inv, host: host}
		return &capability.Set{
			Installs: a,
			Auth:     a,
			Profiles: a,
			Media:    a,
			Phones:   a,
			Platform: a,
		}, nil
	}
}

// adapter implements the typed capabilities over the generic Invoker.
// host is the host the set was built for; PlatformInfo calls use it.
type adapter struct {
	inv  capability.Invoker
	host lifecycle.Host
}

func (a *adapter) IsInstalled(ctx context.Context, host lifecycle.Host) (bool, error) {
	return a.boolean(ctx, OpIsInstalled, host)
}

func (a *adapter) IsLoggedIn(ctx context.Context, host lifecycle.Host) (bool, error) {
	return a.boolean(ctx, OpIsLoggedIn, host)
}

func (a *adapter) Login(ctx context.Context, host lifecycle.Host) error {
	_, err := a.inv.Invoke(ctx, OpLogin, nil, host)
	return err
}

func (a *adapter) Logout(ctx context.Context, host lifecycle.Host) error {
	_, err := a.inv.Invoke(ctx, OpLogout, nil, host)
	return err
}

func (a *adapter) AccessToken(ctx context.Context, host lifecycle.Host) (string, error) {
	return a.str(ctx, OpGetAccessToken, nil, host)
}

func (a *adapter) CurrentUser(ctx context.Context, host lifecycle.Host) (*capability.Profile, error) {
	payload, err := a.inv.Invoke(ctx, OpGetCurrentUser, nil, host)
	if err != nil {
		return nil, err
	}
	var p capability.Profile
	if err := convert(payload, &p); err != nil {
		return nil, malformed(OpGetCurrentUser, err)
	}
	return &p, nil
}

func (a *adapter) Send(ctx context.Context, host lifecycle.Host, share *capability.Share) error {
	args := map[string]interface{}{"mediaType": string(share.MediaType)}
	if share.Path != "" {
		args["path"] = share.Path
	}
	if share.Caption != "" {
		args["caption"] = share.Caption
	}
	if share.AttachmentURL != "" {
		args["attachmentUrl"] = share.AttachmentURL
	}
	if s := share.Sticker; s != nil {
		args["sticker"] = map[string]interface{}{
			"imagePath": s.ImagePath,
			"width":     s.Width,
			"height":    s.Height,
			"offsetX":   s.OffsetX,
			"offsetY":   s.OffsetY,
			"rotation":  s.Rotation,
		}
	}
	_, err := a.inv.Invoke(ctx, OpSendMedia, args, host)
	return err
}

// Verify accepts either a [phoneId, verifyId] pair or an object.
func (a *adapter) Verify(ctx context.Context, host lifecycle.Host, phoneNumber, region string) (*capability.Verification, error) {
	payload, err := a.inv.Invoke(ctx, OpVerifyPhoneNumber,
		map[string]interface{}{"phoneNumber": phoneNumber, "region": region}, host)
	if err != nil {
		return nil, err
	}
	if pair, ok := payload.([]interface{}); ok {
		if len(pair) != 2 {
			return nil, malformed(OpVerifyPhoneNumber, fmt.Errorf("expected 2 ids, got %d", len(pair)))
		}
		phoneID, ok1 := pair[0].(string)
		verifyID, ok2 := pair[1].(string)
		if !ok1 || !ok2 {
			return nil, malformed(OpVerifyPhoneNumber, fmt.Errorf("ids must be strings"))
		}
		return &capability.Verification{PhoneID: phoneID, VerifyID: verifyID}, nil
	}
	var v capability.Verification
	if err := convert(payload, &v); err != nil {
		return nil, malformed(OpVerifyPhoneNumber, err)
	}
	return &v, nil
}

func (a *adapter) PlatformVersion(ctx context.Context) (string, error) {
	return a.str(ctx, OpGetPlatformVersion, nil, a.host)
}

func (a *adapter) SDKVersion(ctx context.Context) (string, error) {
	return a.str(ctx, OpSDKVersion, nil, a.host)
}

func (a *adapter) boolean(ctx context.Context, op string, host lifecycle.Host) (bool, error) {
	payload, err := a.inv.Invoke(ctx, op, nil, host)
	if err != nil {
		return false, err
	}
	b, ok := payload.(bool)
	if !ok {
		return false, malformed(op, fmt.Errorf("expected boolean, got %T", payload))
	}
	return b, nil
}

func (a *adapter) str(ctx context.Context, op string, args map[string]interface{}, host lifecycle.Host) (string, error) {
	payload, err := a.inv.Invoke(ctx, op, args, host)
	if err != nil {
		return "", err
	}
	s, ok := payload.(string)
	if !ok {
		return "", malformed(op, fmt.Errorf("expected string, got %T", payload))
	}
	return s, nil
}

// convert re-decodes a generic payload into a typed value.
func convert(payload interface{}, out interface{}) error {
	data, err := commsutil.EncodePayload(payload)
	if err != nil {
		return err
	}
	return commsutil.DecodePayload(data, out)
}

func malformed(op string, err error) error {
	return capability.NewError(capability.ReasonUnknown, fmt.Sprintf("malformed %s payload: %v", op, err), nil)
}
