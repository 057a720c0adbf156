package snapkit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/morezero/snapkit-bridge/pkg/capability"
	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
)

// fakeProvider implements every capability and counts provider calls.
type fakeProvider struct {
	calls atomic.Int32

	mu        sync.Mutex
	loggedIn  bool
	installed bool
	loginErr  error
	loginGate chan struct{}
	shares    []*capability.Share
	lastHost  string
}

func (f *fakeProvider) touch(host lifecycle.Host) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if host != nil {
		f.lastHost = host.ID()
	}
}

func (f *fakeProvider) IsInstalled(_ context.Context, host lifecycle.Host) (bool, error) {
	f.touch(host)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.installed, nil
}

func (f *fakeProvider) IsLoggedIn(_ context.Context, host lifecycle.Host) (bool, error) {
	f.touch(host)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loggedIn, nil
}

func (f *fakeProvider) Login(ctx context.Context, host lifecycle.Host) error {
	f.touch(host)
	if f.loginGate != nil {
		select {
		case <-f.loginGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return f.loginErr
	}
	f.loggedIn = true
	return nil
}

func (f *fakeProvider) Logout(_ context.Context, host lifecycle.Host) error {
	f.touch(host)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loggedIn {
		return capability.NewError(capability.ReasonNotLoggedIn, "User Not Logged In", nil)
	}
	f.loggedIn = false
	return nil
}

func (f *fakeProvider) AccessToken(_ context.Context, host lifecycle.Host) (string, error) {
	f.touch(host)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loggedIn {
		return "", capability.NewError(capability.ReasonNotLoggedIn, "User Not Logged In", nil)
	}
	return "token-123", nil
}

func (f *fakeProvider) CurrentUser(_ context.Context, host lifecycle.Host) (*capability.Profile, error) {
	f.touch(host)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loggedIn {
		return nil, capability.NewError(capability.ReasonNotLoggedIn, "User Not Logged In", nil)
	}
	url := "https://sdk.bitmoji.com/me.png"
	return &capability.Profile{ExternalID: "ext-1", DisplayName: "Ada", BitmojiAvatarURL: &url}, nil
}

func (f *fakeProvider) Send(_ context.Context, host lifecycle.Host, share *capability.Share) error {
	f.touch(host)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shares = append(f.shares, share)
	return nil
}

func (f *fakeProvider) Verify(_ context.Context, host lifecycle.Host, phone, region string) (*capability.Verification, error) {
	f.touch(host)
	return &capability.Verification{PhoneID: region + ":" + phone, VerifyID: "v-1"}, nil
}

func (f *fakeProvider) PlatformVersion(context.Context) (string, error) {
	f.calls.Add(1)
	return "Android 14", nil
}

func (f *fakeProvider) SDKVersion(context.Context) (string, error) {
	f.calls.Add(1)
	return "2.1.0", nil
}

func (f *fakeProvider) factory(builds *atomic.Int32) capability.Factory {
	return func(context.Context, lifecycle.Host) (*capability.Set, error) {
		if builds != nil {
			builds.Add(1)
		}
		return &capability.Set{
			Installs: f,
			Auth:     f,
			Profiles: f,
			Media:    f,
			Phones:   f,
			Platform: f,
		}, nil
	}
}
