// Package capability defines the provider interfaces the bridge invokes.
// Each interface is normally backed by a vendor SDK on the native host;
// the dispatcher only ever sees these interfaces and Error triples.
package capability

import (
	"context"

	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
)

// Kind tags a capability within a Set.
type Kind string

const (
	KindInstallChecker Kind = "installChecker"
	KindAuthenticator  Kind = "authenticator"
	KindProfileFetcher Kind = "profileFetcher"
	KindMediaSender    Kind = "mediaSender"
	KindPhoneVerifier  Kind = "phoneVerifier"
	KindPlatformInfo   Kind = "platformInfo"
)

// InstallChecker reports whether the vendor app is installed on the host.
type InstallChecker interface {
	IsInstalled(ctx context.Context, host lifecycle.Host) (bool, error)
}

// Authenticator drives the vendor login flow.
type Authenticator interface {
	IsLoggedIn(ctx context.Context, host lifecycle.Host) (bool, error)
	Login(ctx context.Context, host lifecycle.Host) error
	Logout(ctx context.Context, host lifecycle.Host) error
	AccessToken(ctx context.Context, host lifecycle.Host) (string, error)
}

// ProfileFetcher fetches the logged-in user's profile.
type ProfileFetcher interface {
	CurrentUser(ctx context.Context, host lifecycle.Host) (*Profile, error)
}

// MediaSender hands content over to the vendor app.
type MediaSender interface {
	Send(ctx context.Context, host lifecycle.Host, share *Share) error
}

// PhoneVerifier verifies a phone number against the vendor account.
type PhoneVerifier interface {
	Verify(ctx context.Context, host lifecycle.Host, phoneNumber, region string) (*Verification, error)
}

// PlatformInfo reports host and SDK versions.
type PlatformInfo interface {
	PlatformVersion(ctx context.Context) (string, error)
	SDKVersion(ctx context.Context) (string, error)
}

// Set bundles one implementation per capability for a single host.
// Nil members are unsupported by the provider.
type Set struct {
	Installs InstallChecker
	Auth     Authenticator
	Profiles ProfileFetcher
	Media    MediaSender
	Phones   PhoneVerifier
	Platform PlatformInfo

	closers []func() error
}

// OnClose registers cleanup run when the Set is invalidated.
func (s *Set) OnClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Close runs registered cleanups and returns the first error.
func (s *Set) Close() error {
	var first error
	for _, fn := range s.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

// Factory builds a Set against a host context.
type Factory func(ctx context.Context, host lifecycle.Host) (*Set, error)

// Invoker is the generic outbound contract: run one named operation against
// a native subsystem and return its payload or an *Error.
type Invoker interface {
	Invoke(ctx context.Context, operation string, arguments map[string]interface{}, host lifecycle.Host) (interface{}, error)
}

// Profile is the user data returned by ProfileFetcher.
type Profile struct {
	ExternalID       string  `json:"externalId"`
	DisplayName      string  `json:"displayName"`
	BitmojiAvatarID  *string `json:"bitmojiAvatarId"`
	BitmojiAvatarURL *string `json:"bitmoji2DAvatarUrl"`
	// Errors carries a partial-error description when some fields could not be fetched.
	Errors *string `json:"errors"`
}

// MediaType is the kind of media in a Share.
type MediaType string

const (
	MediaPhoto MediaType = "PHOTO"
	MediaVideo MediaType = "VIDEO"
	MediaNone  MediaType = "NONE"
)

// Share is one content hand-off.
type Share struct {
	MediaType     MediaType `json:"mediaType"`
	Path          string    `json:"path,omitempty"`
	Caption       string    `json:"caption,omitempty"`
	AttachmentURL string    `json:"attachmentUrl,omitempty"`
	Sticker       *Sticker  `json:"sticker,omitempty"`
}

// Sticker is a decorative overlay on shared media.
type Sticker struct {
	ImagePath string  `json:"imagePath"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	OffsetX   float64 `json:"offsetX"`
	OffsetY   float64 `json:"offsetY"`
	Rotation  float64 `json:"rotation"`
}

// Verification is the result of a phone verification.
type Verification struct {
	PhoneID  string `json:"phoneId"`
	VerifyID string `json:"verifyId"`
}
