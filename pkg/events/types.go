// Package events defines bridge event types and publisher interfaces.
package events

// Event kinds published by the bridge.
const (
	KindHostAttached   = "lifecycle.attached"
	KindHostDetached   = "lifecycle.detached"
	KindHostReattached = "lifecycle.reattached"
	KindSessionLogin   = "session.login"
	KindSessionLogout  = "session.logout"
	KindMediaSent      = "media.sent"
)

// BridgeEvent is emitted when the bridge's host binding or the user's session changes.
type BridgeEvent struct {
	Kind       string                 `json:"kind"`
	Channel    string                 `json:"channel"`
	HostID     string                 `json:"hostId,omitempty"`
	Platform   string                 `json:"platform,omitempty"`
	Generation uint64                 `json:"generation,omitempty"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
	Timestamp  string                 `json:"timestamp"`
}
