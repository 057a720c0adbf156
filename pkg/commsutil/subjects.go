package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	DefaultChannel       = "snapkit"
	DefaultBridgePrefix  = "snapkit.bridge"
	DefaultEventsPrefix  = "snapkit.events"
	DefaultNativePrefix  = "snapkit.native"
	lifecycleSubjectPart = "lifecycle"
)

// BuildChannelSubject builds the request subject of a bridge channel.
func BuildChannelSubject(prefix, channel string) string {
	return fmt.Sprintf("%s.%s", prefix, SanitizeToken(channel))
}

// BuildLifecycleSubject builds the subject carrying host lifecycle notifications.
func BuildLifecycleSubject(channelSubject string) string {
	return channelSubject + "." + lifecycleSubjectPart
}

// BuildEventSubject builds a bridge event subject, e.g. snapkit.events.session.login.
func BuildEventSubject(prefix, kind string) string {
	return fmt.Sprintf("%s.%s", prefix, kind)
}

// BuildNativeSubject builds the subject a native host listens on for capability calls.
func BuildNativeSubject(prefix, hostID string) string {
	return fmt.Sprintf("%s.%s", prefix, SanitizeToken(hostID))
}

// SanitizeToken makes s usable as a single subject token.
func SanitizeToken(s string) string {
	r := strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")
	return r.Replace(s)
}
