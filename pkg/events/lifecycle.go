package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
)

const lifecycleLogPrefix = "events:lifecycle"

// LifecycleListener returns a binder listener that publishes host transitions.
// Passing through Rebinding is not published; the following Bound is reported as reattached.
func LifecycleListener(pub EventPublisher, channel string) lifecycle.Listener {
	return func(t lifecycle.Transition) {
		var kind string
		host := t.Current
		switch {
		case t.To == lifecycle.Rebinding:
			return
		case t.To == lifecycle.Bound && t.From == lifecycle.Rebinding:
			kind = KindHostReattached
		case t.To == lifecycle.Bound:
			kind = KindHostAttached
		case t.To == lifecycle.Unbound:
			kind = KindHostDetached
			host = t.Previous
		default:
			return
		}

		event := &BridgeEvent{
			Kind:       kind,
			Channel:    channel,
			Generation: t.Generation,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		}
		if host != nil {
			event.HostID = host.ID()
			event.Platform = host.Platform()
		}
		if err := pub.Publish(context.Background(), event); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to publish %s: %v", lifecycleLogPrefix, kind, err))
		}
	}
}
