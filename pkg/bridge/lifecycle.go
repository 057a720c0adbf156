package bridge

import (
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/snapkit-bridge/pkg/commsutil"
	"github.com/morezero/snapkit-bridge/pkg/dispatcher"
	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
)

const lifecycleLogPrefix = "bridge:lifecycle"

// Lifecycle events accepted on the lifecycle subject.
const (
	EventAttach   = "attach"
	EventDetach   = "detach"
	EventReattach = "reattach"
)

// LifecycleNotice is a host lifecycle notification.
type LifecycleNotice struct {
	Event string              `json:"event" cbor:"event"`
	Host  *lifecycle.HostInfo `json:"host,omitempty" cbor:"host,omitempty"`
}

// LifecycleStatus is the result of an acknowledged notice.
type LifecycleStatus struct {
	State      string `json:"state" cbor:"state"`
	HostID     string `json:"hostId,omitempty" cbor:"hostId,omitempty"`
	Generation uint64 `json:"generation" cbor:"generation"`
}

// ApplyNotice applies a notice to binder and reports the resulting status.
func ApplyNotice(binder *lifecycle.Binder, n *LifecycleNotice) (*LifecycleStatus, error) {
	switch n.Event {
	case EventAttach, EventReattach:
		if n.Host == nil {
			return nil, fmt.Errorf("%s - %s requires a host", lifecycleLogPrefix, n.Event)
		}
		var err error
		if n.Event == EventAttach {
			err = binder.Attach(*n.Host)
		} else {
			err = binder.Reattach(*n.Host)
		}
		if err != nil {
			return nil, err
		}
	case EventDetach:
		binder.Detach()
	default:
		return nil, fmt.Errorf("%s - unknown lifecycle event %q", lifecycleLogPrefix, n.Event)
	}

	status := &LifecycleStatus{State: binder.State().String(), Generation: binder.Generation()}
	if h, ok := binder.Current(); ok {
		status.HostID = h.ID()
	}
	return status, nil
}

func (c *Channel) handleLifecycle(msg *comms.Msg) {
	codec, err := commsutil.CodecFor(msg.Header.Get(commsutil.HeaderContentType))
	if err != nil {
		c.respond(msg, commsutil.JSON, dispatcher.Failure("", dispatcher.CodeInvalidRequest, err.Error(), nil))
		return
	}

	var notice LifecycleNotice
	if err := codec.Decode(msg.Data, &notice); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to decode notice: %v", lifecycleLogPrefix, err))
		event := salvageField(codec, msg.Data, func(p *partialPayload) string { return p.Event })
		c.respond(msg, codec, dispatcher.Failure(event, dispatcher.CodeInvalidRequest, "Failed to decode lifecycle notice", nil))
		return
	}

	status, err := ApplyNotice(c.binder, &notice)
	if err != nil {
		c.respond(msg, codec, dispatcher.Failure(notice.Event, dispatcher.CodeInvalidRequest, err.Error(), nil))
		return
	}
	c.respond(msg, codec, dispatcher.Success(notice.Event, status))
}
