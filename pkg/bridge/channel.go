// Package bridge carries command envelopes between a calling layer and the
// dispatcher over a named COMMS channel.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	comms "github.com/nats-io/nats.go"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/morezero/snapkit-bridge/pkg/commsutil"
	"github.com/morezero/snapkit-bridge/pkg/dispatcher"
	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
)

const logPrefix = "bridge:channel"

// ErrChannelClosed is returned when a channel is used while torn down.
var ErrChannelClosed = errors.New("bridge: channel is closed")

// ChannelOptions configures a Channel.
type ChannelOptions struct {
	// Name is the fixed channel name (default "snapkit").
	Name string
	// SubjectPrefix is prepended to the name (default "snapkit.bridge").
	SubjectPrefix string
	// Binder receives host lifecycle notifications. Nil disables the lifecycle subject.
	Binder *lifecycle.Binder
}

// InFlightCall describes a request whose reply has not been sent yet.
type InFlightCall struct {
	ID      string
	Method  string
	Started time.Time
}

// Channel is the server side of the bridge: one subscription per channel
// name, one reply per accepted request.
type Channel struct {
	nc               *comms.Conn
	disp             *dispatcher.Dispatcher
	binder           *lifecycle.Binder
	name             string
	subject          string
	lifecycleSubject string

	mu           sync.Mutex
	ctx          context.Context
	sub          *comms.Subscription
	lifecycleSub *comms.Subscription

	seq      atomic.Uint64
	inFlight *xsync.MapOf[string, InFlightCall]
}

// NewChannel creates a closed Channel. Call Open to start accepting requests.
func NewChannel(nc *comms.Conn, disp *dispatcher.Dispatcher, opts ChannelOptions) *Channel {
	name := opts.Name
	if name == "" {
		name = commsutil.DefaultChannel
	}
	prefix := opts.SubjectPrefix
	if prefix == "" {
		prefix = commsutil.DefaultBridgePrefix
	}
	subject := commsutil.BuildChannelSubject(prefix, name)
	return &Channel{
		nc:               nc,
		disp:             disp,
		binder:           opts.Binder,
		name:             name,
		subject:          subject,
		lifecycleSubject: commsutil.BuildLifecycleSubject(subject),
		inFlight:         xsync.NewMapOf[string, InFlightCall](),
	}
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// Subject returns the request subject.
func (c *Channel) Subject() string { return c.subject }

// LifecycleSubject returns the subject carrying host lifecycle notifications.
func (c *Channel) LifecycleSubject() string { return c.lifecycleSubject }

// Open registers the channel. ctx is handed to every dispatched handler.
// Opening an open channel is a no-op.
func (c *Channel) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sub != nil {
		return nil
	}

	sub, err := c.nc.Subscribe(c.subject, c.handleRequest)
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, c.subject, err)
	}

	if c.binder != nil {
		lsub, err := c.nc.Subscribe(c.lifecycleSubject, c.handleLifecycle)
		if err != nil {
			sub.Unsubscribe()
			return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, c.lifecycleSubject, err)
		}
		c.lifecycleSub = lsub
	}

	c.ctx = ctx
	c.sub = sub
	slog.Info(fmt.Sprintf("%s - Channel %s open on %s", logPrefix, c.name, c.subject))
	return nil
}

// Close deregisters the channel. Requests already accepted still get their reply.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sub == nil {
		return nil
	}

	var firstErr error
	if err := c.sub.Unsubscribe(); err != nil {
		firstErr = fmt.Errorf("%s - unsubscribe %s: %w", logPrefix, c.subject, err)
	}
	if c.lifecycleSub != nil {
		if err := c.lifecycleSub.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s - unsubscribe %s: %w", logPrefix, c.lifecycleSubject, err)
		}
		c.lifecycleSub = nil
	}
	c.sub = nil
	slog.Info(fmt.Sprintf("%s - Channel %s closed (%d in flight)", logPrefix, c.name, c.inFlight.Size()))
	return firstErr
}

// IsOpen reports whether the channel accepts requests.
func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub != nil
}

// InFlight returns the requests still waiting for their reply.
func (c *Channel) InFlight() []InFlightCall {
	out := make([]InFlightCall, 0, c.inFlight.Size())
	c.inFlight.Range(func(_ string, call InFlightCall) bool {
		out = append(out, call)
		return true
	})
	return out
}

// Wait blocks until no request is in flight or ctx ends.
func (c *Channel) Wait(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for c.inFlight.Size() > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s - %d requests still in flight: %w", logPrefix, c.inFlight.Size(), ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

func (c *Channel) handlerContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

func (c *Channel) handleRequest(msg *comms.Msg) {
	codec, err := commsutil.CodecFor(msg.Header.Get(commsutil.HeaderContentType))
	if err != nil {
		slog.Error(fmt.Sprintf("%s - %v", logPrefix, err))
		c.respond(msg, commsutil.JSON, dispatcher.Failure("", dispatcher.CodeInvalidRequest, err.Error(), nil))
		return
	}

	var req dispatcher.Request
	if err := codec.Decode(msg.Data, &req); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to decode request: %v", logPrefix, err))
		id := salvageField(codec, msg.Data, func(p *partialPayload) string { return p.ID })
		c.respond(msg, codec, dispatcher.Failure(id, dispatcher.CodeInvalidRequest, "Failed to decode request", nil))
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Method == "" {
		c.respond(msg, codec, dispatcher.Failure(req.ID, dispatcher.CodeInvalidRequest, "method is required", nil))
		return
	}

	key := strconv.FormatUint(c.seq.Add(1), 10)
	c.inFlight.Store(key, InFlightCall{ID: req.ID, Method: req.Method, Started: time.Now()})

	c.disp.Dispatch(c.handlerContext(), &req, func(reply *dispatcher.Reply) {
		c.inFlight.Delete(key)
		c.respond(msg, codec, reply)
	})
}

// partialPayload holds the fields a reply can echo from a payload whose
// other fields failed to decode.
type partialPayload struct {
	ID    string `json:"id" cbor:"id"`
	Event string `json:"event" cbor:"event"`
}

// salvageField decodes data leniently and returns the field pick selects,
// or "" when even that is unreadable.
func salvageField(codec commsutil.Codec, data []byte, pick func(*partialPayload) string) string {
	var p partialPayload
	if err := codec.Decode(data, &p); err != nil {
		return ""
	}
	return pick(&p)
}

func (c *Channel) respond(msg *comms.Msg, codec commsutil.Codec, reply *dispatcher.Reply) {
	if msg.Reply == "" {
		slog.Debug(fmt.Sprintf("%s - request %s has no reply subject; dropping reply", logPrefix, reply.ID))
		return
	}

	data, err := codec.Encode(reply)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode reply %s: %v", logPrefix, reply.ID, err))
		data, err = codec.Encode(dispatcher.Failure(reply.ID, dispatcher.CodeInternal, "Failed to encode reply", nil))
		if err != nil {
			return
		}
	}

	out := comms.NewMsg(msg.Reply)
	out.Header.Set(commsutil.HeaderContentType, codec.ContentType())
	out.Data = data
	if err := msg.RespondMsg(out); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to send reply %s: %v", logPrefix, reply.ID, err))
	}
}
