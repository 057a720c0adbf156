package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/snapkit-bridge/pkg/commsutil"
	"github.com/morezero/snapkit-bridge/pkg/dispatcher"
	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
)

const clientLogPrefix = "bridge:client"

// ErrReplyMismatch is returned when a reply does not belong to the request it answered.
var ErrReplyMismatch = errors.New("bridge: reply id does not match request id")

// ClientOptions configures a Client.
type ClientOptions struct {
	Name          string
	SubjectPrefix string
	// Codec defaults to JSON.
	Codec commsutil.Codec
	// Timeout applies when the caller's context has no deadline (default 25s).
	Timeout time.Duration
}

// Client issues commands and lifecycle notices over a bridge channel.
type Client struct {
	nc               *comms.Conn
	subject          string
	lifecycleSubject string
	codec            commsutil.Codec
	timeout          time.Duration
}

// NewClient creates a Client for the channel described by opts.
func NewClient(nc *comms.Conn, opts ClientOptions) *Client {
	name := opts.Name
	if name == "" {
		name = commsutil.DefaultChannel
	}
	prefix := opts.SubjectPrefix
	if prefix == "" {
		prefix = commsutil.DefaultBridgePrefix
	}
	codec := opts.Codec
	if codec == nil {
		codec = commsutil.JSON
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	subject := commsutil.BuildChannelSubject(prefix, name)
	return &Client{
		nc:               nc,
		subject:          subject,
		lifecycleSubject: commsutil.BuildLifecycleSubject(subject),
		codec:            codec,
		timeout:          timeout,
	}
}

// Call sends one command and returns its reply. Transport failures are
// returned as errors; command failures come back as Failure replies.
func (c *Client) Call(ctx context.Context, method string, args map[string]interface{}) (*dispatcher.Reply, error) {
	req := &dispatcher.Request{ID: uuid.NewString(), Method: method, Arguments: args}
	reply, err := c.request(ctx, c.subject, req)
	if err != nil {
		return nil, err
	}
	if reply.ID != req.ID {
		return nil, fmt.Errorf("%s - %w: sent %s, got %s", clientLogPrefix, ErrReplyMismatch, req.ID, reply.ID)
	}
	if err := reply.Validate(); err != nil {
		return nil, err
	}
	return reply, nil
}

// Attach notifies the bridge that host is now the bound host context.
func (c *Client) Attach(ctx context.Context, host lifecycle.HostInfo) (*LifecycleStatus, error) {
	return c.notify(ctx, &LifecycleNotice{Event: EventAttach, Host: &host})
}

// Reattach notifies the bridge that host replaces the bound host context.
func (c *Client) Reattach(ctx context.Context, host lifecycle.HostInfo) (*LifecycleStatus, error) {
	return c.notify(ctx, &LifecycleNotice{Event: EventReattach, Host: &host})
}

// Detach notifies the bridge that the host context is gone.
func (c *Client) Detach(ctx context.Context) (*LifecycleStatus, error) {
	return c.notify(ctx, &LifecycleNotice{Event: EventDetach})
}

func (c *Client) notify(ctx context.Context, notice *LifecycleNotice) (*LifecycleStatus, error) {
	reply, err := c.request(ctx, c.lifecycleSubject, notice)
	if err != nil {
		return nil, err
	}
	if !reply.Ok {
		if reply.Error != nil {
			return nil, fmt.Errorf("%s - %s rejected: %s", clientLogPrefix, notice.Event, reply.Error.Message)
		}
		return nil, fmt.Errorf("%s - %s rejected", clientLogPrefix, notice.Event)
	}

	raw, err := c.codec.Encode(reply.Result)
	if err != nil {
		return nil, fmt.Errorf("%s - re-encode status: %w", clientLogPrefix, err)
	}
	var status LifecycleStatus
	if err := c.codec.Decode(raw, &status); err != nil {
		return nil, fmt.Errorf("%s - decode status: %w", clientLogPrefix, err)
	}
	return &status, nil
}

func (c *Client) request(ctx context.Context, subject string, payload interface{}) (*dispatcher.Reply, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	data, err := c.codec.Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode request: %w", clientLogPrefix, err)
	}

	msg := comms.NewMsg(subject)
	msg.Header.Set(commsutil.HeaderContentType, c.codec.ContentType())
	msg.Data = data

	resp, err := c.nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		if errors.Is(err, comms.ErrNoResponders) {
			return nil, fmt.Errorf("%s - %s: %w", clientLogPrefix, subject, ErrChannelClosed)
		}
		return nil, fmt.Errorf("%s - request on %s failed: %w", clientLogPrefix, subject, err)
	}

	codec, err := commsutil.CodecFor(resp.Header.Get(commsutil.HeaderContentType))
	if err != nil {
		return nil, fmt.Errorf("%s - %w", clientLogPrefix, err)
	}
	var reply dispatcher.Reply
	if err := codec.Decode(resp.Data, &reply); err != nil {
		return nil, fmt.Errorf("%s - failed to decode reply: %w", clientLogPrefix, err)
	}
	return &reply, nil
}
