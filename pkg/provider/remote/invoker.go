// Package remote forwards capability calls to a native host over COMMS.
// The host listens on <prefix>.<hostId> and answers with bridge replies.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/snapkit-bridge/pkg/capability"
	"github.com/morezero/snapkit-bridge/pkg/commsutil"
	"github.com/morezero/snapkit-bridge/pkg/dispatcher"
	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
)

const logPrefix = "remote:invoker"

// InvokerOptions configures an Invoker. Zero values use defaults.
type InvokerOptions struct {
	SubjectPrefix string
	// Timeout bounds each native call (PROVIDER_TIMEOUT, default 30s).
	Timeout time.Duration
	Codec   commsutil.Codec
}

// Invoker implements capability.Invoker by request/reply on the host's native subject.
type Invoker struct {
	nc      *comms.Conn
	prefix  string
	timeout time.Duration
	codec   commsutil.Codec
}

// NewInvoker creates an Invoker.
func NewInvoker(nc *comms.Conn, opts InvokerOptions) *Invoker {
	inv := &Invoker{nc: nc, prefix: opts.SubjectPrefix, timeout: opts.Timeout, codec: opts.Codec}
	if inv.prefix == "" {
		inv.prefix = commsutil.DefaultNativePrefix
	}
	if inv.timeout <= 0 {
		inv.timeout = 30 * time.Second
	}
	if inv.codec == nil {
		inv.codec = commsutil.JSON
	}
	return inv
}

// Invoke runs operation on the native host and returns its payload. Every
// failure comes back as a *capability.Error.
func (i *Invoker) Invoke(ctx context.Context, operation string, arguments map[string]interface{}, host lifecycle.Host) (interface{}, error) {
	if host == nil {
		return nil, capability.NewError(capability.ReasonUnknown, "no host to invoke "+operation+" on", nil)
	}
	subject := commsutil.BuildNativeSubject(i.prefix, host.ID())

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	req := &dispatcher.Request{ID: uuid.NewString(), Method: operation, Arguments: arguments}
	data, err := i.codec.Encode(req)
	if err != nil {
		return nil, capability.NewError(capability.ReasonUnknown, fmt.Sprintf("encode %s: %v", operation, err), nil)
	}
	msg := comms.NewMsg(subject)
	msg.Header.Set(commsutil.HeaderContentType, i.codec.ContentType())
	msg.Data = data

	slog.Debug(fmt.Sprintf("%s - %s -> %s", logPrefix, operation, subject))
	resp, err := i.nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return nil, transportError(operation, host, err)
	}

	codec, err := commsutil.CodecFor(resp.Header.Get(commsutil.HeaderContentType))
	if err != nil {
		return nil, capability.NewError(capability.ReasonUnknown, err.Error(), nil)
	}
	var reply dispatcher.Reply
	if err := codec.Decode(resp.Data, &reply); err != nil {
		return nil, capability.NewError(capability.ReasonUnknown, fmt.Sprintf("decode %s reply: %v", operation, err), nil)
	}
	if reply.ID != req.ID {
		return nil, capability.NewError(capability.ReasonUnknown,
			fmt.Sprintf("reply %s does not match request %s", reply.ID, req.ID), nil)
	}

	switch reply.Variant() {
	case dispatcher.VariantSuccess:
		return reply.Result, nil
	case dispatcher.VariantFailure:
		return nil, capability.NewError(reply.Error.Code, reply.Error.Message, reply.Error.Details)
	case dispatcher.VariantUnimplemented:
		return nil, capability.NewError(capability.ReasonUnsupported,
			fmt.Sprintf("native host %s does not implement %s", host.ID(), operation), nil)
	default:
		return nil, capability.NewError(capability.ReasonUnknown, "malformed reply for "+operation, nil)
	}
}

func transportError(operation string, host lifecycle.Host, err error) error {
	details := map[string]interface{}{"operation": operation, "host": host.ID()}
	switch {
	case errors.Is(err, comms.ErrNoResponders):
		return capability.NewError(capability.ReasonNetwork,
			fmt.Sprintf("native host %s is not listening", host.ID()), details)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, comms.ErrTimeout):
		return capability.NewError(capability.ReasonTimeout,
			fmt.Sprintf("native host %s did not answer %s in time", host.ID(), operation), details)
	default:
		return capability.NewError(capability.ReasonNetwork, err.Error(), details)
	}
}
