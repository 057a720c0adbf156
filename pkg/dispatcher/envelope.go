// Package dispatcher routes incoming bridge commands to registered handlers.
package dispatcher

import "fmt"

// Request is the envelope for one incoming bridge command.
type Request struct {
	ID        string                 `json:"id" cbor:"id"`
	Method    string                 `json:"method" cbor:"method"`
	Arguments map[string]interface{} `json:"arguments,omitempty" cbor:"arguments,omitempty"`
	Ctx       *InvocationContext     `json:"ctx,omitempty" cbor:"ctx,omitempty"`
}

// Reply is the envelope for the single response to a Request.
type Reply struct {
	ID             string       `json:"id" cbor:"id"`
	Ok             bool         `json:"ok" cbor:"ok"`
	Result         interface{}  `json:"result,omitempty" cbor:"result,omitempty"`
	Error          *ErrorDetail `json:"error,omitempty" cbor:"error,omitempty"`
	NotImplemented bool         `json:"notImplemented,omitempty" cbor:"notImplemented,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Code      string      `json:"code" cbor:"code"`
	Message   string      `json:"message" cbor:"message"`
	Details   interface{} `json:"details,omitempty" cbor:"details,omitempty"`
	Retryable bool        `json:"retryable" cbor:"retryable"`
}

// InvocationContext holds context from the caller.
type InvocationContext struct {
	RequestID     string `json:"requestId,omitempty" cbor:"requestId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty" cbor:"correlationId,omitempty"`
	Origin        string `json:"origin,omitempty" cbor:"origin,omitempty"`
}

// Variant identifies which of the three reply shapes a Reply carries.
type Variant int

const (
	VariantInvalid Variant = iota
	VariantSuccess
	VariantFailure
	VariantUnimplemented
)

func (v Variant) String() string {
	switch v {
	case VariantSuccess:
		return "success"
	case VariantFailure:
		return "failure"
	case VariantUnimplemented:
		return "unimplemented"
	default:
		return "invalid"
	}
}

// Variant reports the reply shape. Mixed replies report VariantInvalid.
func (r *Reply) Variant() Variant {
	switch {
	case r.Ok && r.Error == nil && !r.NotImplemented:
		return VariantSuccess
	case !r.Ok && r.Error != nil && !r.NotImplemented:
		return VariantFailure
	case !r.Ok && r.Error == nil && r.NotImplemented && r.Result == nil:
		return VariantUnimplemented
	default:
		return VariantInvalid
	}
}

// Validate returns an error when the reply does not carry exactly one variant.
func (r *Reply) Validate() error {
	if r.Variant() == VariantInvalid {
		return fmt.Errorf("dispatcher:envelope - reply %q carries no single variant (ok=%t error=%t notImplemented=%t)",
			r.ID, r.Ok, r.Error != nil, r.NotImplemented)
	}
	return nil
}

// Success builds a success reply.
func Success(id string, result interface{}) *Reply {
	return &Reply{ID: id, Ok: true, Result: result}
}

// Unimplemented builds the reply for a method with no registered handler.
func Unimplemented(id string) *Reply {
	return &Reply{ID: id, Ok: false, NotImplemented: true}
}

// Failure builds a failure reply. Only INTERNAL_ERROR is retryable.
func Failure(id, code, message string, details interface{}) *Reply {
	return &Reply{
		ID: id,
		Ok: false,
		Error: &ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			Retryable: code == CodeInternal,
		},
	}
}
