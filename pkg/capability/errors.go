package capability

import (
	"errors"
	"fmt"
)

// Subsystem reason codes used by the bundled providers.
const (
	ReasonUnsupported       = "UNSUPPORTED"
	ReasonNotLoggedIn       = "NOT_LOGGED_IN"
	ReasonLoginFailed       = "LOGIN_FAILED"
	ReasonMediaSizeExceeded = "MEDIA_SIZE_EXCEEDED"
	ReasonStickerSize       = "STICKER_SIZE_EXCEEDED"
	ReasonFileNotFound      = "FILE_NOT_FOUND"
	ReasonNetwork           = "NETWORK"
	ReasonTimeout           = "TIMEOUT"
	ReasonStorage           = "STORAGE"
	ReasonUnknown           = "UNKNOWN"
)

// Error is the opaque failure triple reported by a provider. The bridge
// forwards it without interpreting Code.
type Error struct {
	Code    string      `json:"code" cbor:"code"`
	Message string      `json:"message" cbor:"message"`
	Details interface{} `json:"details,omitempty" cbor:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// NewError creates a new provider Error.
func NewError(code, message string, details interface{}) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// Unsupported is returned when a Set has no implementation for kind.
func Unsupported(kind Kind) *Error {
	return &Error{
		Code:    ReasonUnsupported,
		Message: fmt.Sprintf("provider does not support %s", kind),
		Details: map[string]interface{}{"capability": string(kind)},
	}
}

// AsError returns err as a provider *Error, wrapping foreign errors as UNKNOWN.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var capErr *Error
	if errors.As(err, &capErr) {
		return capErr
	}
	return &Error{Code: ReasonUnknown, Message: err.Error()}
}
