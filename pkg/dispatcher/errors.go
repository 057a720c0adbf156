package dispatcher

import (
	"errors"
	"fmt"
)

// Bridge-level failure codes. Handlers choose their own codes for argument
// and capability failures.
const (
	CodeNoHostContext  = "NoHostContext"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternal       = "INTERNAL_ERROR"
)

// Error kinds carried in ErrorDetail.Details["kind"].
const (
	KindArgument   = "argument"
	KindCapability = "capability"
	KindState      = "state"
	KindInternal   = "internal"
)

// CommandError is a structured error returned by handlers.
type CommandError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *CommandError) Error() string {
	return e.Code + ": " + e.Message
}

// NewCommandError creates a new CommandError.
func NewCommandError(code, message string, details interface{}) *CommandError {
	return &CommandError{Code: code, Message: message, Details: details}
}

// ArgumentError builds a CommandError for a missing or malformed argument.
func ArgumentError(code, message string) *CommandError {
	return &CommandError{
		Code:    code,
		Message: message,
		Details: map[string]interface{}{"kind": KindArgument},
	}
}

// StateError builds the CommandError for a command that needs a host context.
func StateError(method string) *CommandError {
	return &CommandError{
		Code:    CodeNoHostContext,
		Message: fmt.Sprintf("%s requires a host context but the bridge is not attached to one", method),
		Details: map[string]interface{}{"kind": KindState, "method": method},
	}
}

// errorToReply converts a handler error into a failure reply.
func errorToReply(id string, err error) *Reply {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return Failure(id, cmdErr.Code, cmdErr.Message, cmdErr.Details)
	}
	return Failure(id, CodeInternal, err.Error(), map[string]interface{}{"kind": KindInternal})
}
