package link

import (
	"errors"
	"fmt"
)

var (
	ErrSignalingTimeout           = errors.New("signaling request timed out")
	ErrSignalingMalformedResponse = errors.New("malformed signaling response")
	ErrSignalingRejected          = errors.New("signaling request rejected")
	ErrSignalingUnavailable       = errors.New("signaling endpoint unreachable")
	ErrTransportSetupFailed       = errors.New("transport setup failed")
	ErrTransportDisconnected      = errors.New("transport disconnected")
	ErrChannelNotReady            = errors.New("control channel not ready")
	ErrSessionActive              = errors.New("session already active")
)

// Error attaches the failing operation to one of the sentinel errors above,
// so callers can still match with errors.Is.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}

// Cause wraps cause under the sentinel kind so both remain matchable.
func Cause(op string, kind, cause error) *Error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %w", kind, cause)}
}
