package schema

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotReady          = errors.New("device not ready to send another write command that requires capturing")
	ErrNotConnected      = errors.New("device is not connected")
	ErrUnsupportedMethod = errors.New("that connection type is currently not supported for this device")
)

// TimeoutError is returned when a read did not see the expected output in time.
// Output holds whatever was captured before the deadline.
type TimeoutError struct {
	Pattern string
	Timeout time.Duration
	Output  string
}

func (e *TimeoutError) Error() string {
	if e.Pattern == "" {
		return fmt.Sprintf("timeout after %s", e.Timeout)
	}
	return fmt.Sprintf("timeout after %s waiting for %q", e.Timeout, e.Pattern)
}

// PrecheckError reports that an operation needs a mode the session is not in.
type PrecheckError struct {
	Op       string
	Required string
}

func (e *PrecheckError) Error() string {
	return fmt.Sprintf("%s: must be in %s mode", e.Op, e.Required)
}

// AuthenticationError reports an enable / password exchange that did not complete.
type AuthenticationError struct {
	Command string
	Output  string
	Err     error
}

func (e *AuthenticationError) Error() string {
	msg := fmt.Sprintf("failed to enter privileged mode with %q", e.Command)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// DiscoveryError reports that the remote file system could not be determined.
type DiscoveryError struct {
	Command string
	Output  string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("an error occurred in dynamically determining remote file system: %s %s",
		e.Command, e.Output)
}

// TransitionError reports a mode change command that was sent but did not take effect.
type TransitionError struct {
	Op      string
	Command string
	Output  string
	Err     error
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("failed to %s with %q", e.Op, e.Command)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return e.Err }
