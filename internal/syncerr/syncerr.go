// ABOUTME: Error taxonomy for the synchronization engine
// ABOUTME: Distinguishes session-ending auth failures from transient connectivity errors

// Package syncerr classifies failures of the synchronization engine so that
// consumers can choose between "require re-login" and "show reconnecting".
package syncerr

import (
	"errors"
	"fmt"
)

// Kind identifies a failure class.
type Kind int

const (
	// KindCredentialMissing means no token was available; no connection was attempted.
	KindCredentialMissing Kind = iota + 1
	// KindAuthenticationRejected means the backend rejected the credential
	// (close code 1008 or HTTP 401).
	KindAuthenticationRejected
	// KindTransientConnectivity covers every other close or transport error.
	KindTransientConnectivity
	// KindMalformedPayload means an inbound frame was not a chat message.
	KindMalformedPayload
	// KindSendRejected means a send was attempted while not connected.
	KindSendRejected
)

// Sentinels for errors.Is. Any *Error matches the sentinel of its Kind.
var (
	ErrCredentialMissing      = errors.New("credential missing")
	ErrAuthenticationRejected = errors.New("authentication rejected")
	ErrTransientConnectivity  = errors.New("transient connectivity failure")
	ErrMalformedPayload       = errors.New("malformed payload")
	ErrSendRejected           = errors.New("send rejected")
)

func (k Kind) String() string {
	switch k {
	case KindCredentialMissing:
		return "credential_missing"
	case KindAuthenticationRejected:
		return "authentication_rejected"
	case KindTransientConnectivity:
		return "transient_connectivity"
	case KindMalformedPayload:
		return "malformed_payload"
	case KindSendRejected:
		return "send_rejected"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindCredentialMissing:
		return ErrCredentialMissing
	case KindAuthenticationRejected:
		return ErrAuthenticationRejected
	case KindTransientConnectivity:
		return ErrTransientConnectivity
	case KindMalformedPayload:
		return ErrMalformedPayload
	case KindSendRejected:
		return ErrSendRejected
	default:
		return nil
	}
}

// Error is a classified failure. Reason is the human-readable text surfaced
// to the user; Err is the underlying cause, if any.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's Kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// New builds a classified error.
func New(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// CredentialMissing reports that no token is available.
func CredentialMissing() *Error {
	return New(KindCredentialMissing, "missing credential", nil)
}

// AuthenticationRejected reports a rejected credential with the backend's reason.
func AuthenticationRejected(reason string) *Error {
	return New(KindAuthenticationRejected, reason, nil)
}

// Transient wraps a recoverable connectivity failure.
func Transient(reason string, err error) *Error {
	return New(KindTransientConnectivity, reason, err)
}

// SendRejected reports a send attempted in the given connection state.
func SendRejected(state string) *Error {
	return New(KindSendRejected, fmt.Sprintf("not connected (state %s)", state), nil)
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// ReasonOf returns the user-facing reason of the first *Error in err's chain.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// EndsSession reports whether err must propagate to the session boundary.
func EndsSession(err error) bool {
	return errors.Is(err, ErrCredentialMissing) || errors.Is(err, ErrAuthenticationRejected)
}
