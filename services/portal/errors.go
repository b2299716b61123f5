package portal

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindRateLimited        Kind = "rate_limited"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindNotAuthenticated   Kind = "not_authenticated"
	KindSessionExpired     Kind = "session_expired"
	KindInvalidSession     Kind = "invalid_session"
	KindInvalidInput       Kind = "invalid_input"
	KindUnexpected         Kind = "unexpected"
)

const (
	MsgGymNotFound        = "Gym not found"
	MsgMemberNotFound     = "No member found with this email. Please check in at the gym first."
	MsgInvalidCredentials = "Invalid email or PIN"
	MsgNoPIN              = "No PIN found. Please request access first."
	MsgNotAuthenticated   = "Not authenticated"
	MsgSessionExpired     = "Session expired. Please sign in again."
	MsgInvalidSession     = "Invalid session for this gym"
	MsgEmailRequired      = "Email is required"
	MsgPINRequired        = "PIN is required"
	MsgUnexpected         = "Something went wrong. Please try again."
)

// Error is returned by every Service operation. Message is safe to show to
// the member; Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err,
// &Error{Kind: KindNotFound}) works without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func unexpected(err error) *Error {
	return newError(KindUnexpected, MsgUnexpected, err)
}

// KindOf returns the Kind of err, or KindUnexpected for errors that did not
// come from this package.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindUnexpected
}
