package session

import "errors"

var (
	// ErrBusy is returned when an action of the same kind is still pending.
	ErrBusy = errors.New("session: action already pending")

	ErrNotFound = errors.New("session: not found")
	ErrClosed   = errors.New("session: closed")
)

// Failure is a collaborator error that has already been recorded as a notice.
// Message is the text shown to the user; Err is the underlying cause.
type Failure struct {
	Action  Action
	Message string
	Err     error
}

func (f *Failure) Error() string { return string(f.Action) + ": " + f.Message }

func (f *Failure) Unwrap() error { return f.Err }
