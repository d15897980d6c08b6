package services

import "errors"

var (
	// ErrNotFound means the referenced conversation or message does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the principal is not a participant of the conversation.
	ErrForbidden = errors.New("not a conversation participant")
	// ErrStoreUnavailable wraps any store failure or timeout. The engine does
	// not retry; callers surface it to the originator as a failure event.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError reports a malformed action payload. Admission fails before
// any write, so no state is mutated.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
