package events

import "errors"

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrCreateFailed   = errors.New("event could not be created")
	ErrInvalidCheckIn = errors.New("check-in code is invalid")
	ErrNotEventOwner  = errors.New("event is not claimed by this user")
)

// ValidationError is a client mistake reported verbatim to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

// IsValidation reports whether err carries a client-facing validation message.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
