package domain

import "errors"

// Sentinel errors for the domain layer. These provide consistent, checkable
// errors for common business logic failures.
var (
	ErrNotFound       = errors.New("requested resource not found")
	ErrForbidden      = errors.New("requester is not allowed to perform this action")
	ErrEmptyMessage   = errors.New("message text is empty")
	ErrMessageTooLong = errors.New("message text exceeds the maximum length")
)

// IsValidation reports whether err belongs to the validation category, i.e.
// the input was malformed and nothing was persisted.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyMessage) || errors.Is(err, ErrMessageTooLong)
}
