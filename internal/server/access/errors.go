package access

import "errors"

// Error is returned when a caller lacks the rights for an operation. It is
// raised before the store is touched.
type Error struct {
	Op      string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func requiresRights(op, message string) error {
	return &Error{Op: op, Message: op + " " + message}
}

// IsAccessError reports whether err is, or wraps, an *Error.
func IsAccessError(err error) bool {
	var ae *Error
	return errors.As(err, &ae)
}
