package auth

import (
	"errors"
	"fmt"
)

// Code identifies an authentication failure. Values 10 to 14 are stable and
// are sent to clients as is.
type Code int

const (
	InvalidCredentials  Code = 1
	CannotLogin         Code = 10
	UserNotFound        Code = 11
	InvalidPassword     Code = 12
	AccessTokenExpired  Code = 13
	AccessTokenNotFound Code = 14
)

func (c Code) String() string {
	switch c {
	case InvalidCredentials:
		return "INVALID_CREDENTIALS"
	case CannotLogin:
		return "CANNOT_LOGIN"
	case UserNotFound:
		return "USER_NOT_FOUND"
	case InvalidPassword:
		return "INVALID_PASSWORD"
	case AccessTokenExpired:
		return "ACCESS_TOKEN_EXPIRED"
	case AccessTokenNotFound:
		return "ACCESS_TOKEN_NOT_FOUND"
	default:
		return fmt.Sprintf("AUTH_%d", int(c))
	}
}

// Error is an authentication failure. Info carries non secret context such
// as the login; tokens, salts and passwords never go there.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Info    map[string]any `json:"info,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("auth error %d: %s", int(e.Code), e.Message)
}

func newError(code Code, message string, info map[string]any) *Error {
	return &Error{Code: code, Message: message, Info: info}
}

// IsAuthError reports whether err is, or wraps, an *Error.
func IsAuthError(err error) bool {
	var ae *Error
	return errors.As(err, &ae)
}

// CodeOf returns the code of the *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code, true
	}
	return 0, false
}
