package auth

import (
	"errors"
	"time"
)

const (
	DefaultTokenLifetime = time.Hour
	DefaultRefreshWindow = 10 * time.Minute
)

// Policy controls token lifetime. A token presented with no more than
// RefreshWindow of validity left is replaced by a new one.
type Policy struct {
	TokenLifetime time.Duration
	RefreshWindow time.Duration
}

func DefaultPolicy() Policy {
	return Policy{TokenLifetime: DefaultTokenLifetime, RefreshWindow: DefaultRefreshWindow}
}

var errInvalidPolicy = errors.New("invalid token policy")

func (p Policy) validate() error {
	if p.TokenLifetime <= 0 || p.RefreshWindow < 0 || p.RefreshWindow >= p.TokenLifetime {
		return errInvalidPolicy
	}
	return nil
}
