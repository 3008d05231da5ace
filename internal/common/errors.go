// Package common defines shared constants and sentinel errors used across
// the store, guard and boundary layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrNoRowsUpdated   = errors.New("no records were updated (maybe login does not exist)")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")

	// Configuration errors.
	ErrUnknownDriver = errors.New("unknown database driver")
	ErrUnknownHasher = errors.New("unknown password hasher")
)
