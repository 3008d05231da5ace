// Package options reads core_options key/value rows.
package options

import "context"

type Repository interface {
	// Get returns common.ErrorNotFound for an unknown option.
	Get(ctx context.Context, name string) (string, error)
}
