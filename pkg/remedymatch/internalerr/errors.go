// Package internalerr holds the sentinel errors shared across remedymatch packages.
package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrStoreClosed   = errors.New("store closed")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrUnknownDriver = errors.New("unknown storage driver")
)
