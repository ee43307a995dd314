package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog API operations.
var (
	ErrMissingToken = errors.New("catalog: storefront access token is missing")
	ErrUnauthorized = errors.New("catalog: storefront rejected access token")
	ErrRateLimited  = errors.New("catalog: rate limited by server")
	ErrBadRequest   = errors.New("catalog: bad request")
	ErrServer       = errors.New("catalog: server error")
	ErrNotFound     = errors.New("catalog: collection not found")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op   string // "fetchPage"
	Mode Mode
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("catalog %s [%s]: %v", e.Op, e.Mode, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op string, mode Mode, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Mode: mode, Err: err}
}
