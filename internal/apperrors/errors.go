package apperrors

import "errors"

// Sentinel errors for the four failure classes the API surfaces.
// Services wrap these with %w and handlers map them to status codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
)
