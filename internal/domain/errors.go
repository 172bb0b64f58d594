package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist for the calling owner. A bookmark owned by someone
// else is indistinguishable from a missing one.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation. Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")
