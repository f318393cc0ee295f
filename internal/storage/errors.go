package storage

import "errors"

// ErrNotFound is returned when a requested agent record does not exist.
var ErrNotFound = errors.New("storage: not found")
