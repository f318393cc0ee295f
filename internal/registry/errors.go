package registry

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds reported by the registry. Callers match them with errors.Is.
var (
	ErrInvalidName   = errors.New("registry: invalid agent name")
	ErrInvalidInput  = errors.New("registry: invalid agent attributes")
	ErrAlreadyExists = errors.New("registry: agent already exists")
	ErrForbidden     = errors.New("registry: operation forbidden")
	ErrNotFound      = errors.New("registry: agent not found")
)

// NotFoundError is returned when a name has no visible record. Visible holds
// the names that were visible at the time of the lookup.
type NotFoundError struct {
	Name    string
	Visible []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("registry: agent %q not found (available: %s)", e.Name, strings.Join(e.Visible, ", "))
}

// Unwrap makes errors.Is(err, ErrNotFound) hold.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// VisibleNames extracts the visible-name list from a NotFound error.
// Returns nil, false for any other error.
func VisibleNames(err error) ([]string, bool) {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Visible, true
	}
	return nil, false
}
