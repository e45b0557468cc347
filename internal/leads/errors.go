package leads

import "errors"

var (
	// ErrNotFound is returned when no lead matches the given id or phone.
	ErrNotFound = errors.New("leads: lead not found")
	// ErrMissingPhone is returned when a lead would be created without its
	// natural key.
	ErrMissingPhone = errors.New("leads: phone is required")
	// ErrInvalidStatus is returned when a status transition names an
	// unregistered pipeline status.
	ErrInvalidStatus = errors.New("leads: invalid status")
)
