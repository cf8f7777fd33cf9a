package client

import (
	"errors"
	"fmt"
)

// Error is the single error shape API failures are reported in.
type Error struct {
	Verb   string
	Entity string
	Status int
	Reason string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("Failed to %s %s. Status: %d. Reason: %s", e.Verb, e.Entity, e.Status, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
