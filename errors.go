package beacon

import (
	"errors"
	"fmt"
)

var (
	// ErrCreationFailed is matched by every error returned from an operation
	// chained off a handle whose remote factory rejected the create call.
	ErrCreationFailed = errors.New("beacon: remote object creation failed")

	// ErrReleased is returned for operations issued after the handle was
	// released.
	ErrReleased = errors.New("beacon: handle released")

	// ErrNotCreated is returned for imperative calls made before the first
	// recognized field was declared.
	ErrNotCreated = errors.New("beacon: remote object not created")

	// ErrConversionSkipped marks a setter that was not issued because its
	// value factory produced nothing. It is reported through signals only.
	ErrConversionSkipped = errors.New("beacon: conversion produced no value")

	// ErrDestroyed is returned when applying declarations to a destroyed marker.
	ErrDestroyed = errors.New("beacon: marker destroyed")
)

// ConfigurationError reports a declaration that cannot be honoured in full.
// It is recorded and signalled, never returned to the caller.
type ConfigurationError struct {
	Marker string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("beacon: marker %q: %s", e.Marker, e.Reason)
}

// creationFailed wraps a factory error so it matches ErrCreationFailed
// while keeping the cause reachable.
func creationFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrCreationFailed, err)
}
