package matcher

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned when a session is configured with a
	// non-positive threshold, a missing collaborator or non-unique record IDs.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrNoMatchesFound is returned by Run when resolution leaves no pairs.
	ErrNoMatchesFound = errors.New("no matching objects found")

	// ErrNotRun is returned by Matches before a successful Run.
	ErrNotRun = errors.New("session has no valid match set")

	// ErrInvalidCandidate is returned when the candidate generator returns a
	// pair that violates its contract.
	ErrInvalidCandidate = errors.New("invalid candidate pair")
)

// ConfigError describes which setting was rejected.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfiguration }

// NoMatchesError reports the sizes of the sets that failed to match.
type NoMatchesError struct {
	Observed  int
	Reference int
}

func (e *NoMatchesError) Error() string {
	return fmt.Sprintf("no matching objects found (%d observed, %d reference)", e.Observed, e.Reference)
}

func (e *NoMatchesError) Unwrap() error { return ErrNoMatchesFound }

func configErr(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
