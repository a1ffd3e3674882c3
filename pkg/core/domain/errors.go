package domain

import (
	"errors"
	"fmt"
)

// Store-level errors.
var (
	// ErrShortCodeTaken is returned by a store when inserting a link violates
	// the (domain, short code) uniqueness constraint.
	ErrShortCodeTaken = errors.New("short code already taken")

	// ErrNotInTransaction is returned when a write that requires a
	// transaction is attempted outside of one.
	ErrNotInTransaction = errors.New("operation requires an active transaction")
)

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidDestinationError is returned when the long URL is malformed,
// unreachable or rejected by policy.
type InvalidDestinationError struct {
	URL    string
	Reason string
	Err    error
}

func (e *InvalidDestinationError) Error() string {
	msg := fmt.Sprintf("invalid destination %q: %s", e.URL, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidDestinationError) Unwrap() error { return e.Err }

// ResolutionError is returned when a domain or tag reference cannot be
// turned into an entity.
type ResolutionError struct {
	Kind  string // "domain" or "tag"
	Value string
	Err   error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("could not resolve %s %q", e.Kind, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// NonUniqueSlugError is returned when a custom slug is already in use in
// its domain scope. DomainAuthority is empty for the default scope.
type NonUniqueSlugError struct {
	Slug            string
	DomainAuthority string
}

func (e *NonUniqueSlugError) Error() string {
	if e.DomainAuthority == "" {
		return fmt.Sprintf("provided slug %q is already in use", e.Slug)
	}
	return fmt.Sprintf("provided slug %q is already in use for domain %q", e.Slug, e.DomainAuthority)
}

// AllocationExhaustedError is returned when no free generated short code
// could be reserved within the attempt budget.
type AllocationExhaustedError struct {
	Attempts        int
	DomainAuthority string
}

func (e *AllocationExhaustedError) Error() string {
	scope := "default domain"
	if e.DomainAuthority != "" {
		scope = fmt.Sprintf("domain %q", e.DomainAuthority)
	}
	return fmt.Sprintf("could not allocate a unique short code for %s after %d attempts", scope, e.Attempts)
}
