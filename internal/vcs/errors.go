package vcs

import (
	"fmt"
	"net/http"
)

// NoDriverError is returned when no driver recognizes the repository URL.
type NoDriverError struct {
	URL string
}

// Error implements the error interface.
func (e *NoDriverError) Error() string {
	return fmt.Sprintf("no driver found to handle repository %s", e.URL)
}

// TransportError is a network or remote failure while talking to the host.
// Status carries an HTTP-like status code when one is known, 0 otherwise.
type TransportError struct {
	URL    string
	Ref    RefID
	Status int
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("failed to fetch from %s at ref %s: %v", e.URL, e.Ref, e.Err)
	}
	return fmt.Sprintf("failed to fetch from %s: %v", e.URL, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the remote answered with a not-found condition.
func (e *TransportError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// ManifestError is a failure to parse the manifest fetched from the remote.
type ManifestError struct {
	URL string
	Ref RefID
	Err error
}

// Error implements the error interface.
func (e *ManifestError) Error() string {
	return fmt.Sprintf("invalid manifest in %s at ref %s: %v", e.URL, e.Ref, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *ManifestError) Unwrap() error {
	return e.Err
}
