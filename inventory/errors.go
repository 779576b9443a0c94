// Copyright (c) 2025 BVK Chaitanya

package inventory

import "fmt"

// TransportError reports a network, timeout or non-success http status
// failure while querying an inventory source.
type TransportError struct {
	URL string

	// StatusCode is zero when the request did not produce a response.
	StatusCode int

	Err error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("inventory request to %s failed with http status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("inventory request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError reports a malformed inventory response.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse inventory response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
