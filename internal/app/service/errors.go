package service

import "errors"

var (
	// ErrMalformedURL means the input is not an absolute http(s) URL.
	ErrMalformedURL = errors.New("malformed url")

	// ErrUnresolvableHost means the host did not resolve within the timeout.
	ErrUnresolvableHost = errors.New("unresolvable host")

	// ErrNotFound means no record has the requested short id.
	ErrNotFound = errors.New("url not found")

	// ErrStorage wraps any persistence fault other than the benign
	// registration race.
	ErrStorage = errors.New("storage failure")
)
