// Package renderer holds the error taxonomy shared by the fetch, decode,
// compose, artifact, and registry layers. The pipeline that wires them
// together lives in package registry.
package renderer

import (
	"errors"
	"strconv"
)

// Sentinel errors for conditions that callers distinguish with errors.Is.
var (
	// ErrInvalidPayload marks a structural or limit violation on submit.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrInvalidDataUrl marks a malformed data: URI.
	ErrInvalidDataUrl = errors.New("invalid data url")
	// ErrNotFound marks an unknown jobId on poll.
	ErrNotFound = errors.New("job not found")
	// ErrUnauthorized marks a missing/invalid bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTimeout marks a fetch that exceeded its per-request deadline.
	ErrTimeout = errors.New("timeout")
)

// UpstreamError reports an HTTP status of 400 or above from an asset fetch.
type UpstreamError struct {
	Status int
	URL    string
}

func (e *UpstreamError) Error() string {
	return "upstream error: status " + strconv.Itoa(e.Status) + " fetching " + e.URL
}

// FetchError wraps a network/transport failure reaching an asset URL.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return "fetch error for " + e.URL + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError wraps an image-decode failure for a given source.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return "decode error for " + e.Source + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError wraps a PNG/GIF encoder failure. Fatal for the job.
type EncodeError struct {
	Format string
	Err    error
}

func (e *EncodeError) Error() string {
	return "encode error (" + e.Format + "): " + e.Err.Error()
}

func (e *EncodeError) Unwrap() error { return e.Err }

// IOError wraps an artifact-directory write failure. Fatal for the job.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return "io error writing " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error { return e.Err }
