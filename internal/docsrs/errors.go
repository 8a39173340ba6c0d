package docsrs

import (
	"fmt"
	"time"
)

// CrateNotFoundError reports a 404 from docs.rs for the requested crate
// and version.
type CrateNotFoundError struct {
	Crate   string
	Version string
}

func (e *CrateNotFoundError) Error() string {
	return fmt.Sprintf(
		"crate %s@%s not found on docs.rs: rustdoc JSON is only published for releases built on or after 2025-05-23; older releases have no JSON artifact",
		e.Crate, e.Version)
}

// HTTPError reports an unsuccessful response status other than 404, or a
// transport-level failure (StatusCode 0) not otherwise classified.
type HTTPError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("docs.rs request failed: %v", e.Err)
	}
	return fmt.Sprintf("docs.rs returned %s", e.Status)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that the configured deadline elapsed, or the
// caller's context was cancelled, before the fetch completed.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("docs.rs request aborted after the configured timeout of %s", e.Timeout)
}

// DecompressError reports that the encoding named by the response could
// not be reversed.
type DecompressError struct {
	Encoding string
	Err      error
}

func (e *DecompressError) Error() string {
	return fmt.Sprintf("failed to decompress %s response body: %v", e.Encoding, e.Err)
}

func (e *DecompressError) Unwrap() error {
	return e.Err
}

// ParseError reports an empty or syntactically invalid payload. Preview
// holds at most the first 200 characters of the offending text; the full
// body is never carried in the error.
type ParseError struct {
	Preview string
	Length  int
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid documentation payload (%d bytes): %v; preview: %q", e.Length, e.Err, e.Preview)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
