package services

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to handlers. Handlers map these to HTTP statuses;
// everything else is treated as an internal error.
var (
	ErrEmptyPrompt   = errors.New("prompt must not be empty")
	ErrPromptTooLong = errors.New("prompt exceeds maximum length")
	ErrImageNotFound = errors.New("image not found")
	ErrNotImageOwner = errors.New("not the owner of this image")
	ErrUserNotFound  = errors.New("user not found")
	ErrUpstreamEmpty = errors.New("no image data returned from upstream")
)

// UpstreamHTTPError is a non-success status from the image generation API.
// The raw response body is kept verbatim for diagnostics.
type UpstreamHTTPError struct {
	Status int
	Body   string
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

// UpstreamTransportError is a connection or timeout failure before any
// upstream status was received.
type UpstreamTransportError struct {
	Err error
}

func (e *UpstreamTransportError) Error() string {
	return fmt.Sprintf("upstream request failed: %v", e.Err)
}

func (e *UpstreamTransportError) Unwrap() error {
	return e.Err
}

// IsUpstreamError reports whether err originated at the generation API
// boundary rather than in local validation or storage.
func IsUpstreamError(err error) bool {
	var httpErr *UpstreamHTTPError
	var transportErr *UpstreamTransportError
	return errors.As(err, &httpErr) || errors.As(err, &transportErr) || errors.Is(err, ErrUpstreamEmpty)
}
