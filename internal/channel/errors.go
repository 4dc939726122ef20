package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no channel handle could be extracted from the input.
	ErrNotFound = errors.New("could not extract a channel username: use a link (t.me/username) or @username")

	// ErrUpstreamUnavailable means the public landing page could not be used.
	ErrUpstreamUnavailable = errors.New("channel page unavailable")

	// ErrEntityNotFound is returned by sessions when a handle does not resolve to a channel.
	ErrEntityNotFound = errors.New("channel entity not found")
)

// Reasons reported by UpstreamError.
const (
	ReasonStatus    = "status"
	ReasonEmptyPage = "empty_page"
	ReasonTransport = "transport"
)

// UpstreamError describes why the landing page fetch failed.
// It matches ErrUpstreamUnavailable with errors.Is.
type UpstreamError struct {
	Handle Handle
	Reason string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	switch e.Reason {
	case ReasonStatus:
		return fmt.Sprintf("channel page for %s did not load: status %d, check the link", e.Handle, e.Status)
	case ReasonEmptyPage:
		return fmt.Sprintf("channel page for %s is empty or unavailable", e.Handle)
	default:
		if e.Err != nil {
			return fmt.Sprintf("channel page for %s did not load: %v", e.Handle, e.Err)
		}
		return fmt.Sprintf("channel page for %s did not load", e.Handle)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}
