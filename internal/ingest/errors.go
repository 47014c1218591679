package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/Khaja-s/iptv-player/internal/xtream"
)

// Kind is the closed set of failure categories surfaced to callers. No raw
// transport error escapes the orchestrator; everything is classified here.
type Kind int

const (
	KindTimeout Kind = iota + 1
	KindUnreachable
	KindHTTPStatus
	KindInvalidContent
	KindAuth
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnreachable:
		return "unreachable"
	case KindHTTPStatus:
		return "http_error"
	case KindInvalidContent:
		return "invalid_content"
	case KindAuth:
		return "auth_error"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is a classified ingestion failure with a short human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Status  int // HTTP status for KindHTTPStatus
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// statusError marks a non-2xx playlist fetch response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// errEmptyBody marks a 2xx playlist response with nothing in it.
var errEmptyBody = errors.New("empty response body")

const (
	sourcePlaylist = "playlist"
	sourceProvider = "provider"
)

// classifyErr maps any error from an ingestion attempt onto the taxonomy.
// Cancellation wins over everything else so a user abort never reads like a
// network failure; timeout is distinguished from cancellation even though
// both arrive as context errors at the call site.
func classifyErr(err error, source string) *Error {
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindCancelled, Message: "Loading cancelled", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: timeoutMessage(source), Err: err}
	}
	var authErr *xtream.AuthError
	if errors.As(err, &authErr) {
		return &Error{Kind: KindAuth, Message: "Account not active: " + authErr.Status, Err: err}
	}
	if errors.Is(err, xtream.ErrInvalidServer) {
		return &Error{Kind: KindInvalidContent, Message: "Not a valid provider server; check the URL and credentials", Err: err}
	}
	var xse *xtream.StatusError
	if errors.As(err, &xse) {
		return &Error{Kind: KindHTTPStatus, Status: xse.Code, Message: fmt.Sprintf("Server returned HTTP %d", xse.Code), Err: err}
	}
	var se *statusError
	if errors.As(err, &se) {
		return &Error{Kind: KindHTTPStatus, Status: se.code, Message: fmt.Sprintf("Server returned HTTP %d", se.code), Err: err}
	}
	if errors.Is(err, errEmptyBody) {
		return &Error{Kind: KindInvalidContent, Message: "The URL returned an empty response", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: timeoutMessage(source), Err: err}
	}
	// DNS failures, connection refused, TLS trouble: all transport-level.
	return &Error{Kind: KindUnreachable, Message: "Could not reach the server; check your connection", Err: err}
}

func timeoutMessage(source string) string {
	if source == sourceProvider {
		return "Provider request timed out"
	}
	return "Playlist request timed out"
}
