package domain

import "errors"

// Error categories for the conversion pipeline. Components wrap these with
// fmt.Errorf("...: %w", ...) so the boundary can recover the category with
// errors.Is without losing the underlying cause.
var (
	// ErrInvalidURL marks input that is not a supported video URL.
	// Client-fixable, never retried.
	ErrInvalidURL = errors.New("invalid or unsupported video url")

	// ErrTokenGeneration marks a failed AUTO-mode token acquisition,
	// typically a missing script interpreter. Operator-fixable.
	ErrTokenGeneration = errors.New("token generation failed")

	// ErrUpstreamBlocked marks an anti-bot rejection by the platform.
	// Recoverable by switching token mode or refreshing the manual token.
	ErrUpstreamBlocked = errors.New("upstream blocked the request")

	// ErrUpstreamUnavailable marks a video that is removed, private or
	// region-locked. Terminal for the request.
	ErrUpstreamUnavailable = errors.New("video unavailable")

	// ErrDownloadIncomplete marks a truncated stream transfer.
	ErrDownloadIncomplete = errors.New("download incomplete")

	// ErrTranscode marks a decoder or encoder failure.
	ErrTranscode = errors.New("transcode failed")

	// ErrEmptyMedia marks a zero-byte or zero-duration download rejected
	// before the transcoder runs.
	ErrEmptyMedia = errors.New("media is empty")

	// ErrTimeout marks an upstream call that exceeded its bound.
	ErrTimeout = errors.New("upstream call timed out")
)

// Category returns a stable label for an error's pipeline category, for
// log fields and metrics. Unrecognized errors report "internal".
func Category(err error) string {
	switch {
	case errors.Is(err, ErrInvalidURL):
		return "validation"
	case errors.Is(err, ErrTokenGeneration):
		return "token_generation"
	case errors.Is(err, ErrUpstreamBlocked):
		return "upstream_blocked"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrDownloadIncomplete):
		return "download_incomplete"
	case errors.Is(err, ErrTranscode):
		return "transcode"
	case errors.Is(err, ErrEmptyMedia):
		return "empty_media"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "internal"
	}
}
