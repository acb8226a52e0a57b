package ports

import (
	"context"

	"tube2mp3/internal/core/domain"
)

// TokenProvider supplies anti-bot token material for upstream calls.
type TokenProvider interface {
	// Current returns the configured token state. Pure read, no I/O.
	Current() domain.TokenConfig

	// Acquire resolves token material for a single upstream call. MANUAL
	// mode returns the static config verbatim; AUTO mode generates fresh
	// material and may fail with domain.ErrTokenGeneration.
	Acquire(ctx context.Context) (domain.TokenConfig, error)

	// Status reports the diagnostics view without exposing raw values.
	Status() domain.TokenStatus
}

// Resolver queries the upstream platform for a video's metadata and
// selects the stream to download.
type Resolver interface {
	Resolve(ctx context.Context, req domain.ConversionRequest, token domain.TokenConfig) (*domain.ResolvedStream, error)
}

// Stager writes a resolved stream to a uniquely named temporary file.
// A failed download leaves no partial file behind.
type Stager interface {
	Download(ctx context.Context, stream *domain.ResolvedStream) (domain.StagedFile, error)
}

// Transcoder re-encodes a raw download's audio track to MP3 at a second
// temporary path. It does not delete its input.
type Transcoder interface {
	Transcode(ctx context.Context, raw domain.StagedFile) (domain.StagedFile, error)
}

// Converter is the whole pipeline as seen by the transport layer.
type Converter interface {
	Convert(ctx context.Context, rawURL string) (*domain.ConversionResult, error)
}
