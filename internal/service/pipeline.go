package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tube2mp3/internal/core/domain"
	"tube2mp3/internal/core/ports"
	"tube2mp3/internal/metrics"
	"tube2mp3/internal/validate"
)

// Timeouts bounds each suspending pipeline step. Zero values leave the
// step bounded only by the caller's context.
type Timeouts struct {
	Resolve   time.Duration
	Download  time.Duration
	Transcode time.Duration
}

// Pipeline orchestrates one conversion: validate, acquire token, resolve,
// download, transcode, stream. Steps run strictly in order, nothing is
// retried, and every staged file is deleted on every exit path.
type Pipeline struct {
	tokens     ports.TokenProvider
	resolver   ports.Resolver
	stager     ports.Stager
	transcoder ports.Transcoder
	timeouts   Timeouts
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

func NewPipeline(
	tokens ports.TokenProvider,
	resolver ports.Resolver,
	stager ports.Stager,
	transcoder ports.Transcoder,
	timeouts Timeouts,
	m *metrics.Metrics,
	log zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		tokens:     tokens,
		resolver:   resolver,
		stager:     stager,
		transcoder: transcoder,
		timeouts:   timeouts,
		metrics:    m,
		log:        log.With().Str("component", "pipeline").Logger(),
	}
}

// Convert runs the full pipeline for rawURL. On success the result's
// stream owns both staged files and deletes them exactly once when the
// stream is closed, whether it was fully consumed or abandoned.
func (p *Pipeline) Convert(ctx context.Context, rawURL string) (*domain.ConversionResult, error) {
	requestID := uuid.NewString()
	log := p.log.With().Str("request_id", requestID).Logger()
	start := time.Now()

	p.metrics.InFlight.Inc()
	defer p.metrics.InFlight.Dec()

	guard := newCleanupGuard(log)

	result, err := p.run(ctx, log, guard, rawURL)
	if err != nil {
		guard.release()
		p.metrics.Conversions.WithLabelValues(domain.Category(err)).Inc()
		log.Error().Err(err).Str("category", domain.Category(err)).Msg("conversion failed")
		return nil, err
	}

	p.metrics.Conversions.WithLabelValues("success").Inc()
	p.metrics.Duration.Observe(time.Since(start).Seconds())
	log.Info().Str("filename", result.Filename).Int64("bytes", result.Size).Msg("conversion ready to stream")
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, log zerolog.Logger, guard *cleanupGuard, rawURL string) (*domain.ConversionResult, error) {
	req, err := validate.ParseRequest(rawURL)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("video_id", req.VideoID).Msg("validated")

	token, err := p.tokens.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("token_mode", string(token.Mode)).Msg("token acquired")

	resolveCtx, cancel := withTimeout(ctx, p.timeouts.Resolve)
	stream, err := p.resolver.Resolve(resolveCtx, req, token)
	cancel()
	if err != nil {
		return nil, err
	}
	log.Debug().Str("title", stream.Title).Msg("resolved")

	downloadCtx, cancel := withTimeout(ctx, p.timeouts.Download)
	raw, err := p.stager.Download(downloadCtx, stream)
	cancel()
	if err != nil {
		return nil, err
	}
	guard.track(raw)
	log.Debug().Str("path", raw.Path).Msg("downloaded")

	transcodeCtx, cancel := withTimeout(ctx, p.timeouts.Transcode)
	audio, err := p.transcoder.Transcode(transcodeCtx, raw)
	cancel()
	if err != nil {
		return nil, err
	}
	guard.track(audio)
	log.Debug().Str("path", audio.Path).Msg("transcoded")

	f, err := os.Open(audio.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: open transcoded file: %v", domain.ErrTranscode, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat transcoded file: %v", domain.ErrTranscode, err)
	}

	// From here cleanup responsibility moves to the stream's lifetime.
	return &domain.ConversionResult{
		Stream:    guard.intoStream(f),
		Filename:  domain.SanitizeTitle(stream.Title) + ".mp3",
		MediaType: "audio/mpeg",
		Size:      info.Size(),
	}, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// cleanupGuard tracks every staged file a request creates and guarantees
// each is deleted exactly once, either when the pipeline errors out or
// when the success stream is closed.
type cleanupGuard struct {
	once   sync.Once
	staged []domain.StagedFile
	log    zerolog.Logger
}

func newCleanupGuard(log zerolog.Logger) *cleanupGuard {
	return &cleanupGuard{log: log}
}

func (g *cleanupGuard) track(f domain.StagedFile) {
	g.staged = append(g.staged, f)
}

// release deletes all tracked files. Delete failures are logged and never
// propagated, so they cannot mask the error that triggered cleanup.
func (g *cleanupGuard) release() {
	g.once.Do(func() {
		for _, f := range g.staged {
			if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
				g.log.Warn().Err(err).Str("path", f.Path).Str("kind", string(f.Kind)).Msg("failed to delete staged file")
			} else {
				g.log.Debug().Str("path", f.Path).Str("kind", string(f.Kind)).Msg("deleted staged file")
			}
		}
	})
}

// intoStream binds the guard to an open file: the returned stream reads
// from f and releases every staged file on Close.
func (g *cleanupGuard) intoStream(f *os.File) *guardedStream {
	return &guardedStream{f: f, guard: g}
}

type guardedStream struct {
	f     *os.File
	guard *cleanupGuard
}

func (s *guardedStream) Read(p []byte) (int, error) {
	return s.f.Read(p)
}

// Close closes the file and runs cleanup. Safe to call more than once;
// cleanup runs exactly once.
func (s *guardedStream) Close() error {
	err := s.f.Close()
	s.guard.release()
	return err
}
