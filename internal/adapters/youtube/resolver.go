package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"

	"tube2mp3/internal/core/domain"
)

// Resolver implements ports.Resolver against the platform's metadata API.
type Resolver struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Resolver {
	return &Resolver{log: log.With().Str("component", "resolver").Logger()}
}

// Resolve fetches the video's metadata and selects the stream to
// download. Token material rides along on every upstream request through
// the client's transport.
func (r *Resolver) Resolve(ctx context.Context, req domain.ConversionRequest, token domain.TokenConfig) (*domain.ResolvedStream, error) {
	client := &youtube.Client{
		HTTPClient: &http.Client{Transport: newTokenTransport(token)},
	}

	video, err := client.GetVideoContext(ctx, req.VideoID)
	if err != nil {
		return nil, mapUpstreamErr(err)
	}

	format, err := pickFormat(video.Formats)
	if err != nil {
		return nil, err
	}

	r.log.Debug().
		Str("video_id", req.VideoID).
		Int("itag", format.ItagNo).
		Str("mime_type", format.MimeType).
		Int("bitrate", format.Bitrate).
		Msg("selected stream")

	return &domain.ResolvedStream{
		Title:  video.Title,
		Handle: &streamHandle{client: client, video: video, format: format},
	}, nil
}

// streamHandle defers opening the media stream until the downloader asks
// for it, so download failures are attributed to the download step.
type streamHandle struct {
	client *youtube.Client
	video  *youtube.Video
	format *youtube.Format
}

func (h *streamHandle) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	body, size, err := h.client.GetStreamContext(ctx, h.video, h.format)
	if err != nil {
		return nil, 0, mapUpstreamErr(err)
	}
	return body, size, nil
}

// pickFormat selects the highest-bitrate audio-only format. Without one it
// falls back to the highest-resolution combined format, whose audio is
// extracted downstream. Ties break on audio channels then lower itag
// (audio), and on bitrate (combined), so selection is deterministic.
func pickFormat(formats youtube.FormatList) (*youtube.Format, error) {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if best == nil || betterAudio(f, best) {
			best = f
		}
	}
	if best != nil {
		return best, nil
	}

	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "video/") || f.AudioChannels == 0 {
			continue
		}
		if best == nil || betterCombined(f, best) {
			best = f
		}
	}
	if best != nil {
		return best, nil
	}

	return nil, fmt.Errorf("%w: no stream with an audio track", domain.ErrUpstreamUnavailable)
}

func betterAudio(a, b *youtube.Format) bool {
	if a.Bitrate != b.Bitrate {
		return a.Bitrate > b.Bitrate
	}
	if a.AudioChannels != b.AudioChannels {
		return a.AudioChannels > b.AudioChannels
	}
	return a.ItagNo < b.ItagNo
}

func betterCombined(a, b *youtube.Format) bool {
	if a.Height != b.Height {
		return a.Height > b.Height
	}
	return a.Bitrate > b.Bitrate
}

// mapUpstreamErr translates client failures into the pipeline's error
// categories. A 403 and login walls are bot blocks; playability failures
// are terminal unless their reason names the bot check.
func mapUpstreamErr(err error) error {
	var statusErr youtube.ErrUnexpectedStatusCode
	if errors.As(err, &statusErr) {
		if int(statusErr) == http.StatusForbidden {
			return fmt.Errorf("%w: %v", domain.ErrUpstreamBlocked, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	if errors.Is(err, youtube.ErrLoginRequired) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamBlocked, err)
	}
	if errors.Is(err, youtube.ErrVideoPrivate) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	var playPtr *youtube.ErrPlayabiltyStatus
	var playVal youtube.ErrPlayabiltyStatus
	if errors.As(err, &playPtr) {
		playVal = *playPtr
	} else if !errors.As(err, &playVal) {
		playVal = youtube.ErrPlayabiltyStatus{}
	}
	if playVal.Status != "" {
		if strings.Contains(strings.ToLower(playVal.Reason), "bot") {
			return fmt.Errorf("%w: %v", domain.ErrUpstreamBlocked, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
}

// tokenTransport attaches token material to every upstream request: the
// visitor id as a header, and the proof-of-origin token as the pot query
// parameter on media hosts.
type tokenTransport struct {
	base  http.RoundTripper
	token domain.TokenConfig
}

func newTokenTransport(token domain.TokenConfig) http.RoundTripper {
	return &tokenTransport{base: http.DefaultTransport, token: token}
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.token.PoToken == "" && t.token.VisitorData == "" {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	if t.token.VisitorData != "" {
		clone.Header.Set("X-Goog-Visitor-Id", t.token.VisitorData)
	}
	if t.token.PoToken != "" && strings.HasSuffix(clone.URL.Hostname(), "googlevideo.com") {
		q := clone.URL.Query()
		q.Set("pot", t.token.PoToken)
		clone.URL.RawQuery = q.Encode()
	}
	return t.base.RoundTrip(clone)
}
