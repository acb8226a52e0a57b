package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tube2mp3/internal/core/domain"
)

func TestPickFormatPrefersHighestBitrateAudioOnly(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Bitrate: 500000, AudioChannels: 2, Height: 360},
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000, AudioChannels: 2},
		{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160000, AudioChannels: 2},
		{ItagNo: 250, MimeType: `audio/webm; codecs="opus"`, Bitrate: 70000, AudioChannels: 2},
	}

	got, err := pickFormat(formats)
	require.NoError(t, err)
	assert.Equal(t, 251, got.ItagNo)
}

func TestPickFormatAudioTieBreaks(t *testing.T) {
	// Same bitrate: more channels wins, then lower itag.
	formats := youtube.FormatList{
		{ItagNo: 600, MimeType: "audio/webm", Bitrate: 160000, AudioChannels: 2},
		{ItagNo: 251, MimeType: "audio/webm", Bitrate: 160000, AudioChannels: 2},
		{ItagNo: 100, MimeType: "audio/webm", Bitrate: 160000, AudioChannels: 1},
	}

	got, err := pickFormat(formats)
	require.NoError(t, err)
	assert.Equal(t, 251, got.ItagNo)
}

func TestPickFormatFallsBackToCombined(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, Bitrate: 4000000, Height: 1080}, // video-only
		{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Bitrate: 500000, AudioChannels: 2, Height: 360},
		{ItagNo: 22, MimeType: `video/mp4; codecs="avc1.64001F, mp4a.40.2"`, Bitrate: 1200000, AudioChannels: 2, Height: 720},
	}

	got, err := pickFormat(formats)
	require.NoError(t, err)
	assert.Equal(t, 22, got.ItagNo)
}

func TestPickFormatNoUsableStream(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, Bitrate: 4000000, Height: 1080},
	}

	_, err := pickFormat(formats)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
}

func TestMapUpstreamErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"http 403", youtube.ErrUnexpectedStatusCode(403), domain.ErrUpstreamBlocked},
		{"http 500", youtube.ErrUnexpectedStatusCode(500), domain.ErrUpstreamUnavailable},
		{"wrapped 403", fmt.Errorf("fetch: %w", youtube.ErrUnexpectedStatusCode(403)), domain.ErrUpstreamBlocked},
		{"login required", youtube.ErrLoginRequired, domain.ErrUpstreamBlocked},
		{"private video", youtube.ErrVideoPrivate, domain.ErrUpstreamUnavailable},
		{
			"bot check playability",
			&youtube.ErrPlayabiltyStatus{Status: "LOGIN_REQUIRED", Reason: "Sign in to confirm you're not a bot"},
			domain.ErrUpstreamBlocked,
		},
		{
			"removed video playability",
			&youtube.ErrPlayabiltyStatus{Status: "ERROR", Reason: "Video unavailable"},
			domain.ErrUpstreamUnavailable,
		},
		{"deadline", context.DeadlineExceeded, domain.ErrTimeout},
		{"unknown", errors.New("connection reset"), domain.ErrUpstreamUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapUpstreamErr(tc.err)
			assert.True(t, errors.Is(got, tc.want), "want %v, got %v", tc.want, got)
		})
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestTokenTransportInjectsMaterial(t *testing.T) {
	var seen *http.Request
	rt := &tokenTransport{
		base: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			seen = req
			return nil, errors.New("stop")
		}),
		token: domain.ManualToken("pot-token", "visitor-data"),
	}

	req, err := http.NewRequest(http.MethodGet, "https://rr1---sn-abc.googlevideo.com/videoplayback?id=42", nil)
	require.NoError(t, err)
	_, _ = rt.RoundTrip(req)

	require.NotNil(t, seen)
	assert.Equal(t, "visitor-data", seen.Header.Get("X-Goog-Visitor-Id"))
	assert.Equal(t, "pot-token", seen.URL.Query().Get("pot"))
	// Original request untouched.
	assert.Empty(t, req.Header.Get("X-Goog-Visitor-Id"))
}

func TestTokenTransportSkipsPotOffMediaHosts(t *testing.T) {
	var seen *http.Request
	rt := &tokenTransport{
		base: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			seen = req
			return nil, errors.New("stop")
		}),
		token: domain.ManualToken("pot-token", "visitor-data"),
	}

	req, err := http.NewRequest(http.MethodPost, "https://www.youtube.com/youtubei/v1/player", nil)
	require.NoError(t, err)
	_, _ = rt.RoundTrip(req)

	require.NotNil(t, seen)
	assert.Equal(t, "visitor-data", seen.Header.Get("X-Goog-Visitor-Id"))
	assert.Empty(t, seen.URL.Query().Get("pot"))
}

func TestTokenTransportNoMaterialPassthrough(t *testing.T) {
	var seen *http.Request
	rt := &tokenTransport{
		base: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			seen = req
			return nil, errors.New("stop")
		}),
		token: domain.ManualToken("", ""),
	}

	req, err := http.NewRequest(http.MethodGet, "https://www.youtube.com/watch", nil)
	require.NoError(t, err)
	_, _ = rt.RoundTrip(req)

	require.Same(t, req, seen)
}
