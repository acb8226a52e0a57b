package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tube2mp3/internal/core/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TUBE2MP3_TOKEN_MODE", "")
	t.Setenv("TUBE2MP3_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, domain.TokenModeManual, cfg.TokenMode)
	assert.Equal(t, "node", cfg.NodePath)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "192k", cfg.AudioBitrate)
	assert.Equal(t, 30*time.Second, cfg.ResolveTimeout)
	assert.Equal(t, 10*time.Minute, cfg.DownloadTimeout)
	assert.Equal(t, 5*time.Minute, cfg.TranscodeTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TUBE2MP3_ADDR", ":9999")
	t.Setenv("TUBE2MP3_TOKEN_MODE", "auto")
	t.Setenv("TUBE2MP3_RESOLVE_TIMEOUT", "5s")
	t.Setenv("TUBE2MP3_AUDIO_BITRATE", "128k")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, domain.TokenModeAuto, cfg.TokenMode)
	assert.Equal(t, 5*time.Second, cfg.ResolveTimeout)
	assert.Equal(t, "128k", cfg.AudioBitrate)
}

func TestLoadRejectsUnknownTokenMode(t *testing.T) {
	t.Setenv("TUBE2MP3_TOKEN_MODE", "sometimes")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TUBE2MP3_TOKEN_MODE")
}

func TestLoadBadDurationFallsBack(t *testing.T) {
	t.Setenv("TUBE2MP3_TOKEN_MODE", "manual")
	t.Setenv("TUBE2MP3_DOWNLOAD_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.DownloadTimeout)
}

func TestTokenConfigVariants(t *testing.T) {
	t.Setenv("TUBE2MP3_TOKEN_MODE", "auto")
	t.Setenv("TUBE2MP3_PO_TOKEN", "stale-token")
	t.Setenv("TUBE2MP3_VISITOR_DATA", "stale-visitor")

	cfg, err := Load()
	require.NoError(t, err)

	// AUTO mode never carries manual fields, even when they are set.
	tc := cfg.TokenConfig()
	assert.Equal(t, domain.TokenModeAuto, tc.Mode)
	assert.Empty(t, tc.PoToken)
	assert.Empty(t, tc.VisitorData)

	t.Setenv("TUBE2MP3_TOKEN_MODE", "manual")
	cfg, err = Load()
	require.NoError(t, err)
	tc = cfg.TokenConfig()
	assert.Equal(t, domain.TokenModeManual, tc.Mode)
	assert.Equal(t, "stale-token", tc.PoToken)
	assert.Equal(t, "stale-visitor", tc.VisitorData)
}
