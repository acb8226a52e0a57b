package config

import (
	"fmt"
	"os"
	"time"

	"tube2mp3/internal/core/domain"
)

// Config is the process-wide configuration, read once at startup.
type Config struct {
	Addr   string
	TmpDir string

	TokenMode   domain.TokenMode
	PoToken     string
	VisitorData string

	NodePath    string
	FFmpegPath  string
	FFprobePath string

	AudioBitrate string

	ResolveTimeout   time.Duration
	DownloadTimeout  time.Duration
	TranscodeTimeout time.Duration

	LogLevel string
}

// Load reads configuration from the environment with defaults. An unknown
// token mode is a startup error.
func Load() (Config, error) {
	cfg := Config{
		Addr:             parseString("TUBE2MP3_ADDR", ":8080"),
		TmpDir:           parseString("TUBE2MP3_TMP_DIR", os.TempDir()),
		PoToken:          parseString("TUBE2MP3_PO_TOKEN", ""),
		VisitorData:      parseString("TUBE2MP3_VISITOR_DATA", ""),
		NodePath:         parseString("TUBE2MP3_NODE_PATH", "node"),
		FFmpegPath:       parseString("TUBE2MP3_FFMPEG_PATH", "ffmpeg"),
		FFprobePath:      parseString("TUBE2MP3_FFPROBE_PATH", "ffprobe"),
		AudioBitrate:     parseString("TUBE2MP3_AUDIO_BITRATE", "192k"),
		ResolveTimeout:   parseDuration("TUBE2MP3_RESOLVE_TIMEOUT", 30*time.Second),
		DownloadTimeout:  parseDuration("TUBE2MP3_DOWNLOAD_TIMEOUT", 10*time.Minute),
		TranscodeTimeout: parseDuration("TUBE2MP3_TRANSCODE_TIMEOUT", 5*time.Minute),
		LogLevel:         parseString("TUBE2MP3_LOG_LEVEL", "info"),
	}

	switch mode := domain.TokenMode(parseString("TUBE2MP3_TOKEN_MODE", string(domain.TokenModeManual))); mode {
	case domain.TokenModeAuto, domain.TokenModeManual:
		cfg.TokenMode = mode
	default:
		return Config{}, fmt.Errorf("invalid TUBE2MP3_TOKEN_MODE %q (want auto or manual)", mode)
	}

	return cfg, nil
}

// TokenConfig builds the immutable token configuration handed to the
// provider at startup.
func (c Config) TokenConfig() domain.TokenConfig {
	if c.TokenMode == domain.TokenModeAuto {
		return domain.AutoToken()
	}
	return domain.ManualToken(c.PoToken, c.VisitorData)
}

func parseString(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultValue
}

func parseDuration(key string, defaultValue time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
