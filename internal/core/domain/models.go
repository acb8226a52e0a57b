package domain

import (
	"context"
	"io"
	"strings"
)

// TokenMode selects how anti-bot token material is produced.
type TokenMode string

const (
	TokenModeAuto   TokenMode = "auto"
	TokenModeManual TokenMode = "manual"
)

// TokenConfig carries proof-of-origin material for upstream requests.
// Construct it through AutoToken or ManualToken so AUTO mode can never
// carry stale manual fields.
type TokenConfig struct {
	Mode        TokenMode
	PoToken     string
	VisitorData string
}

// AutoToken returns a config whose material is generated fresh per
// acquisition and never persisted.
func AutoToken() TokenConfig {
	return TokenConfig{Mode: TokenModeAuto}
}

// ManualToken returns an immutable config with statically supplied
// material. Both values may be empty; resolution then proceeds with
// degraded reliability.
func ManualToken(poToken, visitorData string) TokenConfig {
	return TokenConfig{Mode: TokenModeManual, PoToken: poToken, VisitorData: visitorData}
}

// TokenStatus is the diagnostics view of a TokenConfig. It never carries
// the raw values.
type TokenStatus struct {
	Mode                  TokenMode `json:"mode"`
	TokenConfigured       bool      `json:"token_configured"`
	VisitorDataConfigured bool      `json:"visitor_data_configured"`
}

// ConversionRequest is a validated, normalized conversion input. Only the
// validator produces one.
type ConversionRequest struct {
	URL     string
	VideoID string
}

// StreamHandle is an opaque, lazily opened media stream. Open reports the
// expected byte length when the upstream knows it, or 0 otherwise.
type StreamHandle interface {
	Open(ctx context.Context) (io.ReadCloser, int64, error)
}

// ResolvedStream is the outcome of upstream metadata resolution.
type ResolvedStream struct {
	Title  string
	Handle StreamHandle
}

// StagedKind distinguishes the two temporary artifacts a request creates.
type StagedKind string

const (
	RawDownload     StagedKind = "raw_download"
	TranscodedAudio StagedKind = "transcoded_audio"
)

// StagedFile is a request-scoped temporary file. Exactly one delete must
// occur for every StagedFile created, on every exit path.
type StagedFile struct {
	Path string
	Kind StagedKind
}

// ConversionResult is a successful conversion. Stream is finite and not
// restartable; closing it releases both staged files.
type ConversionResult struct {
	Stream    io.ReadCloser
	Filename  string
	MediaType string
	Size      int64
}

// SanitizeTitle strips characters that are illegal or hostile in
// filesystem names and attachment headers. An empty result falls back to
// "audio".
func SanitizeTitle(title string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, title)

	sanitized = strings.Trim(sanitized, " .")
	if sanitized == "" {
		return "audio"
	}
	return sanitized
}
