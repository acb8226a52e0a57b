package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"tube2mp3/internal/core/domain"
)

// videoIDPattern is the canonical 11-character YouTube video id.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var allowedHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
}

// ParseRequest checks that rawURL is a supported video URL and extracts
// its video id. It is purely syntactic and performs no network I/O; the
// returned request carries the canonical watch URL.
func ParseRequest(rawURL string) (domain.ConversionRequest, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return domain.ConversionRequest{}, fmt.Errorf("%w: empty url", domain.ErrInvalidURL)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return domain.ConversionRequest{}, fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return domain.ConversionRequest{}, fmt.Errorf("%w: scheme %q", domain.ErrInvalidURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if !allowedHosts[host] {
		return domain.ConversionRequest{}, fmt.Errorf("%w: host %q", domain.ErrInvalidURL, host)
	}

	id := extractVideoID(u, host)
	if !videoIDPattern.MatchString(id) {
		return domain.ConversionRequest{}, fmt.Errorf("%w: no video id in %q", domain.ErrInvalidURL, trimmed)
	}

	return domain.ConversionRequest{
		URL:     "https://www.youtube.com/watch?v=" + id,
		VideoID: id,
	}, nil
}

func extractVideoID(u *url.URL, host string) string {
	if host == "youtu.be" {
		return strings.Trim(u.Path, "/")
	}

	if u.Path == "/watch" {
		return u.Query().Get("v")
	}

	// Path-embedded forms: /shorts/<id>, /embed/<id>, /live/<id>.
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 2 {
		switch parts[0] {
		case "shorts", "embed", "live", "v":
			return parts[1]
		}
	}
	return ""
}
