package acquisition

import (
	"fmt"
	"net/url"
	"strings"

	"reel/internal/services"
)

var videoHosts = map[string]bool{
	"youtube.com":          true,
	"www.youtube.com":      true,
	"m.youtube.com":        true,
	"music.youtube.com":    true,
	"youtu.be":             true,
	"youtube-nocookie.com": true,
}

// ValidateURL checks that raw names a supported video page. The scheme is
// optional; bare host/path forms are accepted the way users paste them.
func ValidateURL(raw string) error {
	if _, ok := ExtractVideoID(raw); ok {
		return nil
	}
	return services.Wrap(services.ErrValidation, "", "validate url", fmt.Sprintf("unsupported video url %q", raw), nil)
}

// ExtractVideoID pulls the 11-character video identifier out of any of the
// supported URL shapes: watch?v=, youtu.be/, embed/, shorts/, v/.
func ExtractVideoID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	if !videoHosts[host] && !videoHosts[strings.TrimPrefix(host, "www.")] {
		return "", false
	}

	if host == "youtu.be" {
		return checkVideoID(firstPathSegment(parsed.Path))
	}
	if id := parsed.Query().Get("v"); id != "" {
		return checkVideoID(id)
	}
	for _, prefix := range []string{"/embed/", "/shorts/", "/v/", "/live/"} {
		if rest, ok := strings.CutPrefix(parsed.Path, prefix); ok {
			return checkVideoID(firstPathSegment("/" + rest))
		}
	}
	return "", false
}

func firstPathSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		path = path[:idx]
	}
	return path
}

func checkVideoID(id string) (string, bool) {
	if len(id) != 11 {
		return "", false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return "", false
		}
	}
	return id, true
}
