package acquisition

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	stealth "github.com/anatolykoptev/go-stealth"
)

const (
	oembedEndpoint      = "https://www.youtube.com/oembed"
	probeTimeoutSeconds = 10
)

// ProbeResult reports target reachability ahead of the extraction tiers.
// The result is advisory; the waterfall proceeds either way.
type ProbeResult struct {
	Accessible bool
	Title      string
	Author     string
	Reason     string
}

// OEmbedProbe checks public availability through the oEmbed endpoint using a
// Chrome TLS fingerprint client with a rotated user agent.
type OEmbedProbe struct {
	fetch func(target string, headers map[string]string) ([]byte, int, error)
}

// NewOEmbedProbe constructs the probe. The error covers TLS client
// initialization only.
func NewOEmbedProbe() (*OEmbedProbe, error) {
	client, err := stealth.NewClient(stealth.WithTimeout(probeTimeoutSeconds))
	if err != nil {
		return nil, fmt.Errorf("stealth client: %w", err)
	}
	return &OEmbedProbe{
		fetch: func(target string, headers map[string]string) ([]byte, int, error) {
			body, _, status, err := client.Do(http.MethodGet, target, headers, nil)
			return body, status, err
		},
	}, nil
}

// Check queries the oEmbed endpoint for the target video. Failures are
// folded into the result, never surfaced as hard errors.
func (p *OEmbedProbe) Check(ctx context.Context, target string) ProbeResult {
	if err := ctx.Err(); err != nil {
		return ProbeResult{Accessible: true, Reason: "probe skipped: " + err.Error()}
	}
	endpoint := oembedEndpoint + "?url=" + url.QueryEscape(target) + "&format=json"
	headers := stealth.ChromeHeaders()
	headers["user-agent"] = stealth.RandomUserAgent()
	headers["referer"] = "https://www.youtube.com/"
	body, status, err := p.fetch(endpoint, headers)
	if err != nil {
		return ProbeResult{Accessible: false, Reason: err.Error()}
	}
	switch {
	case status == http.StatusOK:
		var payload struct {
			Title  string `json:"title"`
			Author string `json:"author_name"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return ProbeResult{Accessible: true, Reason: "unreadable oembed payload"}
		}
		return ProbeResult{Accessible: true, Title: payload.Title, Author: payload.Author}
	case stealth.IsRetryableStatus(status):
		return ProbeResult{Accessible: false, Reason: fmt.Sprintf("HTTP %d (transient)", status)}
	default:
		return ProbeResult{Accessible: false, Reason: fmt.Sprintf("HTTP %d", status)}
	}
}
