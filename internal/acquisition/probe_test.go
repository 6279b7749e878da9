package acquisition

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestOEmbedProbeAccessible(t *testing.T) {
	var gotURL string
	var gotHeaders map[string]string
	probe := &OEmbedProbe{fetch: func(target string, headers map[string]string) ([]byte, int, error) {
		gotURL = target
		gotHeaders = headers
		return []byte(`{"title":"Sample Track","author_name":"Channel"}`), http.StatusOK, nil
	}}

	result := probe.Check(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if !result.Accessible {
		t.Fatalf("expected accessible, got %+v", result)
	}
	if result.Title != "Sample Track" || result.Author != "Channel" {
		t.Fatalf("unexpected metadata %+v", result)
	}
	if !strings.HasPrefix(gotURL, oembedEndpoint+"?url=") || !strings.Contains(gotURL, "format=json") {
		t.Fatalf("unexpected probe url %q", gotURL)
	}
	if strings.Contains(gotURL, "watch?v=") {
		t.Fatalf("target url should be escaped in %q", gotURL)
	}
	if gotHeaders["user-agent"] == "" {
		t.Fatal("expected a rotated user agent header")
	}
	if gotHeaders["referer"] == "" {
		t.Fatal("expected a referer header")
	}
}

func TestOEmbedProbeRestricted(t *testing.T) {
	probe := &OEmbedProbe{fetch: func(string, map[string]string) ([]byte, int, error) {
		return nil, http.StatusUnauthorized, nil
	}}
	result := probe.Check(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if result.Accessible {
		t.Fatal("expected restricted result")
	}
	if !strings.Contains(result.Reason, "401") {
		t.Fatalf("reason should carry the status, got %q", result.Reason)
	}
}

func TestOEmbedProbeTransportError(t *testing.T) {
	probe := &OEmbedProbe{fetch: func(string, map[string]string) ([]byte, int, error) {
		return nil, 0, errors.New("dial tcp: connection refused")
	}}
	result := probe.Check(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if result.Accessible {
		t.Fatal("expected failure result")
	}
	if !strings.Contains(result.Reason, "connection refused") {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
}

func TestOEmbedProbeCanceledContextSkips(t *testing.T) {
	called := false
	probe := &OEmbedProbe{fetch: func(string, map[string]string) ([]byte, int, error) {
		called = true
		return nil, http.StatusOK, nil
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := probe.Check(ctx, "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if !result.Accessible {
		t.Fatal("skipped probe should report accessible")
	}
	if called {
		t.Fatal("fetch should not run on a canceled context")
	}
}
