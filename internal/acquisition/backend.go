package acquisition

import (
	"context"

	"reel/internal/identity"
)

// Request carries the inputs for one extraction attempt.
type Request struct {
	URL         string
	Strategy    Strategy
	Fingerprint identity.Fingerprint
	ScratchDir  string
}

// MediaInfo captures the source metadata a backend reports with a download.
type MediaInfo struct {
	ID              string
	Title           string
	Uploader        string
	UploadDate      string
	DurationSeconds float64
	Ext             string
}

// Download is a fetched audio container plus its source metadata.
type Download struct {
	Path string
	Info MediaInfo
}

// Backend downloads the best available audio track for one attempt. The
// secondary backend ignores Request.Strategy.
type Backend interface {
	Name() string
	FetchAudio(ctx context.Context, req Request) (*Download, error)
}

// DirectFetcher downloads a concrete media URL recovered outside the
// strategy catalog, bypassing site extraction.
type DirectFetcher interface {
	FetchDirect(ctx context.Context, req Request) (*Download, error)
}
