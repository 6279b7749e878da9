package native

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"github.com/kkdai/youtube/v2"

	"reel/internal/acquisition"
	"reel/internal/logging"
)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client (primarily for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.yt.HTTPClient = hc
		}
	}
}

// Client is the in-process secondary backend built on kkdai/youtube with
// Android-client impersonation.
type Client struct {
	yt     *youtube.Client
	logger *slog.Logger
}

// New constructs the native backend. The package-level default client info
// switches to the Android identity; the Innertube API treats it the most
// leniently for audio streams.
func New(logger *slog.Logger, opts ...Option) *Client {
	youtube.DefaultClient = youtube.AndroidClient
	c := &Client{
		yt:     &youtube.Client{HTTPClient: &http.Client{}},
		logger: logging.NewComponentLogger(logger, "native"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetLogger updates the client's logging destination while preserving
// component labeling.
func (c *Client) SetLogger(logger *slog.Logger) {
	c.logger = logging.NewComponentLogger(logger, "native")
}

// Name identifies the backend in waterfall logs and artifact methods.
func (c *Client) Name() string { return "native" }

// FetchAudio resolves the video, picks the best audio-only format, and
// streams it into the scratch directory.
func (c *Client) FetchAudio(ctx context.Context, req acquisition.Request) (*acquisition.Download, error) {
	if strings.TrimSpace(req.ScratchDir) == "" {
		return nil, acquisition.NewError(acquisition.KindTransient, "scratch directory required")
	}
	logger := logging.WithContext(ctx, c.logger)

	video, err := c.yt.GetVideoContext(ctx, req.URL)
	if err != nil {
		return nil, mapError(err)
	}
	format, err := selectAudioFormat(video.Formats)
	if err != nil {
		return nil, err
	}
	ext := mimeToExt(format.MimeType)
	path := filepath.Join(req.ScratchDir, video.ID+"."+ext)
	logger.Info("streaming audio format",
		logging.Int("itag", format.ItagNo),
		logging.Int("bitrate", bitrateFor(format)),
		logging.String("mime_type", format.MimeType))

	if err := c.download(ctx, logger, video, format, path); err != nil {
		return nil, err
	}

	uploadDate := ""
	if !video.PublishDate.IsZero() {
		uploadDate = video.PublishDate.Format("20060102")
	}
	return &acquisition.Download{
		Path: path,
		Info: acquisition.MediaInfo{
			ID:              video.ID,
			Title:           video.Title,
			Uploader:        video.Author,
			UploadDate:      uploadDate,
			DurationSeconds: video.Duration.Seconds(),
			Ext:             ext,
		},
	}, nil
}

// download streams the format into path. A 403 from the chunked transfer is
// retried once as a single request by zeroing ContentLength.
func (c *Client) download(ctx context.Context, logger *slog.Logger, video *youtube.Video, format *youtube.Format, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return acquisition.NewError(acquisition.KindTransient, "create output file: "+err.Error())
	}
	defer file.Close()

	stream, _, err := c.yt.GetStreamContext(ctx, video, format)
	if err != nil {
		return mapError(err)
	}
	_, copyErr := copyWithContext(ctx, file, stream)
	stream.Close()
	if copyErr != nil && isStatus(copyErr, http.StatusForbidden) {
		logger.Warn("403 from chunked download, retrying with a single request")
		if _, err := file.Seek(0, 0); err != nil {
			return acquisition.NewError(acquisition.KindTransient, "rewind output file: "+err.Error())
		}
		if err := file.Truncate(0); err != nil {
			return acquisition.NewError(acquisition.KindTransient, "truncate output file: "+err.Error())
		}
		single := *format
		single.ContentLength = 0
		retryStream, _, err := c.yt.GetStreamContext(ctx, video, &single)
		if err != nil {
			return mapError(err)
		}
		_, copyErr = copyWithContext(ctx, file, retryStream)
		retryStream.Close()
	}
	if copyErr != nil {
		return mapError(copyErr)
	}
	return nil
}

// selectAudioFormat keeps audio-only formats (audio channels present, no
// video dimensions) and picks the highest bitrate.
func selectAudioFormat(formats youtube.FormatList) (*youtube.Format, error) {
	var best *youtube.Format
	for i := range formats {
		format := &formats[i]
		if format.AudioChannels == 0 {
			continue
		}
		if format.Width != 0 || format.Height != 0 {
			continue
		}
		if best == nil || bitrateFor(format) > bitrateFor(best) {
			best = format
		}
	}
	if best == nil {
		return nil, acquisition.NewError(acquisition.KindTransient, "no audio-only formats available")
	}
	return best, nil
}

func bitrateFor(f *youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return 0
}

// mapError folds typed youtube errors into the acquisition taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, youtube.ErrVideoPrivate):
		return acquisition.NewError(acquisition.KindPrivate, err.Error())
	case errors.Is(err, youtube.ErrLoginRequired):
		return acquisition.NewError(acquisition.KindAgeRestricted, err.Error())
	case errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return acquisition.NewError(acquisition.KindTransient, err.Error())
	}
	var statusErr *youtube.ErrPlayabiltyStatus
	if errors.As(err, &statusErr) {
		return acquisition.NewError(acquisition.ClassifyText(statusErr.Status+" "+statusErr.Reason), err.Error())
	}
	var codeErr youtube.ErrUnexpectedStatusCode
	if errors.As(err, &codeErr) {
		switch int(codeErr) {
		case http.StatusTooManyRequests:
			return acquisition.NewError(acquisition.KindRateLimited, err.Error())
		case http.StatusForbidden:
			return acquisition.NewError(acquisition.KindForbidden, err.Error())
		}
		return acquisition.NewError(acquisition.KindTransient, err.Error())
	}
	return acquisition.NewError(acquisition.ClassifyText(err.Error()), err.Error())
}

func isStatus(err error, code int) bool {
	var codeErr youtube.ErrUnexpectedStatusCode
	if errors.As(err, &codeErr) {
		return int(codeErr) == code
	}
	return false
}

func mimeToExt(mime string) string {
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	parts := strings.Split(mime, "/")
	if len(parts) == 2 && parts[1] != "" {
		if parts[1] == "3gpp" {
			return "3gp"
		}
		return parts[1]
	}
	return "bin"
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 128*1024)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			wn, writeErr := dst.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, writeErr
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return written, nil
			}
			return written, readErr
		}
	}
}
