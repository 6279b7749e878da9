package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"log/slog"

	"reel/internal/acquisition"
	"reel/internal/logging"
	"reel/internal/services"
)

const (
	defaultFormat   = "bestaudio/best"
	defaultReferer  = "https://www.youtube.com/"
	retryCount      = 5
	rateLimitFloor  = 30000
	rateLimitCeil   = 70000
	outputTemplate  = "%(title)s.%(ext)s"
	maxErrorSummary = 3
)

var audioExtensions = map[string]bool{
	".webm": true,
	".mp4":  true,
	".m4a":  true,
	".wav":  true,
	".mp3":  true,
	".ogg":  true,
	".opus": true,
	".aac":  true,
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps the yt-dlp CLI as an acquisition backend.
type Client struct {
	binary string
	logger *slog.Logger
	exec   Executor
}

// New constructs a yt-dlp client.
func New(binary string, logger *slog.Logger, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "ytdlp"),
		exec:   commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SetLogger updates the client's logging destination while preserving
// component labeling, used when the workflow hands stages an item-scoped
// logger.
func (c *Client) SetLogger(logger *slog.Logger) {
	c.logger = logging.NewComponentLogger(logger, "ytdlp")
}

// Name identifies the backend in waterfall logs and artifact methods.
func (c *Client) Name() string { return "ytdlp" }

// FetchAudio downloads the best audio stream for the request using the
// strategy's extractor configuration.
func (c *Client) FetchAudio(ctx context.Context, req acquisition.Request) (*acquisition.Download, error) {
	return c.fetch(ctx, req, false)
}

// FetchDirect downloads a concrete media URL without site extraction, used
// for URLs recovered by the agent tier.
func (c *Client) FetchDirect(ctx context.Context, req acquisition.Request) (*acquisition.Download, error) {
	return c.fetch(ctx, req, true)
}

func (c *Client) fetch(ctx context.Context, req acquisition.Request, direct bool) (*acquisition.Download, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, services.Wrap(services.ErrValidation, "", "yt-dlp", "download url required", nil)
	}
	if strings.TrimSpace(req.ScratchDir) == "" {
		return nil, services.Wrap(services.ErrValidation, "", "yt-dlp", "scratch directory required", nil)
	}
	args := c.buildArgs(req, direct)
	collector := newOutputCollector(logging.WithContext(ctx, c.logger))

	runErr := c.exec.Run(ctx, c.binary, args, collector.consume)
	if runErr != nil {
		summary := collector.errorSummary()
		if summary == "" {
			summary = "download failed"
		}
		return nil, services.Wrap(services.ErrExternalTool, "", "yt-dlp", summary, runErr)
	}

	info := collector.info()
	path, err := locateDownload(req.ScratchDir, info)
	if err != nil {
		return nil, err
	}
	download := &acquisition.Download{Path: path}
	if info != nil {
		download.Info = acquisition.MediaInfo{
			ID:              info.ID,
			Title:           info.Title,
			Uploader:        info.Uploader,
			UploadDate:      info.UploadDate,
			DurationSeconds: info.Duration,
			Ext:             info.Ext,
		}
	}
	if download.Info.Ext == "" {
		download.Info.Ext = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	return download, nil
}

// buildArgs renders the strategy and fingerprint into CLI flags. Pacing
// values are randomized per call the same way each attempt carries a fresh
// fingerprint.
func (c *Client) buildArgs(req acquisition.Request, direct bool) []string {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"--print-json",
		"--format", defaultFormat,
		"--output", filepath.Join(req.ScratchDir, outputTemplate),
		"--retries", strconv.Itoa(retryCount),
		"--fragment-retries", strconv.Itoa(retryCount),
		"--concurrent-fragments", "1",
		"--limit-rate", strconv.Itoa(rateLimitFloor + rand.IntN(rateLimitCeil-rateLimitFloor+1)),
		"--sleep-interval", formatSeconds(uniform(1, 3)),
		"--max-sleep-interval", formatSeconds(uniform(3, 6)),
		"--sleep-requests", formatSeconds(uniform(0.5, 2)),
	}
	if ua := strings.TrimSpace(req.Fingerprint.UserAgent); ua != "" {
		args = append(args, "--user-agent", ua)
	}
	args = append(args, "--referer", defaultReferer)
	for _, header := range sortedHeaders(req.Fingerprint.Headers) {
		args = append(args, "--add-header", header)
	}
	if !direct {
		if extractorArgs := renderExtractorArgs(req.Strategy); extractorArgs != "" {
			args = append(args, "--extractor-args", extractorArgs)
		}
	}
	return append(args, req.URL)
}

// renderExtractorArgs builds the youtube:key=value;... argument from the
// strategy record. Empty fields are omitted.
func renderExtractorArgs(strategy acquisition.Strategy) string {
	var parts []string
	if len(strategy.Clients) > 0 {
		parts = append(parts, "player_client="+strings.Join(strategy.Clients, ","))
	}
	if len(strategy.SkipFormats) > 0 {
		parts = append(parts, "skip="+strings.Join(strategy.SkipFormats, ","))
	}
	if len(strategy.PlayerSkip) > 0 {
		parts = append(parts, "player_skip="+strings.Join(strategy.PlayerSkip, ","))
	}
	if host := strings.TrimSpace(strategy.InnertubeHost); host != "" {
		parts = append(parts, "innertube_host="+host)
	}
	if key := strings.TrimSpace(strategy.InnertubeKey); key != "" {
		parts = append(parts, "innertube_key="+key)
	}
	if len(parts) == 0 {
		return ""
	}
	return "youtube:" + strings.Join(parts, ";")
}

// sortedHeaders renders fingerprint headers as Field:Value flags in stable
// order. Referer is excluded; it travels through the dedicated flag.
func sortedHeaders(headers map[string]string) []string {
	if len(headers) == 0 {
		return nil
	}
	keys := make([]string, 0, len(headers))
	for key := range headers {
		if strings.EqualFold(key, "Referer") || strings.EqualFold(key, "User-Agent") {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, key+":"+headers[key])
	}
	return out
}

// infoPayload is the subset of the yt-dlp info JSON the pipeline uses.
type infoPayload struct {
	ID                 string  `json:"id"`
	Title              string  `json:"title"`
	Uploader           string  `json:"uploader"`
	UploadDate         string  `json:"upload_date"`
	Duration           float64 `json:"duration"`
	Ext                string  `json:"ext"`
	Filename           string  `json:"_filename"`
	RequestedDownloads []struct {
		Filepath string `json:"filepath"`
	} `json:"requested_downloads"`
}

// locateDownload resolves the downloaded container: the path named in the
// info JSON when present, otherwise the newest audio file in the scratch
// directory.
func locateDownload(scratchDir string, info *infoPayload) (string, error) {
	if info != nil {
		for _, candidate := range infoCandidatePaths(info) {
			if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
				return candidate, nil
			}
		}
	}
	entries, err := os.ReadDir(scratchDir)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "", "yt-dlp", "inspect scratch dir", err)
	}
	var newestPath string
	var newestMod int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !audioExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := fi.ModTime().UnixNano(); newestPath == "" || mod > newestMod {
			newestPath = filepath.Join(scratchDir, entry.Name())
			newestMod = mod
		}
	}
	if newestPath == "" {
		return "", services.Wrap(services.ErrExternalTool, "", "yt-dlp", "no audio file was downloaded", nil)
	}
	return newestPath, nil
}

func infoCandidatePaths(info *infoPayload) []string {
	var paths []string
	for _, download := range info.RequestedDownloads {
		if p := strings.TrimSpace(download.Filepath); p != "" {
			paths = append(paths, p)
		}
	}
	if p := strings.TrimSpace(info.Filename); p != "" {
		paths = append(paths, p)
	}
	return paths
}

// outputCollector accumulates subprocess lines: progress lines go to the
// sampled logger, JSON lines are kept for metadata, error lines feed the
// failure summary. consume is called from two scanner goroutines.
type outputCollector struct {
	mu         sync.Mutex
	logger     *slog.Logger
	sampler    *logging.ProgressSampler
	errorLines []string
	jsonLine   string
}

func newOutputCollector(logger *slog.Logger) *outputCollector {
	return &outputCollector{
		logger:  logger,
		sampler: logging.NewProgressSampler(5),
	}
}

func (c *outputCollector) consume(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case strings.HasPrefix(trimmed, "{"):
		c.jsonLine = trimmed
	case strings.HasPrefix(trimmed, "ERROR"):
		if len(c.errorLines) < maxErrorSummary {
			c.errorLines = append(c.errorLines, trimmed)
		}
	default:
		if percent, ok := parseProgress(trimmed); ok {
			if c.sampler.ShouldLog(percent, "downloading", trimmed) {
				c.logger.Info("download progress", logging.Float64("percent", percent))
			}
		}
	}
}

func (c *outputCollector) errorSummary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.errorLines, "; ")
}

func (c *outputCollector) info() *infoPayload {
	c.mu.Lock()
	line := c.jsonLine
	c.mu.Unlock()
	if line == "" {
		return nil
	}
	var payload infoPayload
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		c.logger.Warn("unreadable info json", logging.Error(err))
		return nil
	}
	return &payload
}

// parseProgress extracts the percent from lines shaped like
// "[download]  42.7% of 3.4MiB at 1.1MiB/s".
func parseProgress(line string) (float64, bool) {
	if !strings.HasPrefix(line, "[download]") {
		return 0, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, "[download]"))
	idx := strings.IndexByte(rest, '%')
	if idx <= 0 {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(rest[:idx]), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func uniform(lo, hi float64) float64 {
	return lo + rand.Float64()*(hi-lo)
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 1, 64)
}
