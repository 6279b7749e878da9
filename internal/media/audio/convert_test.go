package audio_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/media/audio"
	"reel/internal/services"
)

// writeStubFFmpeg installs a shell script that records its arguments and
// writes a small payload to the last argument (the output path).
func writeStubFFmpeg(t *testing.T, dir string, body string) string {
	t.Helper()
	path := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\n" + body
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub ffmpeg: %v", err)
	}
	return path
}

func testConverter(t *testing.T, ffmpegBody string) (*audio.Converter, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Convert.FFmpegCommand = writeStubFFmpeg(t, dir, ffmpegBody)
	return audio.NewConverter(&cfg, logging.NewNop()), dir
}

func TestToCanonicalRunsFFmpeg(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	body := fmt.Sprintf("printf '%%s\\n' \"$@\" > %q\nout=\"\"\nfor a in \"$@\"; do out=\"$a\"; done\nprintf 'RIFFdata' > \"$out\"\n", argsFile)

	cfg := config.Default()
	cfg.Convert.FFmpegCommand = writeStubFFmpeg(t, dir, body)
	conv := audio.NewConverter(&cfg, logging.NewNop())

	container := filepath.Join(dir, "track.webm")
	if err := os.WriteFile(container, []byte("container"), 0o644); err != nil {
		t.Fatalf("write container: %v", err)
	}
	wav := filepath.Join(dir, "track.wav")

	if err := conv.ToCanonical(context.Background(), container, wav); err != nil {
		t.Fatalf("ToCanonical() error = %v", err)
	}

	payload, err := os.ReadFile(wav)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	if len(payload) == 0 {
		t.Fatal("wav output is empty")
	}

	raw, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read recorded args: %v", err)
	}
	args := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	wantPairs := map[string]string{
		"-i":      container,
		"-acodec": "pcm_s16le",
		"-ar":     "16000",
		"-ac":     "1",
	}
	for flag, want := range wantPairs {
		found := false
		for i, arg := range args {
			if arg == flag && i+1 < len(args) && args[i+1] == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("args missing %s %s: %v", flag, want, args)
		}
	}
	hasVN := false
	for _, arg := range args {
		if arg == "-vn" {
			hasVN = true
		}
	}
	if !hasVN {
		t.Fatalf("args missing -vn: %v", args)
	}
	if args[len(args)-1] != wav {
		t.Fatalf("last arg = %q, want wav path %q", args[len(args)-1], wav)
	}
	if _, err := os.Stat(container); err != nil {
		t.Fatalf("container should be left in place: %v", err)
	}
}

func TestToCanonicalPassthroughForSameWavPath(t *testing.T) {
	conv, dir := testConverter(t, "exit 1\n")
	wav := filepath.Join(dir, "already.wav")
	if err := os.WriteFile(wav, []byte("RIFFdata"), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}

	if err := conv.ToCanonical(context.Background(), wav, wav); err != nil {
		t.Fatalf("ToCanonical() error = %v", err)
	}
}

func TestToCanonicalCopiesWavToNewPath(t *testing.T) {
	conv, dir := testConverter(t, "exit 1\n")
	src := filepath.Join(dir, "source.wav")
	dst := filepath.Join(dir, "renamed.wav")
	if err := os.WriteFile(src, []byte("RIFFdata"), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}

	if err := conv.ToCanonical(context.Background(), src, dst); err != nil {
		t.Fatalf("ToCanonical() error = %v", err)
	}
	copied, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read copy: %v", err)
	}
	if string(copied) != "RIFFdata" {
		t.Fatalf("copied payload = %q", copied)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source should remain for the caller to remove: %v", err)
	}
}

func TestToCanonicalReportsToolFailure(t *testing.T) {
	conv, dir := testConverter(t, "echo 'track.webm: Invalid data found when processing input' >&2\nexit 1\n")
	container := filepath.Join(dir, "track.webm")
	if err := os.WriteFile(container, []byte("junk"), 0o644); err != nil {
		t.Fatalf("write container: %v", err)
	}

	err := conv.ToCanonical(context.Background(), container, filepath.Join(dir, "track.wav"))
	if err == nil {
		t.Fatal("expected conversion error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("error should wrap the external tool marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("error should carry ffmpeg stderr, got %v", err)
	}
}

func TestToCanonicalRejectsEmptyOutput(t *testing.T) {
	conv, dir := testConverter(t, "exit 0\n")
	container := filepath.Join(dir, "track.webm")
	if err := os.WriteFile(container, []byte("junk"), 0o644); err != nil {
		t.Fatalf("write container: %v", err)
	}

	err := conv.ToCanonical(context.Background(), container, filepath.Join(dir, "track.wav"))
	if err == nil {
		t.Fatal("expected error for missing output")
	}
	if !strings.Contains(err.Error(), "produced no output") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestToCanonicalValidatesPaths(t *testing.T) {
	conv, _ := testConverter(t, "exit 0\n")
	err := conv.ToCanonical(context.Background(), "", "out.wav")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
