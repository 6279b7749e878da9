package ffprobe

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResultAudioHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", CodecName: "vp9"},
			{CodecType: "audio", CodecName: "opus", SampleRate: "48000", Channels: 2},
			{CodecType: "audio", CodecName: "aac", SampleRate: "44100", Channels: 2},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
		},
	}
	if !result.HasVideo() {
		t.Fatal("expected video stream to be detected")
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	stream, ok := result.FirstAudioStream()
	if !ok {
		t.Fatal("expected a first audio stream")
	}
	if stream.CodecName != "opus" {
		t.Fatalf("first audio stream = %q, want opus", stream.CodecName)
	}
	if stream.SampleRateHz() != 48000 {
		t.Fatalf("sample rate = %d, want 48000", stream.SampleRateHz())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestDurationFallsBackToStream(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", Duration: "42.5"},
		},
	}
	if result.DurationSeconds() != 42.5 {
		t.Fatalf("expected stream duration fallback, got %v", result.DurationSeconds())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
		},
		Streams: []Stream{{CodecType: "audio", SampleRate: "junk"}},
	}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected duration 0, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	stream, _ := result.FirstAudioStream()
	if stream.SampleRateHz() != 0 {
		t.Fatalf("expected sample rate 0, got %d", stream.SampleRateHz())
	}
}

func TestResultDecodesFFprobePayload(t *testing.T) {
	payload := []byte(`{
		"streams": [
			{"index": 0, "codec_name": "pcm_s16le", "codec_type": "audio", "sample_rate": "16000", "channels": 1}
		],
		"format": {"filename": "track.wav", "nb_streams": 1, "duration": "37.200000", "size": "1190464", "format_name": "wav"}
	}`)
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.HasVideo() {
		t.Fatal("wav payload should not report video")
	}
	stream, ok := result.FirstAudioStream()
	if !ok {
		t.Fatal("expected audio stream")
	}
	if stream.SampleRateHz() != 16000 || stream.Channels != 1 {
		t.Fatalf("unexpected canonical shape: rate=%d channels=%d", stream.SampleRateHz(), stream.Channels)
	}
	if result.Format.FormatName != "wav" {
		t.Fatalf("unexpected format name %q", result.Format.FormatName)
	}
}

func TestToolInspectRunsBinary(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "ffprobe")
	payload := `{"streams":[{"codec_type":"audio","sample_rate":"48000","channels":2}],"format":{"duration":"9.5"}}`
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho '"+payload+"'\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	target := filepath.Join(dir, "track.wav")
	if err := os.WriteFile(target, []byte("riff"), 0o644); err != nil {
		t.Fatalf("write target: %v", err)
	}

	tool := NewTool(script)
	result, err := tool.Inspect(context.Background(), target)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("audio streams = %d, want 1", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 9.5 {
		t.Fatalf("duration = %v, want 9.5", result.DurationSeconds())
	}
	if len(result.RawJSON()) == 0 {
		t.Fatal("expected raw payload to be retained")
	}
}

func TestToolInspectReportsBinaryFailure(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho 'moov atom not found' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	tool := NewTool(script)
	_, err := tool.Inspect(context.Background(), filepath.Join(dir, "broken.webm"))
	if err == nil {
		t.Fatal("expected inspect failure")
	}
	if !strings.Contains(err.Error(), "moov atom") {
		t.Fatalf("error should carry ffprobe output, got %v", err)
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := Inspect(context.Background(), "ffprobe", "  "); err == nil {
		t.Fatal("expected empty path rejection")
	}
}
