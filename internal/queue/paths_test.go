package queue_test

import (
	"path/filepath"
	"testing"

	"reel/internal/queue"
)

func TestScratchDir(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "srv", "staging")
	cases := []struct {
		name     string
		artifact string
		base     string
		want     string
	}{
		{
			name:     "artifact in scratch",
			artifact: filepath.Join(base, "reel-abc", "track.wav"),
			base:     base,
			want:     filepath.Join(base, "reel-abc"),
		},
		{
			name:     "artifact directly in staging root",
			artifact: filepath.Join(base, "track.wav"),
			base:     base,
			want:     "",
		},
		{
			name:     "artifact outside staging",
			artifact: filepath.Join(string(filepath.Separator), "elsewhere", "reel-abc", "track.wav"),
			base:     base,
			want:     "",
		},
		{
			name:     "no artifact",
			artifact: "",
			base:     base,
			want:     "",
		},
		{
			name:     "no base",
			artifact: filepath.Join(base, "reel-abc", "track.wav"),
			base:     "",
			want:     "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := queue.Item{ArtifactPath: tc.artifact}
			if got := item.ScratchDir(tc.base); got != tc.want {
				t.Fatalf("ScratchDir = %q, want %q", got, tc.want)
			}
		})
	}
}
