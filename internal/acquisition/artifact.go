package acquisition

// AudioArtifact is the product of a successful acquisition: the canonical
// 16 kHz mono PCM WAV, or the original container when conversion failed and
// Canonical is false.
type AudioArtifact struct {
	FilePath        string
	WorkDir         string
	Title           string
	DurationSeconds float64
	Canonical       bool
	Method          string
	Source          MediaInfo
}
