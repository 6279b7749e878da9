// Package audio converts acquired audio containers into the canonical
// pipeline format: 16 kHz mono 16-bit PCM WAV, produced by ffmpeg.
//
// Sources that are already WAV files skip the transcode. The converter
// never deletes its input; the acquisition waterfall owns container
// disposal so a failed conversion can fall back to the original file.
package audio
