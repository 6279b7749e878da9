// Package acquiring adapts the acquisition waterfall into a workflow stage.
//
// The Acquirer wires the default tier collaborators (yt-dlp primary backend,
// native secondary backend, browser agent when enabled, ffmpeg converter,
// oEmbed probe) into an acquisition.Downloader, runs it against the item's
// source URL, and records the staged artifact plus source metadata on the
// queue item for the organize stage.
package acquiring
