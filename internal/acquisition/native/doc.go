// Package native implements the secondary acquisition backend as an
// in-process Innertube client. It carries no subprocess dependency, so it
// stays available when the yt-dlp binary is missing or blocked, and it maps
// the library's typed errors straight onto the acquisition taxonomy.
package native
