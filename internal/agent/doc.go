// Package agent drives a vision-guided browser session as the final
// acquisition tier. A tool-calling decision model observes screenshots of
// a virtual display, a grounding model turns element descriptions into
// click coordinates, and xdotool synthesizes the input. The loop keeps an
// append-only transcript as its only memory and guarantees session
// teardown on every exit path.
package agent
