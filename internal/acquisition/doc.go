// Package acquisition implements the tiered audio download waterfall.
//
// The primary tier walks a fixed catalog of eight extraction strategies,
// each attempt carrying a fresh client fingerprint and a capped exponential
// backoff between attempts. Failures are classified against a small taxonomy:
// terminal causes abort immediately, retryable ones fall through to the next
// strategy, then to a single secondary backend attempt, then to the browser
// agent when one is wired. Callers receive either an AudioArtifact or a flat
// *Error carrying the last concrete cause.
package acquisition
