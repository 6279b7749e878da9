// Package identity generates randomized client fingerprints for acquisition
// attempts.
//
// Each Fingerprint pairs a user-agent drawn from a pool of current desktop
// and mobile browsers with a matching header set: Accept-Language rotation,
// client-hint headers for Chromium identities, randomized forwarding
// addresses, and a probabilistic sprinkle of optional headers. A fresh
// fingerprint per attempt keeps consecutive requests from presenting the
// same client to server-side defenses.
package identity
