package identity

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Fingerprint is one randomized client identity: a user-agent plus the header
// set a real browser with that user-agent would send.
type Fingerprint struct {
	UserAgent string
	Headers   map[string]string
}

// Rand is the randomness surface the generator consumes. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// Generator produces a fresh Fingerprint per call. Safe for concurrent use
// only when the underlying Rand is.
type Generator struct {
	rng Rand
}

// Option customizes a Generator.
type Option func(*Generator)

// WithRand overrides the randomness source (useful for tests).
func WithRand(r Rand) Option {
	return func(g *Generator) {
		if r != nil {
			g.rng = r
		}
	}
}

// NewGenerator constructs a Generator backed by the shared math/rand/v2
// source unless overridden.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{rng: stdRand{}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type stdRand struct{}

func (stdRand) IntN(n int) int   { return rand.IntN(n) }
func (stdRand) Float64() float64 { return rand.Float64() }

var userAgents = []string{
	// Chrome
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",

	// Firefox
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:132.0) Gecko/20100101 Firefox/132.0",

	// Safari
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",

	// Edge
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36 Edg/132.0.0.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36 Edg/132.0.0.0",

	// Mobile
	"Mozilla/5.0 (iPhone; CPU iPhone OS 18_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; SM-G998B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Mobile Safari/537.36",
}

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-US,en;q=0.9,es;q=0.8",
	"en-US,en;q=0.9,fr;q=0.8",
	"en-US,en;q=0.9,de;q=0.8",
	"en-US,en;q=0.9,it;q=0.8",
	"en-US,en;q=0.9,pt;q=0.8",
	"en-US,en;q=0.9,ja;q=0.8",
	"en-US,en;q=0.9,ko;q=0.8",
}

const (
	acceptValue = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"

	secChUA          = `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`
	secChUAFullVers  = `"Not_A Brand";v="8.0.0.0", "Chromium";v="120.0.0.0", "Google Chrome";v="120.0.0.0"`
	optionalHeaderP  = 0.5
	viewportWidthLo  = 1200
	viewportWidthHi  = 1920
	viewportHeightLo = 800
	viewportHeightHi = 1080
)

type headerPair struct {
	name  string
	value func(g *Generator) string
}

// Candidate order is fixed so a scripted Rand yields reproducible output.
var optionalHeaders = []headerPair{
	{"X-Requested-With", func(*Generator) string { return "XMLHttpRequest" }},
	{"Origin", func(*Generator) string { return "https://www.youtube.com" }},
	{"Referer", func(*Generator) string { return "https://www.youtube.com/" }},
}

var optionalClientHints = []headerPair{
	{"sec-ch-ua-wow64", func(*Generator) string { return "?0" }},
	{"sec-ch-prefers-color-scheme", func(g *Generator) string { return g.pick("light", "dark") }},
	{"sec-ch-prefers-reduced-motion", func(g *Generator) string { return g.pick("no-preference", "reduce") }},
}

// Fingerprint draws a user-agent from the pool and assembles the header set
// for it. Client-hint headers only attach to Chromium identities; a random
// subset of optional headers joins at 50% probability each.
func (g *Generator) Fingerprint() Fingerprint {
	ua := userAgents[g.rng.IntN(len(userAgents))]
	headers := map[string]string{
		"Accept":                    acceptValue,
		"Accept-Language":           acceptLanguages[g.rng.IntN(len(acceptLanguages))],
		"Accept-Encoding":           "gzip, deflate, br, zstd",
		"DNT":                       g.pick("1", "0"),
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            g.pick("none", "same-origin", "cross-site"),
		"Sec-Fetch-User":            "?1",
		"Cache-Control":             g.pick("max-age=0", "no-cache", "no-store"),
		"Pragma":                    "no-cache",
		"X-Forwarded-For":           g.randomIP(),
		"X-Real-IP":                 g.randomIP(),
	}
	if isChromium(ua) {
		mobile := "?0"
		if strings.Contains(ua, "Mobile") {
			mobile = "?1"
		}
		headers["sec-ch-ua"] = secChUA
		headers["sec-ch-ua-mobile"] = mobile
		headers["sec-ch-ua-platform"] = quoted(g.pick("Windows", "macOS", "Linux"))
		headers["sec-ch-ua-platform-version"] = quoted(g.pick("15.0.0", "14.0.0", "13.0.0"))
		headers["sec-ch-ua-arch"] = quoted(g.pick("x86", "arm"))
		headers["sec-ch-ua-bitness"] = quoted(g.pick("64", "32"))
		headers["sec-ch-ua-full-version-list"] = secChUAFullVers
		headers["sec-ch-viewport-width"] = strconv.Itoa(g.intRange(viewportWidthLo, viewportWidthHi))
		headers["sec-ch-viewport-height"] = strconv.Itoa(g.intRange(viewportHeightLo, viewportHeightHi))
		headers["sec-ch-dpr"] = g.pick("1", "1.25", "1.5", "2")
		for _, opt := range optionalClientHints {
			if g.rng.Float64() > optionalHeaderP {
				headers[opt.name] = opt.value(g)
			}
		}
	}
	for _, opt := range optionalHeaders {
		if g.rng.Float64() > optionalHeaderP {
			headers[opt.name] = opt.value(g)
		}
	}
	return Fingerprint{UserAgent: ua, Headers: headers}
}

func (g *Generator) pick(values ...string) string {
	return values[g.rng.IntN(len(values))]
}

// intRange returns a value in [lo, hi] inclusive.
func (g *Generator) intRange(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

func (g *Generator) randomIP() string {
	octet := func() int { return 1 + g.rng.IntN(255) }
	return fmt.Sprintf("%d.%d.%d.%d", octet(), octet(), octet(), octet())
}

func isChromium(ua string) bool {
	return strings.Contains(ua, "Chrome/")
}

func quoted(value string) string {
	return `"` + value + `"`
}
