package acquisition

import "strings"

// Marker fragments emitted by the extraction tools. Matching is
// case-insensitive; terminal causes are checked before the retryable ones so
// a specific restriction wins over generic availability text.
var (
	ageRestrictedMarkers = []string{
		"sign in to confirm your age",
		"age-restricted",
		"age restricted",
		"confirm your age",
	}
	privateMarkers = []string{
		"private video",
		"video is private",
	}
	regionMarkers = []string{
		"not available in your country",
		"blocked in your country",
		"geo restriction",
		"geo-restricted",
		"georestricted",
	}
	premiumMarkers = []string{
		"premium members",
		"music premium",
		"members-only",
		"join this channel",
	}
	liveMarkers = []string{
		"live event will begin",
		"premieres in",
		"live stream",
		"live_stream_offline",
	}
	rateLimitMarkers = []string{
		"429",
		"too many requests",
		"rate limit",
		"rate-limit",
	}
	forbiddenMarkers = []string{
		"403",
		"forbidden",
		"access denied",
	}
)

// ClassifyText maps a failure message onto the error taxonomy. Unmatched
// text, including the bare "video unavailable" that covers dozens of
// unrelated conditions, classifies as transient so later tiers get a chance.
func ClassifyText(message string) Kind {
	msg := strings.ToLower(message)
	switch {
	case containsAny(msg, ageRestrictedMarkers):
		return KindAgeRestricted
	case containsAny(msg, privateMarkers):
		return KindPrivate
	case containsAny(msg, regionMarkers):
		return KindRegionBlocked
	case containsAny(msg, premiumMarkers):
		return KindPremiumOnly
	case containsAny(msg, liveMarkers):
		return KindLiveStream
	case containsAny(msg, rateLimitMarkers):
		return KindRateLimited
	case containsAny(msg, forbiddenMarkers):
		return KindForbidden
	default:
		return KindTransient
	}
}

func containsAny(msg string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
