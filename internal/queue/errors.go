package queue

import (
	"errors"
	"strings"

	"reel/internal/acquisition"
	"reel/internal/services"
)

// IsReviewError reports whether a stage error needs manual intervention
// rather than a retry. Terminal acquisition failures (age restrictions,
// private or region-blocked media) and validation, configuration, or
// not-found errors cannot succeed on a second attempt; everything else is
// treated as retryable.
func IsReviewError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, acquisition.ErrTerminal) ||
		errors.Is(err, services.ErrValidation) ||
		errors.Is(err, services.ErrConfiguration) ||
		errors.Is(err, services.ErrNotFound)
}

// MarkFailure applies a stage error to the item: the status becomes failed,
// the error text is captured, and the review flag is raised when the failure
// is one no retry can fix.
func MarkFailure(item *Item, err error) {
	if item == nil {
		return
	}
	message := ""
	if err != nil {
		message = strings.TrimSpace(err.Error())
	}
	if message == "" {
		message = "stage failed"
	}
	item.SetFailed(message)
	if IsReviewError(err) {
		item.NeedsReview = true
		item.ReviewReason = message
	}
}
