package acquisition

import (
	"context"
	"errors"
	"strings"
)

// Kind identifies one classified acquisition failure cause.
type Kind int

const (
	KindUnknown Kind = iota
	KindAgeRestricted
	KindPrivate
	KindRegionBlocked
	KindPremiumOnly
	KindLiveStream
	KindRateLimited
	KindForbidden
	KindTransient
	KindBudgetExceeded
	KindDecisionFailure
	KindSessionSetup
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindAgeRestricted:   "age-restricted",
	KindPrivate:         "private",
	KindRegionBlocked:   "region-blocked",
	KindPremiumOnly:     "premium-only",
	KindLiveStream:      "live-stream",
	KindRateLimited:     "rate-limited",
	KindForbidden:       "forbidden",
	KindTransient:       "transient",
	KindBudgetExceeded:  "budget-exceeded",
	KindDecisionFailure: "decision-failure",
	KindSessionSetup:    "session-setup",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the kind ends the waterfall immediately: no
// further strategies, no fallback promotion.
func (k Kind) Terminal() bool {
	switch k {
	case KindAgeRestricted, KindPrivate, KindRegionBlocked, KindPremiumOnly, KindLiveStream:
		return true
	}
	return false
}

// Retryable reports whether the next tier may still succeed.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimited, KindForbidden, KindTransient:
		return true
	}
	return false
}

// AgentFailure reports whether the kind originated in the browser agent tier.
func (k Kind) AgentFailure() bool {
	switch k {
	case KindBudgetExceeded, KindDecisionFailure, KindSessionSetup:
		return true
	}
	return false
}

// Marker errors for errors.Is checks against classified failures.
var (
	ErrTerminal     = errors.New("terminal acquisition failure")
	ErrRetryable    = errors.New("retryable acquisition failure")
	ErrAgentFailure = errors.New("agent recovery failure")
)

// Error is the single structured failure the acquisition pipeline surfaces.
// Reason carries the last concrete cause as flat text; the pipeline never
// hands callers a nested cause chain.
type Error struct {
	Kind   Kind
	Reason string
}

// NewError builds a classified acquisition error.
func NewError(kind Kind, reason string) *Error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "acquisition failed"
	}
	return &Error{Kind: kind, Reason: reason}
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Reason
}

// Is matches the class markers so errors.Is(err, ErrTerminal) and friends
// work without exposing the concrete type.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTerminal:
		return e.Kind.Terminal()
	case ErrRetryable:
		return e.Kind.Retryable()
	case ErrAgentFailure:
		return e.Kind.AgentFailure()
	}
	return false
}

// KindOf returns the classified kind for err, honoring prior classification
// before falling back to the failure text.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	return ClassifyText(err.Error())
}
