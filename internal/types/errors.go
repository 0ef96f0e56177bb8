package types

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can branch on it without string matching.
type Kind string

const (
	// Activation-fatal kinds abort the whole activation.
	KindCampaignNotFound     Kind = "CAMPAIGN_NOT_FOUND"
	KindCampaignInactive     Kind = "CAMPAIGN_INACTIVE"
	KindNoEligibleSubjects   Kind = "NO_ELIGIBLE_SUBJECTS"
	KindInvalidConfiguration Kind = "INVALID_CONFIGURATION"

	// Unit-scoped kinds fail one execution unit only.
	KindSubjectNotFound         Kind = "SUBJECT_NOT_FOUND"
	KindRateLimited             Kind = "RATE_LIMITED"
	KindTimeout                 Kind = "TIMEOUT"
	KindProviderError           Kind = "PROVIDER_ERROR"
	KindNoCandidates            Kind = "NO_CANDIDATES"
	KindAggregationParseFailure Kind = "AGGREGATION_PARSE_FAILURE"
)

// ActivationFatal reports whether errors of this kind abort an activation.
func (k Kind) ActivationFatal() bool {
	switch k {
	case KindCampaignNotFound, KindCampaignInactive, KindNoEligibleSubjects, KindInvalidConfiguration:
		return true
	}
	return false
}

// Error is the kind-tagged error returned across component boundaries.
type Error struct {
	Kind     Kind
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates a kind-tagged error.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates a kind-tagged error around cause.
func WrapError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Sentinels for errors.Is.
var (
	ErrCampaignNotFound        = &Error{Kind: KindCampaignNotFound, Message: "campaign not found"}
	ErrCampaignInactive        = &Error{Kind: KindCampaignInactive, Message: "campaign is not active"}
	ErrNoEligibleSubjects      = &Error{Kind: KindNoEligibleSubjects, Message: "no eligible subjects"}
	ErrInvalidConfiguration    = &Error{Kind: KindInvalidConfiguration, Message: "invalid configuration"}
	ErrSubjectNotFound         = &Error{Kind: KindSubjectNotFound, Message: "subject not found"}
	ErrRateLimited             = &Error{Kind: KindRateLimited, Message: "rate limited"}
	ErrTimeout                 = &Error{Kind: KindTimeout, Message: "timeout"}
	ErrProviderError           = &Error{Kind: KindProviderError, Message: "provider error"}
	ErrNoCandidates            = &Error{Kind: KindNoCandidates, Message: "no candidates"}
	ErrAggregationParseFailure = &Error{Kind: KindAggregationParseFailure, Message: "aggregation parse failure"}
)

// ErrNotFound is returned by stores when a keyed lookup has no row.
var ErrNotFound = errors.New("not found")
