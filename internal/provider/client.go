// Package provider talks to the LLM backends that write candidate posts.
//
// Each backend client performs exactly one request per Generate call and
// never retries; retry policy belongs to the caller (see council.Round).
// Every failure leaves this package tagged with one of three kinds:
// RATE_LIMITED, TIMEOUT or PROVIDER_ERROR.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"postcouncil/internal/types"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// CompletionRequest is one backend request.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Completion is a successful backend response.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Client is a single LLM backend.
type Client interface {
	Backend() types.Backend
	DefaultModel() string
	Generate(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// ClientConfig configures any backend client.
type ClientConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
	// HTTPClient overrides the transport. Tests point it at httptest servers.
	HTTPClient *http.Client
}

func (c ClientConfig) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.Timeout}
}

// newLimiter paces requests to rpm per minute with no burst. Zero disables pacing.
func newLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

// pace blocks until the limiter grants a slot or ctx ends.
func pace(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	if err := l.Wait(ctx); err != nil {
		if ctx.Err() == context.Canceled {
			return ctx.Err()
		}
		// Wait refuses early when the slot lies beyond the deadline.
		return types.WrapError(types.KindTimeout, err, "no request slot before deadline")
	}
	return nil
}

// withRequestTimeout bounds one request, pacing included, by timeout. An
// earlier caller deadline still wins.
func withRequestTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// StatusError is a non-2xx backend response.
type StatusError struct {
	Backend    types.Backend
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("%s API returned status %d: %s", e.Backend, e.StatusCode, body)
}

// Classify tags err with RATE_LIMITED, TIMEOUT or PROVIDER_ERROR.
// Errors that already carry a kind pass through unchanged.
func Classify(backend types.Backend, err error) error {
	if err == nil {
		return nil
	}
	if types.KindOf(err) != "" {
		return err
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
		return types.WrapError(types.KindRateLimited, err, "%s rate limited", backend)
	}
	if code, ok := genaiStatus(err); ok && code == http.StatusTooManyRequests {
		return types.WrapError(types.KindRateLimited, err, "%s rate limited", backend)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.WrapError(types.KindTimeout, err, "%s request timed out", backend)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.WrapError(types.KindTimeout, err, "%s request timed out", backend)
	}
	return types.WrapError(types.KindProviderError, err, "%s request failed", backend)
}

func genaiStatus(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}
