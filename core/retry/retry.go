// Package retry retries rate-limited calls with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second

	statusResourceExhausted = "RESOURCE_EXHAUSTED"
)

// APIError is a failure reported by a remote API.
type APIError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (err *APIError) Error() string {
	switch {
	case err.Status != "" && err.Message != "":
		return fmt.Sprintf("%d %s: %s", err.Code, err.Status, err.Message)
	case err.Message != "":
		return fmt.Sprintf("%d: %s", err.Code, err.Message)
	}
	return fmt.Sprintf("%d %s", err.Code, http.StatusText(err.Code))
}

// RateLimitError is returned once retries are exhausted on a rate-limited call.
type RateLimitError struct {
	Attempts int
	Err      error
}

func (err *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited after %d attempt(s): %v", err.Attempts, err.Err)
}

func (err *RateLimitError) Unwrap() error { return err.Err }
func (err *RateLimitError) Cause() error  { return err.Err }

func IsRateLimitExhausted(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// IsRateLimit reports whether `err` carries one of the known rate-limit signatures:
// HTTP 429, a RESOURCE_EXHAUSTED status, or a quota-related message.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Status == statusResourceExhausted {
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(strings.ToLower(msg), "quota") ||
		strings.Contains(msg, statusResourceExhausted)
}

// Policy retries rate-limited failures up to MaxRetries times,
// waiting BaseDelay * 2^(attempt-1) before each retry.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration

	// Sleep waits for `d` or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Notify, when set, is called before each retry.
	Notify func(attempt int, delay time.Duration, err error)
}

func NewPolicy(maxRetries int, baseDelay time.Duration) Policy {
	return Policy{MaxRetries: maxRetries, BaseDelay: baseDelay}
}

// Delay returns the wait before retry number `attempt` (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return p.BaseDelay * time.Duration(1<<uint(attempt-1))
}

// Do runs `op` until it succeeds, fails with a non rate-limit error, or retries run out.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	var err error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := p.Delay(attempt)
			if p.Notify != nil {
				p.Notify(attempt, delay, err)
			}
			if serr := sleep(ctx, delay); serr != nil {
				return serr
			}
		}

		if err = op(ctx); err == nil {
			return nil
		}
		if !IsRateLimit(err) {
			return err
		}
		if attempt >= p.MaxRetries {
			return &RateLimitError{Attempts: attempt + 1, Err: err}
		}
	}
}

func timerSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
