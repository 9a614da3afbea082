package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	delays []time.Duration
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestIsRateLimit(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "http 429", err: &APIError{Code: 429}, want: true},
		{name: "resource exhausted", err: &APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"}, want: true},
		{name: "quota message", err: errors.New("Quota exceeded for project"), want: true},
		{name: "429 in message", err: errors.New("got status 429 from upstream"), want: true},
		{name: "server error", err: &APIError{Code: 500, Status: "INTERNAL", Message: "boom"}, want: false},
		{name: "plain error", err: errors.New("connection refused"), want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRateLimit(tc.err))
		})
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := NewPolicy(3, time.Second)
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
}

func TestPolicy_Do(t *testing.T) {
	rateLimited := &APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}
	base := 10 * time.Millisecond

	t.Run("exhausts retries", func(t *testing.T) {
		rec := &recorder{}
		p := Policy{MaxRetries: 3, BaseDelay: base, Sleep: rec.sleep}
		calls := 0
		err := p.Do(context.Background(), func(context.Context) error {
			calls++
			return rateLimited
		})

		require.Error(t, err)
		assert.True(t, IsRateLimitExhausted(err))
		var rle *RateLimitError
		require.True(t, errors.As(err, &rle))
		assert.Equal(t, 4, rle.Attempts)
		assert.Equal(t, rateLimited, rle.Err)
		assert.Equal(t, 4, calls)
		assert.Equal(t, []time.Duration{base, 2 * base, 4 * base}, rec.delays)
	})

	t.Run("success short-circuits", func(t *testing.T) {
		rec := &recorder{}
		p := Policy{MaxRetries: 3, BaseDelay: base, Sleep: rec.sleep}
		calls := 0
		err := p.Do(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return rateLimited
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []time.Duration{base, 2 * base}, rec.delays)
	})

	t.Run("non retryable propagates immediately", func(t *testing.T) {
		rec := &recorder{}
		p := Policy{MaxRetries: 3, BaseDelay: base, Sleep: rec.sleep}
		boom := errors.New("boom")
		calls := 0
		err := p.Do(context.Background(), func(context.Context) error {
			calls++
			return boom
		})

		assert.Equal(t, boom, err)
		assert.Equal(t, 1, calls)
		assert.Empty(t, rec.delays)
	})

	t.Run("notify is called per retry", func(t *testing.T) {
		var attempts []int
		p := Policy{
			MaxRetries: 2,
			BaseDelay:  base,
			Sleep:      (&recorder{}).sleep,
			Notify:     func(attempt int, _ time.Duration, _ error) { attempts = append(attempts, attempt) },
		}
		_ = p.Do(context.Background(), func(context.Context) error { return rateLimited })
		assert.Equal(t, []int{1, 2}, attempts)
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := NewPolicy(3, time.Hour)
		err := p.Do(ctx, func(context.Context) error { return rateLimited })
		assert.Equal(t, context.Canceled, err)
	})
}
