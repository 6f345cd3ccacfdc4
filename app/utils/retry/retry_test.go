package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDoRetriesTransientFailures(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	calls := 0
	var waits []time.Duration

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &HTTPStatusError{StatusCode: 503, Body: "busy"}
		}
		return nil
	}, func(_ error, wait time.Duration) { waits = append(waits, wait) })

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	calls := 0
	boom := errors.New("connection reset")

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	}, nil)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}
	calls := 0

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return &HTTPStatusError{StatusCode: 403, Body: "forbidden"}
	}, nil)

	var statusErr *HTTPStatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 403, statusErr.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestDoHonoursPermanent(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}
	calls := 0
	bad := errors.New("unsupported file")

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(bad)
	}, nil)

	assert.ErrorIs(t, err, bad)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("flaky")
	}, nil)

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestTooManyRequestsIsRetryable(t *testing.T) {
	assert.True(t, (&HTTPStatusError{StatusCode: 429}).Retryable())
	assert.True(t, (&HTTPStatusError{StatusCode: 502}).Retryable())
	assert.False(t, (&HTTPStatusError{StatusCode: 400}).Retryable())
}
