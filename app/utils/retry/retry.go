package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy 有限次数的指数退避，每次等待时间翻倍
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// HTTPStatusError 上游返回非 2xx
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("上游返回状态码 %d: %s", e.StatusCode, e.Body)
}

// Retryable 5xx 与 429 可重试，其余 4xx 立即失败
func (e *HTTPStatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Permanent 标记错误不可重试
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.BaseDelay << 10
	b.MaxElapsedTime = 0
	b.Reset()

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do 执行 op，直到成功、遇到不可重试错误或次数用尽。onRetry 可为 nil
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error, onRetry func(err error, wait time.Duration)) error {
	operation := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}

	var notify backoff.Notify
	if onRetry != nil {
		notify = func(err error, wait time.Duration) { onRetry(err, wait) }
	}

	err := backoff.RetryNotify(operation, p.backOff(ctx), notify)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
