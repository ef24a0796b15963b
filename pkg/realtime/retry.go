package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Connector is anything that can (re)establish a connection.
type Connector interface {
	Connect(ctx context.Context) error
}

// RetryPolicy bounds reconnect attempts. The zero value makes exactly one
// attempt.
type RetryPolicy struct {
	// MaxAttempts is the total number of Connect calls, including the first.
	MaxAttempts int
	// InitialInterval is the delay before the second attempt.
	InitialInterval time.Duration
	// MaxInterval caps the exponentially growing delay.
	MaxInterval time.Duration
	// MaxElapsed gives up once this much time has passed. Zero means no
	// limit beyond ctx and MaxAttempts; backoff's own 15 minute default
	// is not applied.
	MaxElapsed time.Duration
}

// Default retry settings used when a policy enables retries but leaves the
// intervals unset.
const (
	DefaultRetryInitialInterval = 500 * time.Millisecond
	DefaultRetryMaxInterval     = 10 * time.Second
)

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	if b.InitialInterval <= 0 {
		b.InitialInterval = DefaultRetryInitialInterval
	}
	b.MaxInterval = p.MaxInterval
	if b.MaxInterval <= 0 {
		b.MaxInterval = DefaultRetryMaxInterval
	}
	return b
}

// maxElapsed is the limit handed to backoff.Retry, which treats zero as
// unlimited.
func (p RetryPolicy) maxElapsed() time.Duration {
	return max(p.MaxElapsed, 0)
}

// ConnectWithRetry calls c.Connect until it succeeds, the policy is
// exhausted or ctx is done. Handshakes rejected with 401 or 403, and
// ErrAlreadyConnected, are not retried.
func ConnectWithRetry(ctx context.Context, c Connector, p RetryPolicy, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	if p.MaxAttempts <= 1 {
		return c.Connect(ctx)
	}

	attempt := 0
	op := func() (struct{}, error) {
		attempt++
		err := c.Connect(ctx)
		if err == nil {
			return struct{}{}, nil
		}
		if !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
		backoff.WithMaxElapsedTime(p.maxElapsed()),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("realtime connect attempt failed",
				"attempt", attempt, "max_attempts", p.MaxAttempts, "retry_in", next, "error", err)
		}),
	}
	_, err := backoff.Retry(ctx, op, opts...)
	return err
}

func retryable(err error) bool {
	if errors.Is(err, ErrAlreadyConnected) {
		return false
	}
	var cerr *ConnError
	if errors.As(err, &cerr) {
		switch cerr.HTTPStatus {
		case http.StatusUnauthorized, http.StatusForbidden:
			return false
		}
	}
	return true
}
