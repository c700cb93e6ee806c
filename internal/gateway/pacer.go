package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/rs/zerolog"
)

// ErrRateLimited is returned when a request is still rate limited after the last attempt.
var ErrRateLimited = errors.New("rate limited")

// pacer spaces requests with a fixed delay and retries rate-limited calls a
// bounded number of times, waiting a fixed interval between attempts.
type pacer struct {
	delay       time.Duration
	backoff     time.Duration
	maxAttempts int
	logger      zerolog.Logger
}

func newPacer(opts Options, logger zerolog.Logger) *pacer {
	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &pacer{
		delay:       opts.Delay,
		backoff:     opts.RateLimitWait,
		maxAttempts: attempts,
		logger:      logger,
	}
}

// do runs call, sleeping the fixed delay before every attempt.
func (p *pacer) do(ctx context.Context, label string, call func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		if err := sleep(ctx, p.delay); err != nil {
			return err
		}
		err := call(ctx)
		if err == nil {
			return nil
		}
		if !isRateLimited(err) {
			return err
		}
		if attempt >= p.maxAttempts {
			return fmt.Errorf("%w after %d attempts: %s: %v", ErrRateLimited, attempt, label, err)
		}
		p.logger.Warn().Str("request", label).Int("attempt", attempt).Dur("sleep_for", p.backoff).Msg("rate limit hit; sleeping")
		if err := sleep(ctx, p.backoff); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// isRateLimited reports whether err is an explicit rate-limit signal from the hosting API.
func isRateLimited(err error) bool {
	var rlErr *github.RateLimitError
	if errors.As(err, &rlErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		code := respErr.Response.StatusCode
		return code == http.StatusForbidden || code == http.StatusTooManyRequests
	}
	// GraphQL reports throttling as a query error rather than a status code.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "403 forbidden")
}
