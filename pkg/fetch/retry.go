package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single attempt when Options.Timeout is unset
const DefaultTimeout = 30 * time.Second

// withRetries runs attempt up to opts.Attempts times, each bounded by opts.Timeout.
// Only timeouts are retried; every other error ends the loop immediately.
func withRetries(ctx context.Context, opts Options, attempt func(ctx context.Context) (*Result, error)) (*Result, error) {
	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(opts.RetryDelay), uint64(attempts-1)),
		ctx,
	)

	n := 0
	op := func() (*Result, error) {
		n++
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		res, err := attempt(attemptCtx)
		if err == nil {
			return res, nil
		}
		if isTimeout(err) {
			return nil, fmt.Errorf("%w (attempt %d/%d after %s): %v", ErrTimeout, n, attempts, timeout, err)
		}
		return nil, backoff.Permanent(err)
	}

	return backoff.RetryNotifyWithData(op, b, func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("wait", wait).Msgf("upstream timed out, retrying (attempt %d/%d)", n+1, attempts)
	})
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
