package wallet

import (
	"context"
	"errors"
	"time"
)

var ErrGatewayTimeout = errors.New("wallet: payment gateway timed out")

type gatewayResult struct {
	reference string
	err       error
}

// callGateway runs a provider call as an explicit asynchronous task with a
// result channel, bounded by the configured timeout. The wallet domain stays
// synchronous; only the provider round-trip is awaited here.
func callGateway(ctx context.Context, timeout time.Duration, call func(ctx context.Context) (string, error)) (string, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make(chan gatewayResult, 1)
	go func() {
		ref, err := call(ctx)
		results <- gatewayResult{reference: ref, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrGatewayTimeout
		}
		return "", ctx.Err()
	case res := <-results:
		return res.reference, res.err
	}
}
