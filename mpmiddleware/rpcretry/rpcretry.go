package rpcretry

import (
	"context"
	"time"

	"github.com/malge/mongoproxy"
)

var _ mongoproxy.Middleware = (*retryHandler)(nil)

// New builds the retry middleware. With no options it retries transient
// not-primary failures up to 10 attempts total, sleeping a fixed second
// between attempts. The delay is deliberately fixed, not exponential;
// failover elections resolve on their own schedule and callers rely on the
// predictable timing.
func New(opts ...RetryOption) mongoproxy.Middleware {
	rh := &retryHandler{
		maxAttempts:   mongoproxy.DefaultMaxAttempts,
		retryInterval: mongoproxy.DefaultRetryInterval,
		logf:          func(ctx context.Context, format string, args ...interface{}) {},
		classify:      mongoproxy.IsTransient,
		sleep:         time.Sleep,
	}

	for _, opt := range opts {
		opt.Apply(rh)
	}

	return rh
}

type retryHandler struct {
	maxAttempts   int
	retryInterval time.Duration
	logf          func(ctx context.Context, format string, args ...interface{})
	classify      func(err error) bool
	sleep         func(d time.Duration)
}

type RetryOption interface {
	Apply(*retryHandler)
}

func (rh *retryHandler) Invoke(ctx context.Context, info *mongoproxy.OpInfo, next mongoproxy.Invoker) error {
	attempt := 1
	for {
		err := next(ctx)
		if err == nil {
			return nil
		}
		if !rh.classify(err) {
			return err
		}
		if attempt >= rh.maxAttempts {
			rh.logf(ctx, "rpcretry: %s: err=%s, giving up after %d attempts", info.Method, err.Error(), attempt)
			return err
		}
		rh.logf(ctx, "rpcretry: %s: err=%s, will be retry #%d after %s", info.Method, err.Error(), attempt, rh.retryInterval.String())
		rh.sleep(rh.retryInterval)
		attempt++
	}
}
