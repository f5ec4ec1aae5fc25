package rpcretry

import (
	"context"
	"time"
)

func WithMaxAttempts(n int) RetryOption {
	return &withMaxAttempts{n}
}

type withMaxAttempts struct{ maxAttempts int }

func (w *withMaxAttempts) Apply(rh *retryHandler) {
	rh.maxAttempts = w.maxAttempts
}

func WithRetryInterval(d time.Duration) RetryOption {
	return &withRetryInterval{d}
}

type withRetryInterval struct{ d time.Duration }

func (w *withRetryInterval) Apply(rh *retryHandler) {
	rh.retryInterval = w.d
}

func WithLogf(logf func(ctx context.Context, format string, args ...interface{})) RetryOption {
	return &withLogf{logf}
}

type withLogf struct {
	logf func(ctx context.Context, format string, args ...interface{})
}

func (w *withLogf) Apply(rh *retryHandler) {
	rh.logf = w.logf
}

func WithClassifier(classify func(err error) bool) RetryOption {
	return &withClassifier{classify}
}

type withClassifier struct {
	classify func(err error) bool
}

func (w *withClassifier) Apply(rh *retryHandler) {
	rh.classify = w.classify
}
