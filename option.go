package mongoproxy

import (
	"context"
	"time"
)

// Defaults applied by mongoclient.Wrap when no overriding option is given.
const (
	DefaultMaxAttempts   = 10
	DefaultRetryInterval = time.Second
)

// ClientSettings collects everything configurable at wrap time. It is
// filled from defaults, mutated by options, and read-only afterwards.
type ClientSettings struct {
	MaxAttempts   int
	RetryInterval time.Duration
	Logf          func(ctx context.Context, format string, args ...interface{})
	Classify      func(err error) bool
	Middlewares   []Middleware
	DisableRetry  bool
}

// ClientOption configures a wrapped client at construction time.
type ClientOption interface {
	Apply(*ClientSettings)
}

// WithMaxAttempts sets the total invocation budget per operation, the
// first attempt included.
func WithMaxAttempts(n int) ClientOption {
	return withMaxAttempts(n)
}

type withMaxAttempts int

func (w withMaxAttempts) Apply(s *ClientSettings) {
	s.MaxAttempts = int(w)
}

// WithRetryInterval sets the fixed pause between retry attempts.
func WithRetryInterval(d time.Duration) ClientOption {
	return withRetryInterval(d)
}

type withRetryInterval time.Duration

func (w withRetryInterval) Apply(s *ClientSettings) {
	s.RetryInterval = time.Duration(w)
}

// WithLogf sets the diagnostic sink used by the retry middleware.
func WithLogf(logf func(ctx context.Context, format string, args ...interface{})) ClientOption {
	return &withLogf{logf}
}

type withLogf struct {
	logf func(ctx context.Context, format string, args ...interface{})
}

func (w *withLogf) Apply(s *ClientSettings) {
	s.Logf = w.logf
}

// WithClassifier replaces the transient-error classifier. The default is
// IsTransient; widening it changes failure semantics, so don't do that
// casually.
func WithClassifier(classify func(err error) bool) ClientOption {
	return &withClassifier{classify}
}

type withClassifier struct {
	classify func(err error) bool
}

func (w *withClassifier) Apply(s *ClientSettings) {
	s.Classify = w.classify
}

// WithMiddleware appends middleware to the chain built at wrap time.
// Middleware runs First-In First-Apply, after the retry middleware.
func WithMiddleware(mws ...Middleware) ClientOption {
	return withMiddleware(mws)
}

type withMiddleware []Middleware

func (w withMiddleware) Apply(s *ClientSettings) {
	s.Middlewares = append(s.Middlewares, w...)
}

// WithoutRetry suppresses the automatic retry middleware, leaving only
// explicitly supplied middleware in the chain.
func WithoutRetry() ClientOption {
	return withoutRetry{}
}

type withoutRetry struct{}

func (withoutRetry) Apply(s *ClientSettings) {
	s.DisableRetry = true
}
