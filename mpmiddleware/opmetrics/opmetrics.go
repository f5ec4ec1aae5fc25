// Package opmetrics provides a middleware that counts operation attempts
// by method and outcome through Prometheus. Appended after rpcretry it
// observes every attempt the retry loop makes; appended before it, only
// the caller-visible outcomes.
package opmetrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/malge/mongoproxy"
)

var _ mongoproxy.Middleware = (*metricsHandler)(nil)

const (
	outcomeOK        = "ok"
	outcomeTransient = "transient"
	outcomeError     = "error"
)

func New(opts ...MetricsOption) mongoproxy.Middleware {
	mh := &metricsHandler{
		namespace:  "mongoproxy",
		registerer: prometheus.DefaultRegisterer,
		classify:   mongoproxy.IsTransient,
	}

	for _, opt := range opts {
		opt.Apply(mh)
	}

	mh.attempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: mh.namespace,
		Name:      "operations_total",
		Help:      "Operation attempts observed by the proxy, by method and outcome.",
	}, []string{"method", "outcome"})
	mh.registerer.MustRegister(mh.attempts)

	return mh
}

type metricsHandler struct {
	namespace  string
	registerer prometheus.Registerer
	classify   func(err error) bool

	attempts *prometheus.CounterVec
}

type MetricsOption interface {
	Apply(*metricsHandler)
}

func WithNamespace(ns string) MetricsOption {
	return withNamespace(ns)
}

type withNamespace string

func (w withNamespace) Apply(mh *metricsHandler) {
	mh.namespace = string(w)
}

func WithRegisterer(r prometheus.Registerer) MetricsOption {
	return &withRegisterer{r}
}

type withRegisterer struct{ r prometheus.Registerer }

func (w *withRegisterer) Apply(mh *metricsHandler) {
	mh.registerer = w.r
}

func (mh *metricsHandler) Invoke(ctx context.Context, info *mongoproxy.OpInfo, next mongoproxy.Invoker) error {
	err := next(ctx)

	outcome := outcomeOK
	switch {
	case err == nil:
	case mh.classify(err):
		outcome = outcomeTransient
	default:
		outcome = outcomeError
	}
	mh.attempts.WithLabelValues(info.Method, outcome).Inc()

	return err
}
