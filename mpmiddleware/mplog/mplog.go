// Package mplog provides a middleware that logs every operation flowing
// through a wrapped client, with a monotonic counter so request and
// response lines can be matched up in interleaved output.
package mplog

import (
	"context"
	"sync"

	"github.com/malge/mongoproxy"
)

var _ mongoproxy.Middleware = (*logger)(nil)

func NewLogger(prefix string, logf func(ctx context.Context, format string, args ...interface{})) mongoproxy.Middleware {
	return &logger{Prefix: prefix, Logf: logf, counter: 1}
}

type logger struct {
	Prefix string
	Logf   func(ctx context.Context, format string, args ...interface{})

	m       sync.Mutex
	counter int
}

func (l *logger) Invoke(ctx context.Context, info *mongoproxy.OpInfo, next mongoproxy.Invoker) error {
	l.m.Lock()
	cnt := l.counter
	l.counter++
	l.m.Unlock()

	l.Logf(ctx, l.Prefix+"%s #%d, db=%s, collection=%s", info.Method, cnt, info.Database, info.Collection)

	err := next(ctx)

	if err != nil {
		l.Logf(ctx, l.Prefix+"%s #%d, err=%s", info.Method, cnt, err.Error())
	} else {
		l.Logf(ctx, l.Prefix+"%s #%d, ok", info.Method, cnt)
	}

	return err
}
