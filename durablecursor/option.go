package durablecursor

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo/options"
)

type CursorOption interface {
	Apply(*Cursor)
}

// WithFindOptions passes driver find options (sort, projection, skip,
// limit, batch size...) to the underlying query. Skip and Limit are
// recomputed on every reconnect.
func WithFindOptions(fo *options.FindOptions) CursorOption {
	return &withFindOptions{fo}
}

type withFindOptions struct{ fo *options.FindOptions }

func (w *withFindOptions) Apply(c *Cursor) {
	c.base = w.fo
}

// WithMaxReconnectTime bounds how long one broken cursor may spend
// reconnecting before giving up with ErrReconnectFailed.
func WithMaxReconnectTime(d time.Duration) CursorOption {
	return withMaxReconnectTime(d)
}

type withMaxReconnectTime time.Duration

func (w withMaxReconnectTime) Apply(c *Cursor) {
	c.maxReconnectTime = time.Duration(w)
}

// WithInitialReconnectInterval sets the first reconnect delay; subsequent
// delays double, capped at five seconds.
func WithInitialReconnectInterval(d time.Duration) CursorOption {
	return withInitialReconnectInterval(d)
}

type withInitialReconnectInterval time.Duration

func (w withInitialReconnectInterval) Apply(c *Cursor) {
	c.initialInterval = time.Duration(w)
}

// WithLogf sets the diagnostic sink for reconnect events.
func WithLogf(logf func(ctx context.Context, format string, args ...interface{})) CursorOption {
	return &withLogf{logf}
}

type withLogf struct {
	logf func(ctx context.Context, format string, args ...interface{})
}

func (w *withLogf) Apply(c *Cursor) {
	c.logf = w.logf
}
