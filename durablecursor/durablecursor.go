// Package durablecursor provides iteration over a collection that survives
// replica set failovers. A plain cursor dies when the primary goes away
// mid-iteration; a durable cursor tracks how many documents the caller has
// consumed and transparently re-issues the query from that position,
// retrying inside a time budget until the cluster recovers.
package durablecursor

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/malge/mongoproxy"
)

const (
	DefaultMaxReconnectTime         = 60 * time.Second
	DefaultInitialReconnectInterval = time.Second

	// Reconnect delays double per attempt but never exceed this.
	maxReconnectSleep = 5 * time.Second
)

// ErrReconnectFailed is returned through Err when the cursor could not be
// re-established within the reconnect time budget.
var ErrReconnectFailed = errors.New("durablecursor: reconnect time budget exhausted")

// Cursor iterates documents of one query, resuming after transient
// failures. Not safe for concurrent use, same as a driver cursor.
type Cursor struct {
	coll   mongoproxy.Collection
	filter interface{}
	base   *options.FindOptions

	skip     int64
	limit    int64
	consumed int64

	cur  mongoproxy.Cursor
	done bool
	err  error

	maxReconnectTime time.Duration
	initialInterval  time.Duration
	logf             func(ctx context.Context, format string, args ...interface{})
	classify         func(err error) bool

	sleep func(d time.Duration)
	now   func() time.Time
}

// New issues the query and returns a resumable cursor over its results.
// Skip and Limit from WithFindOptions are honored across reconnects.
func New(ctx context.Context, coll mongoproxy.Collection, filter interface{}, opts ...CursorOption) (*Cursor, error) {
	c := &Cursor{
		coll:             coll,
		filter:           filter,
		maxReconnectTime: DefaultMaxReconnectTime,
		initialInterval:  DefaultInitialReconnectInterval,
		logf:             func(ctx context.Context, format string, args ...interface{}) {},
		classify:         mongoproxy.IsTransient,
		sleep:            time.Sleep,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt.Apply(c)
	}
	if c.base != nil {
		if c.base.Skip != nil {
			c.skip = *c.base.Skip
		}
		if c.base.Limit != nil && *c.base.Limit > 0 {
			c.limit = *c.base.Limit
		}
	}

	cur, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.cur = cur
	return c, nil
}

// fetch re-issues the query from the current position, shrinking the limit
// by what has already been consumed.
func (c *Cursor) fetch(ctx context.Context) (mongoproxy.Cursor, error) {
	fo := options.Find()
	if c.base != nil {
		tmp := *c.base
		fo = &tmp
	}
	fo.SetSkip(c.skip + c.consumed)
	if c.limit > 0 {
		fo.SetLimit(c.limit - c.consumed)
	}
	return c.coll.Find(ctx, c.filter, fo)
}

// Next advances the cursor, reconnecting as needed. It returns false when
// the result set is exhausted or a non-resumable error occurred; check Err
// to tell the two apart.
func (c *Cursor) Next(ctx context.Context) bool {
	if c.err != nil || c.done {
		return false
	}
	for {
		if c.cur.Next(ctx) {
			c.consumed++
			return true
		}
		err := c.cur.Err()
		if err == nil {
			c.done = true
			return false
		}
		if !c.resumable(err) {
			c.err = err
			return false
		}
		if c.limit > 0 && c.consumed >= c.limit {
			c.done = true
			return false
		}
		if rerr := c.reconnect(ctx); rerr != nil {
			c.err = rerr
			return false
		}
	}
}

func (c *Cursor) reconnect(ctx context.Context) error {
	c.logf(ctx, "durablecursor: %s: cursor broke at position %d, reconnecting", c.coll.Name(), c.skip+c.consumed)
	start := c.now()
	interval := c.initialInterval
	for {
		cur, err := c.fetch(ctx)
		if err == nil {
			c.cur = cur
			return nil
		}
		if !c.resumable(err) {
			return err
		}
		if c.now().Sub(start) > c.maxReconnectTime {
			c.logf(ctx, "durablecursor: %s: giving up reconnect after %s", c.coll.Name(), c.maxReconnectTime.String())
			return ErrReconnectFailed
		}
		c.logf(ctx, "durablecursor: %s: reconnect failed: %s, next try after %s", c.coll.Name(), err.Error(), interval.String())
		c.sleep(interval)
		interval *= 2
		if interval > maxReconnectSleep {
			interval = maxReconnectSleep
		}
	}
}

// resumable widens the proxy's transient classification with CursorNotFound;
// the server discards cursors when a member steps down, so re-issuing the
// query is the only way to continue.
func (c *Cursor) resumable(err error) bool {
	if c.classify(err) {
		return true
	}
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(43)
}

// Decode unmarshals the current document into val.
func (c *Cursor) Decode(val interface{}) error {
	return c.cur.Decode(val)
}

// Err reports the terminal error, if any. ErrReconnectFailed means the
// reconnect budget ran out; anything else is the underlying error.
func (c *Cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.cur.Err()
}

// Close releases the underlying cursor.
func (c *Cursor) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}
