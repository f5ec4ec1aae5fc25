package mongoclient

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/malge/mongoproxy"
)

var _ mongoproxy.Client = (*clientImpl)(nil)

type clientImpl struct {
	orig     OriginalClient
	raw      *mongo.Client // nil unless constructed via Wrap
	settings *mongoproxy.ClientSettings

	mu  sync.RWMutex
	mws []mongoproxy.Middleware
}

// invoke runs op through the middleware chain, First-In First-Apply.
// The chain is rebuilt per call from a snapshot of the middleware slice so
// Append/RemoveMiddleware stay safe while operations are in flight.
func (c *clientImpl) invoke(ctx context.Context, info *mongoproxy.OpInfo, op mongoproxy.Invoker) error {
	c.mu.RLock()
	mws := make([]mongoproxy.Middleware, len(c.mws))
	copy(mws, c.mws)
	c.mu.RUnlock()

	next := op
	for i := len(mws) - 1; i >= 0; i-- {
		mw, inner := mws[i], next
		next = func(ctx context.Context) error {
			return mw.Invoke(ctx, info, inner)
		}
	}
	return next(ctx)
}

func (c *clientImpl) classify(err error) bool {
	return c.settings.Classify(err)
}

func (c *clientImpl) Database(name string, opts ...*options.DatabaseOptions) mongoproxy.Database {
	return &databaseImpl{
		client: c,
		orig:   c.orig.Database(name, opts...),
	}
}

func (c *clientImpl) ListDatabaseNames(ctx context.Context, filter interface{}, opts ...*options.ListDatabasesOptions) (names []string, err error) {
	info := &mongoproxy.OpInfo{Method: "ListDatabaseNames"}
	ierr := c.invoke(ctx, info, func(ctx context.Context) error {
		names, err = c.orig.ListDatabaseNames(ctx, filter, opts...)
		return err
	})
	if ierr != nil {
		return nil, ierr
	}
	return names, nil
}

func (c *clientImpl) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	info := &mongoproxy.OpInfo{Method: "Ping"}
	return c.invoke(ctx, info, func(ctx context.Context) error {
		return c.orig.Ping(ctx, rp)
	})
}

// Disconnect tears the underlying client down. Not routed through the
// middleware chain; retrying a teardown makes no sense.
func (c *clientImpl) Disconnect(ctx context.Context) error {
	return c.orig.Disconnect(ctx)
}

func (c *clientImpl) Unwrap() *mongo.Client {
	return c.raw
}

func (c *clientImpl) AppendMiddleware(mw mongoproxy.Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mws = append(c.mws, mw)
}

func (c *clientImpl) RemoveMiddleware(mw mongoproxy.Middleware) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.mws {
		if m == mw {
			c.mws = append(c.mws[:i], c.mws[i+1:]...)
			return true
		}
	}
	return false
}
