// Package chaosrpc provides a middleware that randomly injects the
// transient not-primary error in front of the wrapped client, simulating a
// replica set that keeps losing its primary. Combine with rpcretry in
// tests to exercise the recovery path without a real failover.
package chaosrpc

import (
	"context"
	"math/rand"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/malge/mongoproxy"
)

var _ mongoproxy.Middleware = (*chaosHandler)(nil)

func New(s rand.Source) mongoproxy.Middleware {
	return &chaosHandler{
		r: rand.New(s),
	}
}

type chaosHandler struct {
	r *rand.Rand
}

func (ch *chaosHandler) raiseError() error {
	// Fail with a 20% rate
	if ch.r.Intn(5) == 0 {
		return mongo.CommandError{
			Code:    10107,
			Name:    "NotWritablePrimary",
			Message: "chaosrpc: node is not in primary or recovering state",
		}
	}

	return nil
}

func (ch *chaosHandler) Invoke(ctx context.Context, info *mongoproxy.OpInfo, next mongoproxy.Invoker) error {
	if err := ch.raiseError(); err != nil {
		return err
	}

	return next(ctx)
}
