package mongoclient

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/malge/mongoproxy"
	"github.com/malge/mongoproxy/mpmiddleware/rpcretry"
)

// Wrap places the retry proxy in front of an already-constructed driver
// client. The returned Client is used exactly like the driver client; the
// retry middleware is installed with defaults unless options say otherwise.
func Wrap(client *mongo.Client, opts ...mongoproxy.ClientOption) mongoproxy.Client {
	c := fromOriginal(driverClient{client}, opts...)
	c.raw = client
	return c
}

// FromOriginal wraps any implementation of the capability interface. This
// is how the testbed fakes get wrapped; production code wants Wrap.
func FromOriginal(oc OriginalClient, opts ...mongoproxy.ClientOption) mongoproxy.Client {
	return fromOriginal(oc, opts...)
}

func fromOriginal(oc OriginalClient, opts ...mongoproxy.ClientOption) *clientImpl {
	settings := &mongoproxy.ClientSettings{
		MaxAttempts:   mongoproxy.DefaultMaxAttempts,
		RetryInterval: mongoproxy.DefaultRetryInterval,
		Logf:          func(ctx context.Context, format string, args ...interface{}) {},
		Classify:      mongoproxy.IsTransient,
	}
	for _, opt := range opts {
		opt.Apply(settings)
	}

	mws := make([]mongoproxy.Middleware, 0, len(settings.Middlewares)+1)
	if !settings.DisableRetry {
		mws = append(mws, rpcretry.New(
			rpcretry.WithMaxAttempts(settings.MaxAttempts),
			rpcretry.WithRetryInterval(settings.RetryInterval),
			rpcretry.WithLogf(settings.Logf),
			rpcretry.WithClassifier(settings.Classify),
		))
	}
	mws = append(mws, settings.Middlewares...)

	return &clientImpl{
		orig:     oc,
		settings: settings,
		mws:      mws,
	}
}

// IsWrappedDriverClient reports whether client wraps a real driver client.
func IsWrappedDriverClient(client mongoproxy.Client) bool {
	impl, ok := client.(*clientImpl)
	return ok && impl.raw != nil
}
