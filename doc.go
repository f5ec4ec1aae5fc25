/*
Package mongoproxy wraps a MongoDB driver client with transparent retries
for the one failure mode that is safe to retry: the replica set currently
has no reachable primary, as happens for a few seconds during a failover
election. Callers navigate the wrapped client exactly as they would the
driver (client → database → collection → operation) and never see this
class of transient error as long as the cluster recovers within the retry
budget. Every other error (validation, authorization, duplicate keys,
ordinary timeouts) passes through unchanged on the first occurrence.

Wrap an already-connected client and use it in place of the driver handles:

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		// ...
	}
	proxy := mongoclient.Wrap(client)

	coll := proxy.Database("app").Collection("events")
	res, err := coll.InsertOne(ctx, bson.M{"value": 42})

Retry behavior is configured at wrap time and immutable afterwards:

	proxy := mongoclient.Wrap(client,
		mongoproxy.WithMaxAttempts(5),
		mongoproxy.WithRetryInterval(500*time.Millisecond),
		mongoproxy.WithLogf(logf),
	)

The interception layer is a middleware chain; the retry executor is just
the first middleware. Additional middleware (request logging, metrics,
fault injection) lives under mpmiddleware and can be appended at wrap time
or later via AppendMiddleware.

The proxy adds no concurrency of its own: the retry pause is a blocking
sleep on the calling goroutine, and there is no cancellation mechanism
beyond whatever the underlying driver operation honors. Wrapped handles
hold no mutable state besides the middleware slice, so a wrapped client is
safe for concurrent use to the same degree the driver client is.

Operations that the proxy adds no value to can reach the raw driver object
through Unwrap at every level of the graph.
*/
package mongoproxy
