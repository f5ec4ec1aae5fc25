package mongoproxy

import "context"

// Invoker executes a single operation against the underlying client.
// Operation results are captured by the closure; the error return is what
// middleware gets to observe and act on.
type Invoker func(ctx context.Context) error

// OpInfo describes the operation currently flowing through the chain.
type OpInfo struct {
	// Method is the driver method name, e.g. "InsertOne" or "Indexes.List".
	Method string
	// Database and Collection name the navigation path the operation was
	// issued on. Collection is empty for client- and database-level
	// operations, Database is empty for client-level ones.
	Database   string
	Collection string
}

// Middleware wraps the invocation of every operation that flows through a
// wrapped client. Implementations must call next to proceed (possibly more
// than once, as the retry middleware does) or return early to short-circuit.
type Middleware interface {
	Invoke(ctx context.Context, info *OpInfo, next Invoker) error
}
