package mongoproxy

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Client is the entry point of the proxy graph. It mirrors the navigation
// structure of the underlying driver client (client → database → collection
// → operation) and routes every operation through the middleware chain.
type Client interface {
	Database(name string, opts ...*options.DatabaseOptions) Database

	ListDatabaseNames(ctx context.Context, filter interface{}, opts ...*options.ListDatabasesOptions) ([]string, error)
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	Disconnect(ctx context.Context) error

	// Unwrap returns the original driver client passed at construction,
	// or nil when the wrapped target is not a driver client.
	Unwrap() *mongo.Client

	AppendMiddleware(mw Middleware) // NOTE First-In First-Apply
	RemoveMiddleware(mw Middleware) bool
}

// Database wraps one database handle of the underlying client.
type Database interface {
	Name() string
	Collection(name string, opts ...*options.CollectionOptions) Collection

	RunCommand(ctx context.Context, runCommand interface{}, opts ...*options.RunCmdOptions) SingleResult
	ListCollectionNames(ctx context.Context, filter interface{}, opts ...*options.ListCollectionsOptions) ([]string, error)
	CreateCollection(ctx context.Context, name string, opts ...*options.CreateCollectionOptions) error
	Drop(ctx context.Context) error

	Unwrap() *mongo.Database
}

// Collection wraps one collection handle. The operation set is the curated
// list of network-facing methods that are worth guarding with retries.
type Collection interface {
	Name() string

	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
	UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpdateMany(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	ReplaceOne(ctx context.Context, filter, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)

	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (Cursor, error)
	FindOneAndUpdate(ctx context.Context, filter, update interface{}, opts ...*options.FindOneAndUpdateOptions) SingleResult
	FindOneAndDelete(ctx context.Context, filter interface{}, opts ...*options.FindOneAndDeleteOptions) SingleResult
	FindOneAndReplace(ctx context.Context, filter, replacement interface{}, opts ...*options.FindOneAndReplaceOptions) SingleResult
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (Cursor, error)

	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	EstimatedDocumentCount(ctx context.Context, opts ...*options.EstimatedDocumentCountOptions) (int64, error)
	Distinct(ctx context.Context, fieldName string, filter interface{}, opts ...*options.DistinctOptions) ([]interface{}, error)
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)

	Indexes() IndexView
	Drop(ctx context.Context) error

	Unwrap() *mongo.Collection
}

// IndexView wraps a collection's index accessor.
type IndexView interface {
	CreateOne(ctx context.Context, model mongo.IndexModel, opts ...*options.CreateIndexesOptions) (string, error)
	DropOne(ctx context.Context, name string, opts ...*options.DropIndexesOptions) (bson.Raw, error)
	List(ctx context.Context, opts ...*options.ListIndexesOptions) (Cursor, error)
}

// Cursor is satisfied by *mongo.Cursor. Next is deliberately not routed
// through the middleware chain; it is not idempotent. Use durablecursor
// for iteration that survives failovers.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(val interface{}) error
	All(ctx context.Context, results interface{}) error
	Err() error
	Close(ctx context.Context) error
	ID() int64
}

// SingleResult is satisfied by *mongo.SingleResult.
type SingleResult interface {
	Decode(v interface{}) error
	Err() error
}
