package mongoclient

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/malge/mongoproxy"
)

// The Original* interfaces are the minimal capability surface the proxy
// requires from a wrapped client. *mongo.Client and friends satisfy them
// through the thin driver* adapters below; testbed provides in-memory
// fakes for the same surface.

// OriginalClient is the unwrapped client-level target.
type OriginalClient interface {
	Database(name string, opts ...*options.DatabaseOptions) OriginalDatabase
	ListDatabaseNames(ctx context.Context, filter interface{}, opts ...*options.ListDatabasesOptions) ([]string, error)
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	Disconnect(ctx context.Context) error
}

// OriginalDatabase is the unwrapped database-level target.
type OriginalDatabase interface {
	Name() string
	Collection(name string, opts ...*options.CollectionOptions) OriginalCollection
	RunCommand(ctx context.Context, runCommand interface{}, opts ...*options.RunCmdOptions) mongoproxy.SingleResult
	ListCollectionNames(ctx context.Context, filter interface{}, opts ...*options.ListCollectionsOptions) ([]string, error)
	CreateCollection(ctx context.Context, name string, opts ...*options.CreateCollectionOptions) error
	Drop(ctx context.Context) error
}

// OriginalCollection is the unwrapped collection-level target.
type OriginalCollection interface {
	Name() string

	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
	UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpdateMany(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	ReplaceOne(ctx context.Context, filter, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)

	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) mongoproxy.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (mongoproxy.Cursor, error)
	FindOneAndUpdate(ctx context.Context, filter, update interface{}, opts ...*options.FindOneAndUpdateOptions) mongoproxy.SingleResult
	FindOneAndDelete(ctx context.Context, filter interface{}, opts ...*options.FindOneAndDeleteOptions) mongoproxy.SingleResult
	FindOneAndReplace(ctx context.Context, filter, replacement interface{}, opts ...*options.FindOneAndReplaceOptions) mongoproxy.SingleResult
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (mongoproxy.Cursor, error)

	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	EstimatedDocumentCount(ctx context.Context, opts ...*options.EstimatedDocumentCountOptions) (int64, error)
	Distinct(ctx context.Context, fieldName string, filter interface{}, opts ...*options.DistinctOptions) ([]interface{}, error)
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)

	Indexes() OriginalIndexView
	Drop(ctx context.Context) error
}

// OriginalIndexView is the unwrapped index accessor.
type OriginalIndexView interface {
	CreateOne(ctx context.Context, model mongo.IndexModel, opts ...*options.CreateIndexesOptions) (string, error)
	DropOne(ctx context.Context, name string, opts ...*options.DropIndexesOptions) (bson.Raw, error)
	List(ctx context.Context, opts ...*options.ListIndexesOptions) (mongoproxy.Cursor, error)
}

var (
	_ OriginalClient     = driverClient{}
	_ OriginalDatabase   = driverDatabase{}
	_ OriginalCollection = driverCollection{}
	_ OriginalIndexView  = driverIndexView{}
)

// driverClient adapts *mongo.Client. Only methods whose return types differ
// from the capability interface are forwarded by hand; everything else
// comes from embedding.
type driverClient struct {
	*mongo.Client
}

func (d driverClient) Database(name string, opts ...*options.DatabaseOptions) OriginalDatabase {
	return driverDatabase{d.Client.Database(name, opts...)}
}

type driverDatabase struct {
	*mongo.Database
}

func (d driverDatabase) Collection(name string, opts ...*options.CollectionOptions) OriginalCollection {
	return driverCollection{d.Database.Collection(name, opts...)}
}

func (d driverDatabase) RunCommand(ctx context.Context, runCommand interface{}, opts ...*options.RunCmdOptions) mongoproxy.SingleResult {
	return d.Database.RunCommand(ctx, runCommand, opts...)
}

type driverCollection struct {
	*mongo.Collection
}

func (d driverCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) mongoproxy.SingleResult {
	return d.Collection.FindOne(ctx, filter, opts...)
}

func (d driverCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (mongoproxy.Cursor, error) {
	cur, err := d.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

func (d driverCollection) FindOneAndUpdate(ctx context.Context, filter, update interface{}, opts ...*options.FindOneAndUpdateOptions) mongoproxy.SingleResult {
	return d.Collection.FindOneAndUpdate(ctx, filter, update, opts...)
}

func (d driverCollection) FindOneAndDelete(ctx context.Context, filter interface{}, opts ...*options.FindOneAndDeleteOptions) mongoproxy.SingleResult {
	return d.Collection.FindOneAndDelete(ctx, filter, opts...)
}

func (d driverCollection) FindOneAndReplace(ctx context.Context, filter, replacement interface{}, opts ...*options.FindOneAndReplaceOptions) mongoproxy.SingleResult {
	return d.Collection.FindOneAndReplace(ctx, filter, replacement, opts...)
}

func (d driverCollection) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (mongoproxy.Cursor, error) {
	cur, err := d.Collection.Aggregate(ctx, pipeline, opts...)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

func (d driverCollection) Indexes() OriginalIndexView {
	return driverIndexView{d.Collection.Indexes()}
}

type driverIndexView struct {
	mongo.IndexView
}

func (d driverIndexView) List(ctx context.Context, opts ...*options.ListIndexesOptions) (mongoproxy.Cursor, error) {
	cur, err := d.IndexView.List(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return cur, nil
}
