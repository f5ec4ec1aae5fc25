package mongoclient

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/malge/mongoproxy"
)

var _ mongoproxy.Database = (*databaseImpl)(nil)

type databaseImpl struct {
	client *clientImpl
	orig   OriginalDatabase
}

func (d *databaseImpl) opInfo(method string) *mongoproxy.OpInfo {
	return &mongoproxy.OpInfo{Method: method, Database: d.orig.Name()}
}

func (d *databaseImpl) Name() string {
	return d.orig.Name()
}

func (d *databaseImpl) Collection(name string, opts ...*options.CollectionOptions) mongoproxy.Collection {
	return &collectionImpl{
		client: d.client,
		db:     d.orig.Name(),
		orig:   d.orig.Collection(name, opts...),
	}
}

func (d *databaseImpl) RunCommand(ctx context.Context, runCommand interface{}, opts ...*options.RunCmdOptions) mongoproxy.SingleResult {
	var sr mongoproxy.SingleResult
	err := d.client.invoke(ctx, d.opInfo("RunCommand"), func(ctx context.Context) error {
		sr = d.orig.RunCommand(ctx, runCommand, opts...)
		if err := sr.Err(); err != nil && d.client.classify(err) {
			return err
		}
		return nil
	})
	if err != nil {
		return &errSingleResult{err: err}
	}
	return sr
}

func (d *databaseImpl) ListCollectionNames(ctx context.Context, filter interface{}, opts ...*options.ListCollectionsOptions) (names []string, err error) {
	ierr := d.client.invoke(ctx, d.opInfo("ListCollectionNames"), func(ctx context.Context) error {
		names, err = d.orig.ListCollectionNames(ctx, filter, opts...)
		return err
	})
	if ierr != nil {
		return nil, ierr
	}
	return names, nil
}

func (d *databaseImpl) CreateCollection(ctx context.Context, name string, opts ...*options.CreateCollectionOptions) error {
	return d.client.invoke(ctx, d.opInfo("CreateCollection"), func(ctx context.Context) error {
		return d.orig.CreateCollection(ctx, name, opts...)
	})
}

func (d *databaseImpl) Drop(ctx context.Context) error {
	return d.client.invoke(ctx, d.opInfo("Drop"), func(ctx context.Context) error {
		return d.orig.Drop(ctx)
	})
}

func (d *databaseImpl) Unwrap() *mongo.Database {
	if dd, ok := d.orig.(driverDatabase); ok {
		return dd.Database
	}
	return nil
}
