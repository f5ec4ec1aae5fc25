package mongoclient

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/malge/mongoproxy"
)

var _ mongoproxy.Collection = (*collectionImpl)(nil)

type collectionImpl struct {
	client *clientImpl
	db     string
	orig   OriginalCollection
}

func (c *collectionImpl) opInfo(method string) *mongoproxy.OpInfo {
	return &mongoproxy.OpInfo{Method: method, Database: c.db, Collection: c.orig.Name()}
}

func (c *collectionImpl) Name() string {
	return c.orig.Name()
}

func (c *collectionImpl) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (res *mongo.InsertOneResult, err error) {
	ierr := c.client.invoke(ctx, c.opInfo("InsertOne"), func(ctx context.Context) error {
		res, err = c.orig.InsertOne(ctx, document, opts...)
		return err
	})
	if ierr != nil {
		return nil, ierr
	}
	return res, nil
}

func (c *collectionImpl) InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (res *mongo.InsertManyResult, err error) {
	ierr := c.client.invoke(ctx, c.opInfo("InsertMany"), func(ctx context.Context) error {
		res, err = c.orig.InsertMany(ctx, documents, opts...)
		return err
	})
	if ierr != nil {
		return nil, ierr
	}
	return res, nil
}

func (c *collectionImpl) UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (res *mongo.UpdateResult, err error) {
	ierr := c.client.invoke(ctx, c.opInfo("UpdateOne"), func(ctx context.Context) error {
		res, err = c.orig.UpdateOne(ctx, filter, update, opts...)
		return err
	})
	if ierr != nil {
		return nil, ierr
	}
	return res, nil
}

func (c *collectionImpl) UpdateMany(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (res *mongo.UpdateResult, err error) {
	ierr := c.client.invoke(ctx, c.opInfo("UpdateMany"), func(ctx context.Context) error {
		res, err = c.orig.UpdateMany(ctx, filter, update, opts...)
		return err
	})
	if ierr != nil {
		return nil, ierr
	}
	return res, nil
}

func (c *collectionImpl) ReplaceOne(ctx context.Context, filter, replacement interface{}, opts ...*options.ReplaceOptions) (res *mongo.UpdateResult, err error) {
	ierr := c.client.invoke(ctx, c.opInfo("ReplaceOne"), func(ctx context.Context) error {
		res, err = c.orig.ReplaceOne(ctx, filter, replacement, opts...)
		return err
	})
	if ierr != nil {
		return nil, ierr
	}
	return res, nil
}

func (c *collectionImpl) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (res *mongo.DeleteResult, err error) {
	ierr := c.client.invoke(ctx, c.opInfo("DeleteOne"), func(ctx context.Context) error {
		res, err = c.orig.DeleteOne(ctx, filter, opts...)
		return err
	})
	if ierr != nil {
		return nil, ierr
	}
	return res, nil
}

func (c *collectionImpl) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (res *mongo.DeleteResult, err error) {
	ierr := c.client.invoke(ctx, c.opInfo("DeleteMany"), func(ctx context.Context) error {
		res, err = c.orig.DeleteMany(ctx, filter, opts...)
		return err
	})
	if ierr != nil {
		return nil, ierr
	}
	return res, nil
}

// FindOne surfaces errors through the returned SingleResult, so transient
// failures are sniffed out of it for the retry loop; everything else stays
// inside the result for the caller to inspect, ErrNoDocuments included.
func (c *collectionImpl) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) mongoproxy.SingleResult {
	var sr mongoproxy.SingleResult
	err := c.client.invoke(ctx, c.opInfo("FindOne"), func(ctx context.Context) error {
		sr = c.orig.FindOne(ctx, filter, opts...)
		if err := sr.Err(); err != nil && c.client.classify(err) {
			return err
		}
		return nil
	})
	if err != nil {
		return &errSingleResult{err: err}
	}
	return sr
}

func (c *collectionImpl) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (cur mongoproxy.Cursor, err error) {
	ierr := c.client.invoke(ctx, c.opInfo("Find"), func(ctx context.Context) error {
		cur, err = c.orig.Find(ctx, filter, opts...)
		return err
	})
	if ierr != nil {
		return nil, ierr
	}
	return cur, nil
}

func (c *collectionImpl) FindOneAndUpdate(ctx context.Context, filter, update interface{}, opts ...*options.FindOneAndUpdateOptions) mongoproxy.SingleResult {
	var sr mongoproxy.SingleResult
	err := c.client.invoke(ctx, c.opInfo("FindOneAndUpdate"), func(ctx context.Context) error {
		sr = c.orig.FindOneAndUpdate(ctx, filter, update, opts...)
		if err := sr.Err(); err != nil && c.client.classify(err) {
			return err
		}
		return nil
	})
	if err != nil {
		return &errSingleResult{err: err}
	}
	return sr
}

func (c *collectionImpl) FindOneAndDelete(ctx context.Context, filter interface{}, opts ...*options.FindOneAndDeleteOptions) mongoproxy.SingleResult {
	var sr mongoproxy.SingleResult
	err := c.client.invoke(ctx, c.opInfo("FindOneAndDelete"), func(ctx context.Context) error {
		sr = c.orig.FindOneAndDelete(ctx, filter, opts...)
		if err := sr.Err(); err != nil && c.client.classify(err) {
			return err
		}
		return nil
	})
	if err != nil {
		return &errSingleResult{err: err}
	}
	return sr
}

func (c *collectionImpl) FindOneAndReplace(ctx context.Context, filter, replacement interface{}, opts ...*options.FindOneAndReplaceOptions) mongoproxy.SingleResult {
	var sr mongoproxy.SingleResult
	err := c.client.invoke(ctx, c.opInfo("FindOneAndReplace"), func(ctx context.Context) error {
		sr = c.orig.FindOneAndReplace(ctx, filter, replacement, opts...)
		if err := sr.Err(); err != nil && c.client.classify(err) {
			return err
		}
		return nil
	})
	if err != nil {
		return &errSingleResult{err: err}
	}
	return sr
}

func (c *collectionImpl) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (cur mongoproxy.Cursor, err error) {
	ierr := c.client.invoke(ctx, c.opInfo("Aggregate"), func(ctx context.Context) error {
		cur, err = c.orig.Aggregate(ctx, pipeline, opts...)
		return err
	})
	if ierr != nil {
		return nil, ierr
	}
	return cur, nil
}

func (c *collectionImpl) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (cnt int64, err error) {
	ierr := c.client.invoke(ctx, c.opInfo("CountDocuments"), func(ctx context.Context) error {
		cnt, err = c.orig.CountDocuments(ctx, filter, opts...)
		return err
	})
	if ierr != nil {
		return 0, ierr
	}
	return cnt, nil
}

func (c *collectionImpl) EstimatedDocumentCount(ctx context.Context, opts ...*options.EstimatedDocumentCountOptions) (cnt int64, err error) {
	ierr := c.client.invoke(ctx, c.opInfo("EstimatedDocumentCount"), func(ctx context.Context) error {
		cnt, err = c.orig.EstimatedDocumentCount(ctx, opts...)
		return err
	})
	if ierr != nil {
		return 0, ierr
	}
	return cnt, nil
}

func (c *collectionImpl) Distinct(ctx context.Context, fieldName string, filter interface{}, opts ...*options.DistinctOptions) (values []interface{}, err error) {
	ierr := c.client.invoke(ctx, c.opInfo("Distinct"), func(ctx context.Context) error {
		values, err = c.orig.Distinct(ctx, fieldName, filter, opts...)
		return err
	})
	if ierr != nil {
		return nil, ierr
	}
	return values, nil
}

func (c *collectionImpl) BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (res *mongo.BulkWriteResult, err error) {
	ierr := c.client.invoke(ctx, c.opInfo("BulkWrite"), func(ctx context.Context) error {
		res, err = c.orig.BulkWrite(ctx, models, opts...)
		return err
	})
	if ierr != nil {
		return nil, ierr
	}
	return res, nil
}

func (c *collectionImpl) Indexes() mongoproxy.IndexView {
	return &indexViewImpl{coll: c, orig: c.orig.Indexes()}
}

func (c *collectionImpl) Drop(ctx context.Context) error {
	return c.client.invoke(ctx, c.opInfo("Drop"), func(ctx context.Context) error {
		return c.orig.Drop(ctx)
	})
}

func (c *collectionImpl) Unwrap() *mongo.Collection {
	if dc, ok := c.orig.(driverCollection); ok {
		return dc.Collection
	}
	return nil
}

var _ mongoproxy.IndexView = (*indexViewImpl)(nil)

type indexViewImpl struct {
	coll *collectionImpl
	orig OriginalIndexView
}

func (iv *indexViewImpl) CreateOne(ctx context.Context, model mongo.IndexModel, opts ...*options.CreateIndexesOptions) (name string, err error) {
	ierr := iv.coll.client.invoke(ctx, iv.coll.opInfo("Indexes.CreateOne"), func(ctx context.Context) error {
		name, err = iv.orig.CreateOne(ctx, model, opts...)
		return err
	})
	if ierr != nil {
		return "", ierr
	}
	return name, nil
}

func (iv *indexViewImpl) DropOne(ctx context.Context, name string, opts ...*options.DropIndexesOptions) (raw bson.Raw, err error) {
	ierr := iv.coll.client.invoke(ctx, iv.coll.opInfo("Indexes.DropOne"), func(ctx context.Context) error {
		raw, err = iv.orig.DropOne(ctx, name, opts...)
		return err
	})
	if ierr != nil {
		return nil, ierr
	}
	return raw, nil
}

func (iv *indexViewImpl) List(ctx context.Context, opts ...*options.ListIndexesOptions) (cur mongoproxy.Cursor, err error) {
	ierr := iv.coll.client.invoke(ctx, iv.coll.opInfo("Indexes.List"), func(ctx context.Context) error {
		cur, err = iv.orig.List(ctx, opts...)
		return err
	})
	if ierr != nil {
		return nil, ierr
	}
	return cur, nil
}

// errSingleResult carries a retry-exhausted or invocation error back to the
// caller through the SingleResult surface, preserving the original error.
type errSingleResult struct {
	err error
}

func (r *errSingleResult) Decode(v interface{}) error { return r.err }
func (r *errSingleResult) Err() error                 { return r.err }
