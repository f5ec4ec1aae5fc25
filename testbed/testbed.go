// Package testbed provides in-memory fakes for the capability interfaces
// in mongoclient, with per-method call counting and scriptable fault
// injection. It exists so the proxy's retry behavior can be exercised
// without a running replica set.
package testbed

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/malge/mongoproxy"
	"github.com/malge/mongoproxy/mongoclient"
)

var (
	_ mongoclient.OriginalClient     = (*Client)(nil)
	_ mongoclient.OriginalDatabase   = (*Database)(nil)
	_ mongoclient.OriginalCollection = (*Collection)(nil)
	_ mongoclient.OriginalIndexView  = (*IndexView)(nil)
)

// NotPrimaryError returns the transient signal a replica set member raises
// while the cluster is between primaries.
func NotPrimaryError() error {
	return mongo.CommandError{
		Code:    10107,
		Name:    "NotWritablePrimary",
		Message: "node is not in primary or recovering state",
	}
}

// Client is the root fake. Fault plans and call counts are shared across
// every database and collection navigated from it, keyed by method name as
// it appears in OpInfo.Method.
type Client struct {
	mu    sync.Mutex
	dbs   map[string]*Database
	plans map[string][]error
	calls map[string]int
}

func NewClient() *Client {
	return &Client{
		dbs:   make(map[string]*Database),
		plans: make(map[string][]error),
		calls: make(map[string]int),
	}
}

// FailTimes arranges for the next n invocations of method to return err.
func (c *Client) FailTimes(method string, n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < n; i++ {
		c.plans[method] = append(c.plans[method], err)
	}
}

// Calls reports how many times method reached the fake, failed attempts
// included.
func (c *Client) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// step counts the invocation and pops the next planned failure, if any.
func (c *Client) step(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
	if q := c.plans[method]; len(q) > 0 {
		err := q[0]
		c.plans[method] = q[1:]
		return err
	}
	return nil
}

func (c *Client) Database(name string, opts ...*options.DatabaseOptions) mongoclient.OriginalDatabase {
	c.mu.Lock()
	defer c.mu.Unlock()
	db, ok := c.dbs[name]
	if !ok {
		db = &Database{client: c, name: name, colls: make(map[string]*Collection)}
		c.dbs[name] = db
	}
	return db
}

func (c *Client) ListDatabaseNames(ctx context.Context, filter interface{}, opts ...*options.ListDatabasesOptions) ([]string, error) {
	if err := c.step("ListDatabaseNames"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.dbs))
	for name := range c.dbs {
		names = append(names, name)
	}
	return names, nil
}

func (c *Client) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	return c.step("Ping")
}

func (c *Client) Disconnect(ctx context.Context) error {
	return nil
}

// Database is the database-level fake.
type Database struct {
	client *Client
	name   string

	mu    sync.Mutex
	colls map[string]*Collection
}

func (d *Database) Name() string {
	return d.name
}

func (d *Database) Collection(name string, opts ...*options.CollectionOptions) mongoclient.OriginalCollection {
	d.mu.Lock()
	defer d.mu.Unlock()
	coll, ok := d.colls[name]
	if !ok {
		coll = &Collection{client: d.client, name: name, breakAt: -1}
		d.colls[name] = coll
	}
	return coll
}

func (d *Database) RunCommand(ctx context.Context, runCommand interface{}, opts ...*options.RunCmdOptions) mongoproxy.SingleResult {
	if err := d.client.step("RunCommand"); err != nil {
		return &SingleResult{err: err}
	}
	return &SingleResult{doc: bson.D{{Key: "ok", Value: 1}}}
}

func (d *Database) ListCollectionNames(ctx context.Context, filter interface{}, opts ...*options.ListCollectionsOptions) ([]string, error) {
	if err := d.client.step("ListCollectionNames"); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.colls))
	for name := range d.colls {
		names = append(names, name)
	}
	return names, nil
}

func (d *Database) CreateCollection(ctx context.Context, name string, opts ...*options.CreateCollectionOptions) error {
	if err := d.client.step("CreateCollection"); err != nil {
		return err
	}
	d.Collection(name)
	return nil
}

func (d *Database) Drop(ctx context.Context) error {
	if err := d.client.step("Drop"); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.colls = make(map[string]*Collection)
	return nil
}

// Collection is the collection-level fake. Documents are stored opaquely;
// filters are ignored, which is enough for exercising the proxy.
type Collection struct {
	client *Client
	name   string

	mu       sync.Mutex
	docs     []interface{}
	breakAt  int
	breakErr error
}

func (c *Collection) Name() string {
	return c.name
}

// Seed replaces the stored documents.
func (c *Collection) Seed(docs ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = append([]interface{}(nil), docs...)
}

// BreakCursorAt arranges for the next cursor created by Find to fail with
// err after yielding n documents. The plan is consumed by one cursor.
func (c *Collection) BreakCursorAt(n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.breakAt = n
	c.breakErr = err
}

func (c *Collection) snapshot() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interface{}(nil), c.docs...)
}

func (c *Collection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if err := c.client.step("InsertOne"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = append(c.docs, document)
	return &mongo.InsertOneResult{InsertedID: primitive.NewObjectID()}, nil
}

func (c *Collection) InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	if err := c.client.step("InsertMany"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	res := &mongo.InsertManyResult{}
	for _, doc := range documents {
		c.docs = append(c.docs, doc)
		res.InsertedIDs = append(res.InsertedIDs, primitive.NewObjectID())
	}
	return res, nil
}

func (c *Collection) UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	if err := c.client.step("UpdateOne"); err != nil {
		return nil, err
	}
	return c.updateResult(1), nil
}

func (c *Collection) UpdateMany(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	if err := c.client.step("UpdateMany"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	n := int64(len(c.docs))
	c.mu.Unlock()
	return &mongo.UpdateResult{MatchedCount: n, ModifiedCount: n}, nil
}

func (c *Collection) ReplaceOne(ctx context.Context, filter, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	if err := c.client.step("ReplaceOne"); err != nil {
		return nil, err
	}
	return c.updateResult(1), nil
}

func (c *Collection) updateResult(n int64) *mongo.UpdateResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.docs) == 0 {
		n = 0
	}
	return &mongo.UpdateResult{MatchedCount: n, ModifiedCount: n}
}

func (c *Collection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	if err := c.client.step("DeleteOne"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.docs) == 0 {
		return &mongo.DeleteResult{}, nil
	}
	c.docs = c.docs[1:]
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

func (c *Collection) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	if err := c.client.step("DeleteMany"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := int64(len(c.docs))
	c.docs = nil
	return &mongo.DeleteResult{DeletedCount: n}, nil
}

func (c *Collection) firstDoc() *SingleResult {
	docs := c.snapshot()
	if len(docs) == 0 {
		return &SingleResult{err: mongo.ErrNoDocuments}
	}
	return &SingleResult{doc: docs[0]}
}

func (c *Collection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) mongoproxy.SingleResult {
	if err := c.client.step("FindOne"); err != nil {
		return &SingleResult{err: err}
	}
	return c.firstDoc()
}

func (c *Collection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (mongoproxy.Cursor, error) {
	if err := c.client.step("Find"); err != nil {
		return nil, err
	}
	fo := options.MergeFindOptions(opts...)
	docs := c.snapshot()
	if fo.Skip != nil {
		skip := int(*fo.Skip)
		if skip > len(docs) {
			skip = len(docs)
		}
		docs = docs[skip:]
	}
	if fo.Limit != nil && *fo.Limit > 0 && int(*fo.Limit) < len(docs) {
		docs = docs[:int(*fo.Limit)]
	}

	cur := &Cursor{docs: docs, breakAt: -1}
	c.mu.Lock()
	if c.breakAt >= 0 {
		cur.breakAt = c.breakAt
		cur.breakErr = c.breakErr
		c.breakAt = -1
		c.breakErr = nil
	}
	c.mu.Unlock()
	return cur, nil
}

func (c *Collection) FindOneAndUpdate(ctx context.Context, filter, update interface{}, opts ...*options.FindOneAndUpdateOptions) mongoproxy.SingleResult {
	if err := c.client.step("FindOneAndUpdate"); err != nil {
		return &SingleResult{err: err}
	}
	return c.firstDoc()
}

func (c *Collection) FindOneAndDelete(ctx context.Context, filter interface{}, opts ...*options.FindOneAndDeleteOptions) mongoproxy.SingleResult {
	if err := c.client.step("FindOneAndDelete"); err != nil {
		return &SingleResult{err: err}
	}
	return c.firstDoc()
}

func (c *Collection) FindOneAndReplace(ctx context.Context, filter, replacement interface{}, opts ...*options.FindOneAndReplaceOptions) mongoproxy.SingleResult {
	if err := c.client.step("FindOneAndReplace"); err != nil {
		return &SingleResult{err: err}
	}
	return c.firstDoc()
}

func (c *Collection) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (mongoproxy.Cursor, error) {
	if err := c.client.step("Aggregate"); err != nil {
		return nil, err
	}
	return &Cursor{docs: c.snapshot(), breakAt: -1}, nil
}

func (c *Collection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	if err := c.client.step("CountDocuments"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.docs)), nil
}

func (c *Collection) EstimatedDocumentCount(ctx context.Context, opts ...*options.EstimatedDocumentCountOptions) (int64, error) {
	if err := c.client.step("EstimatedDocumentCount"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.docs)), nil
}

func (c *Collection) Distinct(ctx context.Context, fieldName string, filter interface{}, opts ...*options.DistinctOptions) ([]interface{}, error) {
	if err := c.client.step("Distinct"); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var values []interface{}
	for _, doc := range c.snapshot() {
		var m bson.M
		if err := roundtrip(doc, &m); err != nil {
			return nil, err
		}
		v, ok := m[fieldName]
		if !ok {
			continue
		}
		key := fmt.Sprint(v)
		if !seen[key] {
			seen[key] = true
			values = append(values, v)
		}
	}
	return values, nil
}

func (c *Collection) BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	if err := c.client.step("BulkWrite"); err != nil {
		return nil, err
	}
	return &mongo.BulkWriteResult{}, nil
}

func (c *Collection) Indexes() mongoclient.OriginalIndexView {
	return &IndexView{coll: c}
}

func (c *Collection) Drop(ctx context.Context) error {
	if err := c.client.step("Drop"); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = nil
	return nil
}

// IndexView is the index accessor fake.
type IndexView struct {
	coll *Collection

	mu    sync.Mutex
	names []string
}

func (iv *IndexView) CreateOne(ctx context.Context, model mongo.IndexModel, opts ...*options.CreateIndexesOptions) (string, error) {
	if err := iv.coll.client.step("Indexes.CreateOne"); err != nil {
		return "", err
	}
	iv.mu.Lock()
	defer iv.mu.Unlock()
	name := fmt.Sprintf("index_%d", len(iv.names)+1)
	iv.names = append(iv.names, name)
	return name, nil
}

func (iv *IndexView) DropOne(ctx context.Context, name string, opts ...*options.DropIndexesOptions) (bson.Raw, error) {
	if err := iv.coll.client.step("Indexes.DropOne"); err != nil {
		return nil, err
	}
	return bson.Raw{}, nil
}

func (iv *IndexView) List(ctx context.Context, opts ...*options.ListIndexesOptions) (mongoproxy.Cursor, error) {
	if err := iv.coll.client.step("Indexes.List"); err != nil {
		return nil, err
	}
	iv.mu.Lock()
	defer iv.mu.Unlock()
	docs := make([]interface{}, 0, len(iv.names))
	for _, name := range iv.names {
		docs = append(docs, bson.D{{Key: "name", Value: name}})
	}
	return &Cursor{docs: docs, breakAt: -1}, nil
}
