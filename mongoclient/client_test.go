package mongoclient_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/malge/mongoproxy"
	"github.com/malge/mongoproxy/mongoclient"
	"github.com/malge/mongoproxy/testbed"
)

func wrapFake(fake *testbed.Client, opts ...mongoproxy.ClientOption) mongoproxy.Client {
	opts = append([]mongoproxy.ClientOption{mongoproxy.WithRetryInterval(0)}, opts...)
	return mongoclient.FromOriginal(fake, opts...)
}

func TestInsertOne_FirstTrySuccess(t *testing.T) {
	fake := testbed.NewClient()
	client := wrapFake(fake)

	coll := client.Database("testdb").Collection("mycollection")
	res, err := coll.InsertOne(context.Background(), bson.M{"value": 1})
	require.NoError(t, err)
	require.NotNil(t, res.InsertedID)
	assert.Equal(t, 1, fake.Calls("InsertOne"))
}

func TestInsertOne_TransientTwiceThenSuccess(t *testing.T) {
	fake := testbed.NewClient()
	fake.FailTimes("InsertOne", 2, testbed.NotPrimaryError())
	client := wrapFake(fake, mongoproxy.WithMaxAttempts(3))

	coll := client.Database("testdb").Collection("mycollection")
	res, err := coll.InsertOne(context.Background(), bson.M{"inserted_id": 1})
	require.NoError(t, err)
	require.NotNil(t, res.InsertedID)
	assert.Equal(t, 3, fake.Calls("InsertOne"))
}

func TestFind_RetryBudgetExhausted(t *testing.T) {
	fake := testbed.NewClient()
	fake.FailTimes("Find", 5, testbed.NotPrimaryError())
	client := wrapFake(fake, mongoproxy.WithMaxAttempts(3))

	coll := client.Database("testdb").Collection("mycollection")
	_, err := coll.Find(context.Background(), bson.M{})
	require.Error(t, err)

	// the caller sees the original transient error, not a wrapper
	var ce mongo.CommandError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, int32(10107), ce.Code)
	assert.Equal(t, 3, fake.Calls("Find"))
}

func TestDeleteOne_FatalPropagatesImmediately(t *testing.T) {
	fake := testbed.NewClient()
	fatal := mongo.CommandError{Code: 11000, Message: "duplicate key"}
	fake.FailTimes("DeleteOne", 1, fatal)
	client := wrapFake(fake, mongoproxy.WithMaxAttempts(10))

	coll := client.Database("testdb").Collection("mycollection")
	_, err := coll.DeleteOne(context.Background(), bson.M{})
	require.Error(t, err)

	var ce mongo.CommandError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, int32(11000), ce.Code)
	assert.Equal(t, 1, fake.Calls("DeleteOne"))
}

func TestFindOne_NoDocumentsIsNotRetried(t *testing.T) {
	fake := testbed.NewClient()
	client := wrapFake(fake)

	coll := client.Database("testdb").Collection("empty")
	sr := coll.FindOne(context.Background(), bson.M{})
	assert.ErrorIs(t, sr.Err(), mongo.ErrNoDocuments)
	assert.Equal(t, 1, fake.Calls("FindOne"))
}

func TestFindOne_TransientInsideResultIsRetried(t *testing.T) {
	fake := testbed.NewClient()
	coll := fake.Database("testdb").Collection("mycollection").(*testbed.Collection)
	coll.Seed(bson.M{"name": "alpha"})
	fake.FailTimes("FindOne", 1, testbed.NotPrimaryError())

	client := wrapFake(fake, mongoproxy.WithMaxAttempts(3))
	sr := client.Database("testdb").Collection("mycollection").FindOne(context.Background(), bson.M{})
	require.NoError(t, sr.Err())

	var got bson.M
	require.NoError(t, sr.Decode(&got))
	assert.Equal(t, "alpha", got["name"])
	assert.Equal(t, 2, fake.Calls("FindOne"))
}

func TestNestedNavigation_DataValuesPassThrough(t *testing.T) {
	fake := testbed.NewClient()
	client := wrapFake(fake)

	db := client.Database("testdb")
	assert.Equal(t, "testdb", db.Name())
	coll := db.Collection("mycollection")
	assert.Equal(t, "mycollection", coll.Name())
}

func TestNestedNavigation_OperationsShareRetry(t *testing.T) {
	fake := testbed.NewClient()
	fake.FailTimes("RunCommand", 1, testbed.NotPrimaryError())
	fake.FailTimes("Indexes.CreateOne", 2, testbed.NotPrimaryError())
	client := wrapFake(fake, mongoproxy.WithMaxAttempts(5))

	db := client.Database("testdb")
	sr := db.RunCommand(context.Background(), bson.D{{Key: "ping", Value: 1}})
	require.NoError(t, sr.Err())
	assert.Equal(t, 2, fake.Calls("RunCommand"))

	name, err := db.Collection("mycollection").Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "value", Value: 1}}})
	require.NoError(t, err)
	assert.NotEmpty(t, name)
	assert.Equal(t, 3, fake.Calls("Indexes.CreateOne"))
}

func TestCursor_IterationPassesThrough(t *testing.T) {
	fake := testbed.NewClient()
	coll := fake.Database("testdb").Collection("mycollection").(*testbed.Collection)
	coll.Seed(bson.M{"i": 0}, bson.M{"i": 1}, bson.M{"i": 2})

	client := wrapFake(fake)
	cur, err := client.Database("testdb").Collection("mycollection").Find(context.Background(), bson.M{})
	require.NoError(t, err)
	defer cur.Close(context.Background())

	var seen []int
	for cur.Next(context.Background()) {
		var doc bson.M
		require.NoError(t, cur.Decode(&doc))
		seen = append(seen, int(doc["i"].(int32)))
	}
	require.NoError(t, cur.Err())
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestAppendRemoveMiddleware(t *testing.T) {
	fake := testbed.NewClient()
	client := wrapFake(fake)

	mw := &countingMiddleware{}
	client.AppendMiddleware(mw)

	require.NoError(t, client.Ping(context.Background(), nil))
	assert.Equal(t, 1, mw.invoked)

	assert.True(t, client.RemoveMiddleware(mw))
	assert.False(t, client.RemoveMiddleware(mw))

	require.NoError(t, client.Ping(context.Background(), nil))
	assert.Equal(t, 1, mw.invoked)
}

func TestUnwrap_NonDriverTargetIsNil(t *testing.T) {
	fake := testbed.NewClient()
	client := wrapFake(fake)
	assert.Nil(t, client.Unwrap())
	assert.Nil(t, client.Database("testdb").Unwrap())
	assert.Nil(t, client.Database("testdb").Collection("mycollection").Unwrap())
	assert.False(t, mongoclient.IsWrappedDriverClient(client))
}

// Unwrap on a real driver client must hand back the exact object passed to
// Wrap. No server is contacted; handle construction is purely local.
func TestUnwrap_DriverClientIdentity(t *testing.T) {
	raw, err := mongo.Connect(context.Background())
	require.NoError(t, err)
	defer func() { _ = raw.Disconnect(context.Background()) }()

	client := mongoclient.Wrap(raw)
	assert.Same(t, raw, client.Unwrap())
	assert.True(t, mongoclient.IsWrappedDriverClient(client))

	db := client.Database("testdb")
	require.NotNil(t, db.Unwrap())
	assert.Equal(t, "testdb", db.Unwrap().Name())

	coll := db.Collection("mycollection")
	require.NotNil(t, coll.Unwrap())
	assert.Equal(t, "mycollection", coll.Unwrap().Name())
}

type countingMiddleware struct {
	invoked int
}

func (m *countingMiddleware) Invoke(ctx context.Context, info *mongoproxy.OpInfo, next mongoproxy.Invoker) error {
	m.invoked++
	return next(ctx)
}
