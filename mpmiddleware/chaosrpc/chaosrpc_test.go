package chaosrpc_test

import (
	"context"
	"math/rand"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/malge/mongoproxy"
	"github.com/malge/mongoproxy/mongoclient"
	"github.com/malge/mongoproxy/mpmiddleware/chaosrpc"
	"github.com/malge/mongoproxy/testbed"
)

func TestChaosRPC_CheckRaiseError(t *testing.T) {
	fake := testbed.NewClient()
	client := mongoclient.FromOriginal(fake,
		mongoproxy.WithoutRetry(),
		mongoproxy.WithMiddleware(chaosrpc.New(rand.NewSource(100))),
	)

	coll := client.Database("testdb").Collection("mycollection")

	catchErr := false
	for i := 0; i < 100; i++ {
		_, err := coll.InsertOne(context.Background(), bson.M{"i": i})
		if err != nil {
			t.Logf("#%d catch err=%s", i+1, err.Error())
			catchErr = true
		}
	}
	if !catchErr {
		t.Errorf("unexpected: %v", catchErr)
	}
}

func TestChaosRPC_RetryAbsorbsChaos(t *testing.T) {
	fake := testbed.NewClient()
	// chaos sits between the retry middleware and the fake, so every
	// injected failure is retryable from the caller's point of view.
	client := mongoclient.FromOriginal(fake,
		mongoproxy.WithMaxAttempts(10),
		mongoproxy.WithRetryInterval(0),
		mongoproxy.WithMiddleware(chaosrpc.New(rand.NewSource(100))),
	)

	coll := client.Database("testdb").Collection("mycollection")
	for i := 0; i < 100; i++ {
		if _, err := coll.InsertOne(context.Background(), bson.M{"i": i}); err != nil {
			t.Fatalf("#%d unexpected err=%s", i+1, err.Error())
		}
	}
	// chaos rejects before the fake is reached, so exactly one successful
	// attempt per insert lands on it
	if got := fake.Calls("InsertOne"); got != 100 {
		t.Errorf("unexpected call count: %d", got)
	}
}
