package rpcretry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/malge/mongoproxy"
)

func notPrimaryErr() error {
	return mongo.CommandError{Code: 10107, Name: "NotWritablePrimary", Message: "node is not in primary or recovering state"}
}

func testInfo() *mongoproxy.OpInfo {
	return &mongoproxy.OpInfo{Method: "InsertOne", Database: "testdb", Collection: "mycollection"}
}

func TestRetryHandler_FirstTrySuccess(t *testing.T) {
	rh := New(WithMaxAttempts(3), WithRetryInterval(0)).(*retryHandler)

	sleeps := 0
	rh.sleep = func(time.Duration) { sleeps++ }

	calls := 0
	err := rh.Invoke(context.Background(), testInfo(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("unexpected call count: %d", calls)
	}
	if sleeps != 0 {
		t.Errorf("unexpected sleep count: %d", sleeps)
	}
}

func TestRetryHandler_TransientThenSuccess(t *testing.T) {
	rh := New(WithMaxAttempts(3)).(*retryHandler)

	var slept []time.Duration
	rh.sleep = func(d time.Duration) { slept = append(slept, d) }
	rh.retryInterval = 250 * time.Millisecond

	calls := 0
	err := rh.Invoke(context.Background(), testInfo(), func(ctx context.Context) error {
		calls++
		if calls <= 2 {
			return notPrimaryErr()
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("unexpected call count: %d", calls)
	}
	if len(slept) != 2 {
		t.Fatalf("unexpected sleep count: %d", len(slept))
	}
	for _, d := range slept {
		if d != 250*time.Millisecond {
			t.Errorf("unexpected sleep duration: %s", d)
		}
	}
}

func TestRetryHandler_BudgetExhausted(t *testing.T) {
	rh := New(WithMaxAttempts(5), WithRetryInterval(0)).(*retryHandler)

	sleeps := 0
	rh.sleep = func(time.Duration) { sleeps++ }

	orig := notPrimaryErr()
	calls := 0
	err := rh.Invoke(context.Background(), testInfo(), func(ctx context.Context) error {
		calls++
		return orig
	})
	if calls != 5 {
		t.Errorf("unexpected call count: %d", calls)
	}
	// no sleep after the final failed attempt
	if sleeps != 4 {
		t.Errorf("unexpected sleep count: %d", sleeps)
	}
	var ce mongo.CommandError
	if !errors.As(err, &ce) || ce.Code != 10107 {
		t.Errorf("caller must see the original transient error, got %v", err)
	}
}

func TestRetryHandler_FatalPassesThrough(t *testing.T) {
	rh := New(WithMaxAttempts(10), WithRetryInterval(0)).(*retryHandler)

	sleeps := 0
	rh.sleep = func(time.Duration) { sleeps++ }

	fatal := mongo.CommandError{Code: 11000, Message: "duplicate key"}
	calls := 0
	err := rh.Invoke(context.Background(), testInfo(), func(ctx context.Context) error {
		calls++
		return fatal
	})
	if calls != 1 {
		t.Errorf("fatal errors must not be retried, call count: %d", calls)
	}
	if sleeps != 0 {
		t.Errorf("unexpected sleep count: %d", sleeps)
	}
	var ce mongo.CommandError
	if !errors.As(err, &ce) || ce.Code != 11000 {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRetryHandler_LogEventsDistinguishable(t *testing.T) {
	rh := New(WithMaxAttempts(2), WithRetryInterval(0)).(*retryHandler)
	rh.sleep = func(time.Duration) {}

	var logs []string
	rh.logf = func(ctx context.Context, format string, args ...interface{}) {
		logs = append(logs, format)
	}

	_ = rh.Invoke(context.Background(), testInfo(), func(ctx context.Context) error {
		return notPrimaryErr()
	})

	if len(logs) != 2 {
		t.Fatalf("unexpected log count: %d", len(logs))
	}
	if logs[0] == logs[1] {
		t.Errorf("retry and give-up events must be distinguishable: %q", logs[0])
	}
}

func TestRetryHandler_CustomClassifier(t *testing.T) {
	marker := errors.New("flaky")
	rh := New(
		WithMaxAttempts(3),
		WithRetryInterval(0),
		WithClassifier(func(err error) bool { return errors.Is(err, marker) }),
	).(*retryHandler)
	rh.sleep = func(time.Duration) {}

	calls := 0
	err := rh.Invoke(context.Background(), testInfo(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return marker
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("unexpected call count: %d", calls)
	}
}
