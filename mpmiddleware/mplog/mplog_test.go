package mplog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/malge/mongoproxy"
)

func TestLogger_SuccessAndError(t *testing.T) {
	var lines []string
	logf := func(ctx context.Context, format string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	l := NewLogger("mplog: ", logf)
	info := &mongoproxy.OpInfo{Method: "InsertOne", Database: "testdb", Collection: "mycollection"}

	err := l.Invoke(context.Background(), info, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	err = l.Invoke(context.Background(), info, func(ctx context.Context) error { return errors.New("boom") })
	if err == nil || err.Error() != "boom" {
		t.Fatalf("error must pass through unchanged, got %v", err)
	}

	expected := []string{
		"mplog: InsertOne #1, db=testdb, collection=mycollection",
		"mplog: InsertOne #1, ok",
		"mplog: InsertOne #2, db=testdb, collection=mycollection",
		"mplog: InsertOne #2, err=boom",
	}
	if len(lines) != len(expected) {
		t.Fatalf("unexpected line count: %d\n%s", len(lines), strings.Join(lines, "\n"))
	}
	for i, want := range expected {
		if lines[i] != want {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want)
		}
	}
}
