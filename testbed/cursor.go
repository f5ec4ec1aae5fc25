package testbed

import (
	"context"
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/malge/mongoproxy"
)

var (
	_ mongoproxy.Cursor       = (*Cursor)(nil)
	_ mongoproxy.SingleResult = (*SingleResult)(nil)
)

// Cursor iterates a snapshot of fake documents. A break plan makes it fail
// once at a given position, which is how mid-iteration failovers are
// simulated for durablecursor tests.
type Cursor struct {
	docs    []interface{}
	i       int
	current interface{}

	breakAt  int
	breakErr error

	err    error
	closed bool
}

func (c *Cursor) Next(ctx context.Context) bool {
	if c.err != nil || c.closed {
		return false
	}
	if c.breakAt >= 0 && c.i == c.breakAt {
		c.err = c.breakErr
		c.breakAt = -1
		return false
	}
	if c.i >= len(c.docs) {
		return false
	}
	c.current = c.docs[c.i]
	c.i++
	return true
}

func (c *Cursor) Decode(val interface{}) error {
	if c.current == nil {
		return fmt.Errorf("testbed: Decode called before Next")
	}
	return roundtrip(c.current, val)
}

func (c *Cursor) All(ctx context.Context, results interface{}) error {
	rv := reflect.ValueOf(results)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("testbed: results must be a pointer to a slice")
	}
	sv := rv.Elem()
	out := reflect.MakeSlice(sv.Type(), 0, len(c.docs)-c.i)
	for ; c.i < len(c.docs); c.i++ {
		elem := reflect.New(sv.Type().Elem())
		if err := roundtrip(c.docs[c.i], elem.Interface()); err != nil {
			return err
		}
		out = reflect.Append(out, elem.Elem())
	}
	sv.Set(out)
	c.closed = true
	return nil
}

func (c *Cursor) Err() error {
	return c.err
}

func (c *Cursor) Close(ctx context.Context) error {
	c.closed = true
	return nil
}

func (c *Cursor) ID() int64 {
	return 0
}

// SingleResult is the single-document fake.
type SingleResult struct {
	doc interface{}
	err error
}

// NewSingleResult builds a SingleResult holding doc, or err if non-nil.
func NewSingleResult(doc interface{}, err error) *SingleResult {
	return &SingleResult{doc: doc, err: err}
}

func (r *SingleResult) Decode(v interface{}) error {
	if r.err != nil {
		return r.err
	}
	return roundtrip(r.doc, v)
}

func (r *SingleResult) Err() error {
	return r.err
}

// roundtrip copies src into dst through BSON, the same marshaling path the
// driver uses.
func roundtrip(src, dst interface{}) error {
	raw, err := bson.Marshal(src)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, dst)
}
