package mongoproxy

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsTransient_NotPrimaryCodes(t *testing.T) {
	codes := []int32{10107, 13435, 13436, 189, 91, 11600, 11602}
	for _, code := range codes {
		err := mongo.CommandError{Code: code, Message: "not primary"}
		if !IsTransient(err) {
			t.Errorf("code %d should be transient", code)
		}
	}
}

func TestIsTransient_RetryableWriteLabel(t *testing.T) {
	err := mongo.CommandError{Code: 112, Message: "write conflict", Labels: []string{"RetryableWriteError"}}
	if !IsTransient(err) {
		t.Errorf("RetryableWriteError label should be transient")
	}
}

func TestIsTransient_NetworkError(t *testing.T) {
	err := mongo.CommandError{Message: "connection reset by peer", Labels: []string{"NetworkError"}}
	if !IsTransient(err) {
		t.Errorf("network error should be transient")
	}
}

func TestIsTransient_FatalErrors(t *testing.T) {
	fatals := []error{
		mongo.CommandError{Code: 11000, Message: "duplicate key"},
		mongo.CommandError{Code: 13, Message: "unauthorized"},
		mongo.CommandError{Code: 50, Message: "max time expired"},
		mongo.ErrNoDocuments,
		context.DeadlineExceeded,
		errors.New("some application error"),
	}
	for _, err := range fatals {
		if IsTransient(err) {
			t.Errorf("%v should be fatal", err)
		}
	}
}

func TestIsTransient_Wrapped(t *testing.T) {
	err := fmt.Errorf("insert events: %w", mongo.CommandError{Code: 10107, Message: "not primary"})
	if !IsTransient(err) {
		t.Errorf("wrapped not-primary error should still classify as transient")
	}
}

func TestIsTransient_Nil(t *testing.T) {
	if IsTransient(nil) {
		t.Errorf("nil is not an error at all")
	}
}
