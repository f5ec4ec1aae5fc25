package mongoproxy

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// Server error codes raised while a replica set has no usable primary,
// i.e. between losing one and electing the next.
var notPrimaryCodes = []int{
	10107, // NotWritablePrimary
	13435, // NotPrimaryNoSecondaryOk
	13436, // NotPrimaryOrSecondary
	189,   // PrimarySteppedDown
	91,    // ShutdownInProgress
	11600, // InterruptedAtShutdown
	11602, // InterruptedDueToReplStateChange
}

// IsTransient reports whether err is the one condition worth retrying: the
// cluster currently lacks a reachable primary. This covers not-primary
// server errors, errors the server itself labeled retryable, driver network
// errors, and client-side server selection timeouts. Everything else is
// fatal and must reach the caller unchanged: duplicate keys, validation
// failures, authorization failures, MaxTimeMS expiry, ErrNoDocuments, and
// plain context deadlines all stay as they are.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var se mongo.ServerError
	if errors.As(err, &se) {
		for _, code := range notPrimaryCodes {
			if se.HasErrorCode(code) {
				return true
			}
		}
		if se.HasErrorLabel("RetryableWriteError") {
			return true
		}
	}

	if mongo.IsNetworkError(err) {
		return true
	}

	// The driver gave up selecting a server. The error type lives in an
	// internal package, so match on the timeout flag plus the stable
	// message prefix.
	if mongo.IsTimeout(err) && strings.Contains(err.Error(), "server selection error") {
		return true
	}

	return false
}
