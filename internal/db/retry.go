package db

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is a unit of work retried by Try.
type Operation func() error

const defaultMaxRetries = 3

// Try runs op, retrying up to the default limit when the failure is a
// duplicate key error. Random IDs make key collisions rare but possible;
// any other error is returned immediately.
func Try(op Operation) error {
	return WithRetries(op, defaultMaxRetries)
}

// WithRetries runs op with incremental backoff between duplicate-key
// retries.
func WithRetries(op Operation, maxRetries int) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt >= maxRetries || !IsDuplicateKeyError(err) {
			return err
		}
		time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond)
	}
}

// IsDuplicateKeyError reports whether err is a MongoDB unique index
// violation (code 11000), including bulk write variants.
func IsDuplicateKeyError(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}
