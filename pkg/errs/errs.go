package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
)

// ValidationError reports bad caller input. It is returned synchronously
// and is never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidation creates a ValidationError with a formatted message.
func NewValidation(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TransientStoreError marks a store failure that is expected to clear on
// retry (timeout, lost connection).
type TransientStoreError struct {
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("transient store error: %v", e.Err)
}

func (e *TransientStoreError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientStoreError. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientStoreError{Err: err}
}

// IsTransient reports whether err looks like a timeout or connectivity
// failure rather than a permanent one.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var tse *TransientStoreError
	if errors.As(err, &tse) {
		return true
	}
	if mongo.IsTimeout(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

const (
	retryInitialInterval = 100 * time.Millisecond
	retryMaxRetries      = 3
)

// RetryRead runs op, retrying with bounded exponential backoff as long as
// the failure is transient. Non-transient errors abort immediately. Write
// paths must not use this: a retried insert could duplicate data.
func RetryRead(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(retryInitialInterval),
		), retryMaxRetries),
		ctx,
	)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}
