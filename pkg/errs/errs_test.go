package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidation(t *testing.T) {
	err := NewValidation("note too long: %d chars", 512)
	assert.True(t, IsValidation(err))
	assert.Equal(t, "note too long: 512 chars", err.Error())

	wrapped := fmt.Errorf("create check-in: %w", err)
	assert.True(t, IsValidation(wrapped))

	assert.False(t, IsValidation(errors.New("boom")))
	assert.False(t, IsValidation(nil))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(Transient(errors.New("connection reset"))))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(fmt.Errorf("fetch members: %w", Transient(errors.New("reset")))))

	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("document malformed")))
	assert.False(t, IsTransient(NewValidation("empty note")))
}

func TestTransientNilPassthrough(t *testing.T) {
	assert.NoError(t, Transient(nil))
}

func TestRetryReadRetriesTransient(t *testing.T) {
	calls := 0
	err := RetryRead(context.Background(), func() error {
		calls++
		if calls < 3 {
			return Transient(errors.New("timeout"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryReadStopsOnPermanent(t *testing.T) {
	permanent := errors.New("no such collection")
	calls := 0
	err := RetryRead(context.Background(), func() error {
		calls++
		return permanent
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls, "permanent failures are not retried")
}

func TestRetryReadGivesUpAfterBudget(t *testing.T) {
	calls := 0
	err := RetryRead(context.Background(), func() error {
		calls++
		return Transient(errors.New("still down"))
	})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, retryMaxRetries+1, calls)
}
