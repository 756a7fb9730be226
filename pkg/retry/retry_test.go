package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestRetryableClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil error", nil, false},
		{"rate limited", &googleapi.Error{Code: 429, Message: "Quota exceeded"}, true},
		{"internal error", &googleapi.Error{Code: 500}, true},
		{"service unavailable", &googleapi.Error{Code: 503}, true},
		{"bad request", &googleapi.Error{Code: 400, Message: "Invalid range"}, false},
		{"not found", &googleapi.Error{Code: 404}, false},
		{"permission denied", &googleapi.Error{Code: 403, Message: "The caller does not have permission"}, false},
		{"transient phrase without code", errors.New("googleapi: rateLimitExceeded"), true},
		{"unavailable phrase", errors.New("The service is currently unavailable"), true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, Retryable(tt.err))
		})
	}
}

func TestRetryBoundAndBackoff(t *testing.T) {
	var delays []time.Duration
	orig := sleep
	sleep = func(d time.Duration) { delays = append(delays, d) }
	defer func() { sleep = orig }()

	calls := 0
	final := &googleapi.Error{Code: 503, Message: "unavailable"}
	err := Policy{Attempts: 3, BaseDelay: 10 * time.Millisecond}.Do(context.Background(), "append row", func() error {
		calls++
		return final
	})

	require.Error(t, err)
	assert.Equal(t, final, err, "the last error must be rethrown")
	assert.Equal(t, 3, calls, "a persistently retryable error is tried exactly 3 times")

	require.Len(t, delays, 2)
	assert.Equal(t, 10*time.Millisecond, delays[0])
	assert.Equal(t, 20*time.Millisecond, delays[1])
	assert.Less(t, delays[0], delays[1], "backoff must strictly increase")
}

func TestNonRetryableFailsOnce(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "write header", func() error {
		calls++
		return &googleapi.Error{Code: 400, Message: "bad range"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestSucceedsAfterTransientFailure(t *testing.T) {
	orig := sleep
	sleep = func(time.Duration) {}
	defer func() { sleep = orig }()

	calls := 0
	err := Do(context.Background(), "update row", func() error {
		calls++
		if calls < 2 {
			return &googleapi.Error{Code: 429}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, "clear rows", func() error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
