package retry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/skillmint/regsync/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

var log = logger.NewLogger()

const (
	// MaxAttempts is the total number of tries, including the first one.
	MaxAttempts = 3
	// BaseDelay is multiplied by the attempt number for linear backoff.
	BaseDelay = time.Second
)

// Overridable in tests.
var sleep = time.Sleep

// Policy bounds the attempts of a wrapped provider call.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultPolicy matches the fixed policy used for every sink call.
func DefaultPolicy() Policy {
	return Policy{Attempts: MaxAttempts, BaseDelay: BaseDelay}
}

// transientPhrases are provider messages that mark an error retryable even
// when no usable status code is attached.
var transientPhrases = []string{
	"rateLimitExceeded",
	"userRateLimitExceeded",
	"backendError",
	"The service is currently unavailable",
	"EOF",
}

// Retryable reports whether a provider error is worth another attempt:
// rate-limited, internal error or service unavailable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 429, 500, 503:
			return true
		}
	}
	msg := err.Error()
	for _, phrase := range transientPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// Do runs op under the default policy.
func Do(ctx context.Context, label string, op func() error) error {
	return DefaultPolicy().Do(ctx, label, op)
}

// Do invokes op up to p.Attempts times, waiting attempt*BaseDelay between
// tries. Non-retryable errors and exhausted retries return the last error.
func (p Policy) Do(ctx context.Context, label string, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if attempt == p.Attempts {
			break
		}
		delay := time.Duration(attempt) * p.BaseDelay
		log.Warn("Retryable provider error",
			zap.String("operation", label),
			zap.Int("attempt", attempt),
			zap.Duration("next_in", delay),
			zap.Error(lastErr),
		)
		sleep(delay)
	}
	return lastErr
}
