package utils

import (
	"errors"
	"fmt"
	"time"
)

// ErrorClass categorizes a failure for retry decisions.
type ErrorClass int

const (
	// ClassTransient covers failures worth retrying at the normal pace.
	ClassTransient ErrorClass = iota
	// ClassRateLimited means the remote asked us to slow down; retried with
	// a stretched delay.
	ClassRateLimited
	// ClassNotFound and ClassPermanent are not retried.
	ClassNotFound
	ClassPermanent
)

// Classifier is implemented by errors that know how they should be retried.
type Classifier interface {
	Class() ErrorClass
}

// ClassOf extracts the class from an error chain. Unclassified errors are
// treated as transient.
func ClassOf(err error) ErrorClass {
	var c Classifier
	if errors.As(err, &c) {
		return c.Class()
	}
	return ClassTransient
}

// Retryable reports whether an error class is worth another attempt.
func Retryable(class ErrorClass) bool {
	return class == ClassTransient || class == ClassRateLimited
}

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *Logger
}

// Do executes fn with exponential back-off retry logic. The per-attempt delay
// is derived from the error's class, never from its message text. Permanent
// and not-found failures return immediately.
func (r *RetryConfig) Do(operationName string, fn func() error) error {
	var lastErr error
	delay := r.BaseDelay

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		class := ClassOf(lastErr)
		if !Retryable(class) {
			return fmt.Errorf("%s failed: %w", operationName, lastErr)
		}

		if attempt < r.MaxAttempts {
			wait := delay
			if class == ClassRateLimited {
				wait = delay * 4
			}
			r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v — retrying in %v",
				operationName, attempt, r.MaxAttempts, lastErr, wait)
			time.Sleep(wait)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, r.MaxAttempts, lastErr)
}
