package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type rateLimitError struct{}

func (e *rateLimitError) Error() string { return "rate limited" }

type serverError struct {
	statusCode int
	body       string
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error (status %d): %s", e.statusCode, e.body)
}

type authError struct {
	message string
}

func (e *authError) Error() string {
	return "authentication error: " + e.message
}

func missingKey(name string) error {
	return &authError{message: name + " environment variable is not set"}
}

// IsAuthError checks if an error is an authentication error. A missing API
// key counts as one.
func IsAuthError(err error) bool {
	var ae *authError
	return errors.As(err, &ae)
}

func isRetryable(err error) bool {
	var rl *rateLimitError
	var se *serverError
	return errors.As(err, &rl) || errors.As(err, &se)
}

// backoffBase is the first retry delay; it doubles on each attempt.
var backoffBase = time.Second

func retryWithBackoff(ctx context.Context, maxRetries int, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt < maxRetries {
			backoff := backoffBase << uint(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}

// checkStatus maps an HTTP status to the typed errors used by the retry loop.
func checkStatus(status int, body []byte) error {
	switch {
	case status == 429:
		return &rateLimitError{}
	case status == 401 || status == 403:
		return &authError{message: string(body)}
	case status >= 500:
		return &serverError{statusCode: status, body: string(body)}
	case status != 200:
		return fmt.Errorf("API error (status %d): %s", status, string(body))
	}
	return nil
}
