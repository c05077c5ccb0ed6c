package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
)

// SQLSTATE codes inspected by the store error classifier
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateCheckViolation       = "23514"
	sqlStateUniqueViolation      = "23505"
)

// RetryPolicy bounds the work done by one logical store operation
type RetryPolicy struct {
	MaxRetries int           // extra attempts after the first
	Backoff    time.Duration // multiplied by the attempt number
	Timeout    time.Duration // per-attempt deadline, zero disables
}

// DefaultRetryPolicy matches the service defaults
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Backoff: 20 * time.Millisecond, Timeout: 5 * time.Second}
}

// isRetryable reports whether err is a transient transaction conflict
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
	}
	return false
}

// hasSQLState reports whether err carries the given SQLSTATE
func hasSQLState(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// classifyStoreError maps infrastructure failures onto the service taxonomy.
// Already classified errors pass through unchanged.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if hasSQLState(err, sqlStateCheckViolation) {
		// balance >= 0 is enforced by the schema as well
		return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	}
	return err
}

// withRetry runs fn under the policy, retrying serialization failures and
// deadlocks. Exhausted retries surface ErrConflict.
func withRetry(ctx context.Context, policy RetryPolicy, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		err = runAttempt(ctx, policy.Timeout, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return classifyStoreError(err)
		}

		log.WithFields(log.Fields{
			"operation": op,
			"attempt":   attempt + 1,
			"error":     err,
		}).Warn("Transaction conflict, retrying")

		if attempt == policy.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return classifyStoreError(ctx.Err())
		case <-time.After(policy.Backoff * time.Duration(attempt+1)):
		}
	}

	return fmt.Errorf("%s: %w (last error: %v)", op, ErrConflict, err)
}

func runAttempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}
