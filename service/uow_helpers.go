package service

import (
	"context"
	"fmt"
)

// runInUnitOfWork runs fn inside a fresh unit of work under the retry policy.
// The unit of work is committed only when commit is true and fn succeeds.
func runInUnitOfWork(ctx context.Context, factory UnitOfWorkFactory, policy RetryPolicy, op string, commit bool, fn func(ctx context.Context, uow UnitOfWork) error) error {
	return withRetry(ctx, policy, op, func(ctx context.Context) error {
		uow := factory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		if err := fn(ctx, uow); err != nil {
			return err
		}

		if !commit {
			return nil
		}
		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

func readOnly(ctx context.Context, factory UnitOfWorkFactory, policy RetryPolicy, op string, fn func(ctx context.Context, uow UnitOfWork) error) error {
	return runInUnitOfWork(ctx, factory, policy, op, false, fn)
}

func readWrite(ctx context.Context, factory UnitOfWorkFactory, policy RetryPolicy, op string, fn func(ctx context.Context, uow UnitOfWork) error) error {
	return runInUnitOfWork(ctx, factory, policy, op, true, fn)
}
