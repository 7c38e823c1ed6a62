package pgutils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// WithTx runs fn inside a transaction.
// It commits if fn returns nil, otherwise it rolls back. A panic in fn rolls
// back and is re-raised. The error returned by fn is kept in the chain so
// callers can match it with errors.Is / errors.As.
func WithTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) (retErr error) {
	tx, err := db.BeginTx(ctx, nil) // read committed; rows are locked explicitly
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		p := recover()
		if p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	err = fn(tx)
	if err != nil {
		rbErr := tx.Rollback()
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}

		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// WithTimeout bounds ctx by d unless d is zero or ctx already has an
// earlier deadline.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}

	deadline, ok := ctx.Deadline()
	if ok && time.Until(deadline) < d {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, d)
}
