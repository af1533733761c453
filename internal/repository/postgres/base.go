package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/jobboard-messaging/internal/repository"
)

const uniqueViolation = "23505"

type txKey struct {
	db *sqlx.DB
}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db *sqlx.DB
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// WithinTx executes fn within a transaction. A transaction already open on
// the same database in ctx is joined instead of nesting.
func (r *BaseRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{r.db}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{r.db}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// conn returns the transaction carried by ctx, or the pool.
func (r *BaseRepository) conn(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{r.db}).(*sqlx.Tx); ok {
		return tx
	}
	return r.db
}

// asUser runs fn in a transaction whose row-level policies see userID as
// the current user.
func (r *BaseRepository) asUser(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context, q sqlx.ExtContext) error) error {
	return r.WithinTx(ctx, func(ctx context.Context) error {
		q := r.conn(ctx)
		if _, err := q.ExecContext(ctx, `SELECT set_config('app.current_user_id', $1, true)`, userID.String()); err != nil {
			return fmt.Errorf("failed to scope transaction to user: %w", err)
		}
		return fn(ctx, q)
	})
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// notFound translates sql.ErrNoRows into repository.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}
