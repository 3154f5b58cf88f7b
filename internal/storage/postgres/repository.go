package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/counselcms/server/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements storage.Repository with a PostgreSQL backend.
type Repository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository creates a new PostgreSQL-backed repository
func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Repositories() storage.Repositories {
	base := conn{pool: r.pool, tx: r.tx}
	return storage.Repositories{
		Pages:      &PageRepository{conn: base},
		Showcase:   &ShowcaseRepository{conn: base},
		Careers:    &CareersRepository{conn: base},
		Blog:       &BlogRepository{conn: base},
		SiteConfig: &SiteConfigRepository{conn: base},
		Inquiries:  &InquiryRepository{conn: base},
		Users:      &UserRepository{conn: base},
		Patches:    &PatchLog{conn: base},
	}
}

// WithTx executes a function within a database transaction. Nested calls
// reuse the outer transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, storage.Repositories) error) error {
	if r.tx != nil {
		return fn(ctx, r.Repositories())
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txRepo := &Repository{pool: r.pool, tx: tx}
	if err := fn(ctx, txRepo.Repositories()); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback after error %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// conn is embedded by every repository; it routes queries through the
// transaction when one is bound.
type conn struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (c conn) queryer() queryer {
	if c.tx != nil {
		return c.tx
	}
	return c.pool
}

// inTx runs fn inside the bound transaction, or a new one.
func (c conn) inTx(ctx context.Context, fn func(q queryer) error) error {
	if c.tx != nil {
		return fn(c.tx)
	}
	return pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		return fn(tx)
	})
}

const uniqueViolation = "23505"

// isUniqueViolation reports whether err violates the named constraint, or
// any unique constraint when constraint is empty.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
