package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

// goqu dialect names
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

var ErrTxDone = errors.New("transaction already closed")

// Queryer is the part of a connection or transaction the repositories need.
type Queryer interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Conn is a pooled connection to one of the supported databases.
type Conn interface {
	Queryer
	Begin(ctx context.Context) (Tx, error)
	// Dialect is the goqu dialect matching the database.
	Dialect() string
	Close() error
}

type Tx interface {
	Queryer
	Commit(ctx context.Context) error
	// Rollback returns ErrTxDone when the transaction was already committed or rolled back.
	Rollback(ctx context.Context) error
}

// PgxConn adapts a pgx pool.
type PgxConn struct {
	pool *pgxpool.Pool
}

func NewPgxConn(pool *pgxpool.Pool) *PgxConn {
	return &PgxConn{pool: pool}
}

func (c *PgxConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := c.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (c *PgxConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

func (c *PgxConn) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{tx: tx}, nil
}

func (c *PgxConn) Dialect() string {
	return DialectPostgres
}

func (c *PgxConn) Close() error {
	c.pool.Close()
	return nil
}

type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgxTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

func (t *pgxTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgxTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return ErrTxDone
		}
		return err
	}
	return nil
}

type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool {
	return r.rows.Next()
}

func (r *pgxRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *pgxRows) Err() error {
	return r.rows.Err()
}

func (r *pgxRows) Close() error {
	r.rows.Close()
	return nil
}

// SqlxConn adapts a sqlx database, used for SQLite.
type SqlxConn struct {
	db      *sqlx.DB
	dialect string
}

func NewSqlxConn(db *sqlx.DB, dialect string) *SqlxConn {
	return &SqlxConn{db: db, dialect: dialect}
}

func (c *SqlxConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return execResult(c.db.ExecContext(ctx, query, args...))
}

func (c *SqlxConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *SqlxConn) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlxTx{tx: tx}, nil
}

func (c *SqlxConn) Dialect() string {
	return c.dialect
}

func (c *SqlxConn) Close() error {
	return c.db.Close()
}

type sqlxTx struct {
	tx *sqlx.Tx
}

func (t *sqlxTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return execResult(t.tx.ExecContext(ctx, query, args...))
}

func (t *sqlxTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := t.tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *sqlxTx) Commit(_ context.Context) error {
	return t.tx.Commit()
}

func (t *sqlxTx) Rollback(_ context.Context) error {
	if err := t.tx.Rollback(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return ErrTxDone
		}
		return err
	}
	return nil
}

func execResult(result sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
