package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/YelzhanWeb/campuseats/internal/config"
)

// DB и Tx скрывают pgx от репозиториев
type DB interface {
	querier
	Begin(ctx context.Context) (Tx, error)
	Close()
}

type Tx interface {
	querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// querier is what DB and Tx have in common, so reads can run inside or
// outside a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

type Row interface {
	Scan(dest ...any) error
}

type CommandTag interface {
	RowsAffected() int64
}

// pgxConn is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type pgxQuerier struct {
	conn pgxConn
}

func (q pgxQuerier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return q.conn.Query(ctx, sql, args...)
}

func (q pgxQuerier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return q.conn.QueryRow(ctx, sql, args...)
}

func (q pgxQuerier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return q.conn.Exec(ctx, sql, args...)
}

type pgxDB struct {
	pgxQuerier
	pool *pgxpool.Pool
}

type pgxTx struct {
	pgxQuerier
	tx pgx.Tx
}

func Connect(ctx context.Context, cfg config.DatabaseConfig) (DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	return open(ctx, poolCfg)
}

// ConnectDSN opens a pool with default settings from a ready connection string.
func ConnectDSN(ctx context.Context, dsn string) (DB, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	return open(ctx, poolCfg)
}

func open(ctx context.Context, poolCfg *pgxpool.Config) (DB, error) {
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &pgxDB{pgxQuerier: pgxQuerier{conn: pool}, pool: pool}, nil
}

func (db *pgxDB) Begin(ctx context.Context) (Tx, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{pgxQuerier: pgxQuerier{conn: tx}, tx: tx}, nil
}

func (db *pgxDB) Close() {
	db.pool.Close()
}

func (t *pgxTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgxTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// inTx runs fn in a transaction and commits when it returns nil. Begin and
// commit failures come back as persistence errors for op; errors from fn are
// returned unchanged.
func inTx(ctx context.Context, db DB, op string, fn func(tx Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return persistence(op, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return persistence(op, fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}
