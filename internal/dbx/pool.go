package dbx

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// newPool is a seam for tests.
var newPool = pgxpool.NewWithConfig

// Postgres is a *sql.DB view over a pgx pool. Closing the *sql.DB alone
// leaves the pool open, so callers close through Postgres.
type Postgres struct {
	*sql.DB
	pool *pgxpool.Pool
}

// Close closes the database handle, then the pool.
func (p *Postgres) Close() error {
	err := p.DB.Close()
	if p.pool != nil {
		p.pool.Close()
	}
	return err
}

// OpenPostgres builds a pgx connection pool for dsn and exposes it as a
// *sql.DB so repositories stay on database/sql. maxConns <= 0 keeps the
// pgxpool default.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement

	pool, err := newPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	return &Postgres{DB: stdlib.OpenDBFromPool(pool), pool: pool}, nil
}
