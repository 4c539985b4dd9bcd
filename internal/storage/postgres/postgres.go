// Package postgres persists accounts, characters, respawn timers, and
// generated quests using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/dungeonmud/internal/config"
)

// connectTimeout bounds the initial reachability probe so a wrong DSN
// fails startup quickly instead of hanging in Run.
const connectTimeout = 5 * time.Second

// Pool wraps a pgx connection pool with health-check and lifecycle methods.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool opens a connection pool and verifies the database is reachable.
//
// Precondition: cfg must contain valid connection parameters.
// Postcondition: Returns a Pool that has answered at least one ping, or a
// non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Pool{pool: pool}, nil
}

// Health reports whether the database answers a ping within the timeout.
// The gameserver's lifecycle loop calls this periodically.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close releases all pool resources. The pool is unusable afterwards.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB exposes the underlying pgxpool.Pool for the repositories.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
