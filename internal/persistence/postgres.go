package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/pharmacy-helpdesk/internal/config"
)

const connectTimeout = 5 * time.Second

// ErrNotConfigured is returned by health checks of a backend that was
// never configured.
var ErrNotConfigured = errors.New("backend not configured")

// Postgres owns the pgx pool backing the SQL repositories. A zero Postgres
// means the service runs on the in-memory store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres opens and verifies a pool. An empty DSN is not an error.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; using in-memory store")
		return &Postgres{}, nil
	}

	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("connected to postgres",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return &Postgres{pool: pool}, nil
}

// poolConfig parses the DSN and applies the configured pool bounds. Zero
// values keep the pgx defaults.
func poolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse POSTGRES_DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if poolCfg.MinConns > poolCfg.MaxConns {
		return nil, fmt.Errorf("POSTGRES_MIN_CONNS %d exceeds POSTGRES_MAX_CONNS %d", poolCfg.MinConns, poolCfg.MaxConns)
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = seconds(cfg.ConnMaxIdleSec)
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = seconds(cfg.ConnMaxLifeSec)
	}
	return poolCfg, nil
}

func seconds(n int32) time.Duration {
	return time.Duration(n) * time.Second
}

// Pool returns the pgx pool, nil when unconfigured.
func (p *Postgres) Pool() *pgxpool.Pool {
	if p == nil {
		return nil
	}
	return p.pool
}

// Configured reports whether a pool is present.
func (p *Postgres) Configured() bool {
	return p.Pool() != nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if !p.Configured() {
		return fmt.Errorf("postgres: %w", ErrNotConfigured)
	}
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() {
	if p.Configured() {
		p.pool.Close()
	}
}
