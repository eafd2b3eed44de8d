package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx pool for dsn and waits until the database answers a
// ping, retrying with exponential backoff for up to maxWait. A malformed
// dsn fails immediately. onRetry, if set, is called before each retry.
func Connect(ctx context.Context, dsn string, maxWait time.Duration, onRetry func(err error, next time.Duration)) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// BackOff implementations are stateful; build a fresh one per call.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxWait

	var pool *pgxpool.Pool
	op := func() error {
		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create connection pool: %w", err))
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return fmt.Errorf("failed to ping database: %w", err)
		}
		pool = p
		return nil
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), onRetry); err != nil {
		return nil, err
	}
	return pool, nil
}
