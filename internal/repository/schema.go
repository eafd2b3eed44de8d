package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs a statement. *pgxpool.Pool, *pgx.Conn and pgx.Tx satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS phases (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		status BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id UUID PRIMARY KEY,
		room_number TEXT NOT NULL,
		phase_id UUID NOT NULL REFERENCES phases(id),
		status BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS stages (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		code TEXT NOT NULL DEFAULT '',
		min_days INT NOT NULL CHECK (min_days >= 1),
		max_days INT NOT NULL,
		position INT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (max_days >= min_days)
	)`,
	`CREATE TABLE IF NOT EXISTS production_requests (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		phase_id UUID NOT NULL REFERENCES phases(id),
		room_id UUID NOT NULL REFERENCES rooms(id),
		stage_id UUID NOT NULL REFERENCES stages(id),
		flow TEXT NOT NULL,
		start_date DATE NOT NULL,
		special_case BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS production_results (
		id UUID PRIMARY KEY,
		request_id UUID NOT NULL REFERENCES production_requests(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		phase_id UUID NOT NULL REFERENCES phases(id),
		room_id UUID NOT NULL REFERENCES rooms(id),
		stage_id UUID NOT NULL REFERENCES stages(id),
		flow TEXT NOT NULL,
		current_flow TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		date DATE NOT NULL,
		special_case BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS production_results_request_date_idx ON production_results (request_id, date)`,
	`CREATE INDEX IF NOT EXISTS production_results_request_flow_idx ON production_results (request_id, current_flow)`,
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db Execer) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
