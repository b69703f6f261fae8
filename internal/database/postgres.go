// Package database provides the PostgreSQL-backed telemetry and action log stores.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool and verifies it.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS telemetry (
		id           BIGSERIAL PRIMARY KEY,
		device       TEXT        NOT NULL,
		ts           BIGINT      NOT NULL,
		sensor_id    TEXT        NOT NULL,
		sensor_type  TEXT        NOT NULL,
		metrics      JSONB       NOT NULL,
		metric_keys  JSONB       NOT NULL,
		status       TEXT        NOT NULL DEFAULT '',
		parking_space TEXT       NOT NULL DEFAULT '',
		slot_id      TEXT        NOT NULL DEFAULT '',
		type         TEXT        NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_telemetry_device_ts ON telemetry (device, ts DESC)`,

	`CREATE TABLE IF NOT EXISTS plug_actions (
		id                 BIGSERIAL PRIMARY KEY,
		user_id            TEXT        NOT NULL,
		ts                 BIGINT      NOT NULL,
		device_group       TEXT        NOT NULL,
		action             TEXT        NOT NULL,
		actuator_device_id TEXT        NOT NULL,
		actuator_response  TEXT        NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_plug_actions_user_ts ON plug_actions (user_id, ts DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_plug_actions_group_ts ON plug_actions (device_group, ts DESC)`,
}

// RunMigrations applies the embedded schema. All statements are idempotent.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
