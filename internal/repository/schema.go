package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id               BIGSERIAL PRIMARY KEY,
		name             TEXT NOT NULL,
		email            TEXT NOT NULL UNIQUE,
		password_hash    TEXT NOT NULL,
		role             TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
		contact          TEXT NOT NULL DEFAULT '',
		reset_token      TEXT UNIQUE,
		reset_expires_at TIMESTAMPTZ,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS trips (
		id          BIGSERIAL PRIMARY KEY,
		route       TEXT NOT NULL,
		departure   TEXT NOT NULL,
		price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
		seats_total INTEGER NOT NULL CHECK (seats_total > 0),
		seats_left  INTEGER NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT trips_seats_left_range CHECK (seats_left >= 0 AND seats_left <= seats_total)
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id                BIGSERIAL PRIMARY KEY,
		reference         UUID NOT NULL UNIQUE,
		trip_id           BIGINT NOT NULL REFERENCES trips (id) ON DELETE RESTRICT,
		user_id           BIGINT REFERENCES users (id) ON DELETE SET NULL,
		passenger_name    TEXT NOT NULL,
		passenger_contact TEXT NOT NULL,
		seats_booked      INTEGER NOT NULL CHECK (seats_booked > 0),
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS bookings_trip_id_idx ON bookings (trip_id)`,
	`CREATE INDEX IF NOT EXISTS bookings_user_id_idx ON bookings (user_id, created_at DESC)`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return tx.Commit(ctx)
}
