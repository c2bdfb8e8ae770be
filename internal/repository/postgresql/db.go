package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smart_parking_lot/internal/config"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

func NewDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            SERIAL PRIMARY KEY,
		username      TEXT NOT NULL CONSTRAINT users_username_key UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS parking_lots (
		id             SERIAL PRIMARY KEY,
		name           TEXT NOT NULL CONSTRAINT parking_lots_name_key UNIQUE,
		config         JSONB NOT NULL,
		total_sessions BIGINT NOT NULL DEFAULT 0,
		total_revenue  NUMERIC(14,2) NOT NULL DEFAULT 0,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS parking_slots (
		lot_id        INT NOT NULL REFERENCES parking_lots(id) ON DELETE CASCADE,
		slot_number   INT NOT NULL,
		slot_type     TEXT NOT NULL,
		occupied      BOOLEAN NOT NULL DEFAULT FALSE,
		license_plate TEXT,
		vehicle       JSONB,
		entry_time    TIMESTAMPTZ,
		ticket_id     TEXT,
		PRIMARY KEY (lot_id, slot_number)
	)`,
	`CREATE TABLE IF NOT EXISTS parking_sessions (
		ticket_id        TEXT PRIMARY KEY,
		lot_id           INT NOT NULL REFERENCES parking_lots(id) ON DELETE CASCADE,
		slot_number      INT NOT NULL,
		slot_type        TEXT NOT NULL,
		license_plate    TEXT NOT NULL,
		vehicle_type     TEXT NOT NULL,
		entry_time       TIMESTAMPTZ NOT NULL,
		exit_time        TIMESTAMPTZ,
		duration_minutes BIGINT,
		billed_hours     INT,
		fee              NUMERIC(12,2),
		status           TEXT NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS parking_sessions_lot_entry_idx ON parking_sessions (lot_id, entry_time DESC)`,
}

// EnsureSchema creates the tables the repositories rely on.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("EnsureSchema: %w", err)
		}
	}
	return nil
}

const uniqueViolation = "23505"

// isUniqueViolation understands both the pgx driver error and lib/pq's.
func isUniqueViolation(err error) (constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return pqErr.Constraint, true
	}
	return "", false
}
