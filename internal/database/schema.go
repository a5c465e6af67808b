package database

import "context"

// Migrate creates the schema if it does not exist yet. Statements are
// idempotent so restarts are safe.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,

	`CREATE TABLE IF NOT EXISTS therapists (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		surname TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		verification_code INTEGER,
		code_expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS series (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		recurrence TEXT NOT NULL,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS templates (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		therapist_id UUID NOT NULL REFERENCES therapists(id),
		duration_minutes INTEGER NOT NULL,
		vacancies INTEGER NOT NULL,
		start_times TEXT[] NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		date TIMESTAMPTZ NOT NULL,
		therapist_id UUID NOT NULL REFERENCES therapists(id),
		user_id UUID REFERENCES users(id),
		duration_minutes INTEGER NOT NULL,
		vacancies INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'available',
		confirmation_token TEXT,
		cancelation_token TEXT,
		series_id UUID REFERENCES series(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions (date)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_date ON sessions (user_id, date)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_series ON sessions (series_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions (status)`,
}
