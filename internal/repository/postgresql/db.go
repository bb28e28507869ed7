package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS verdicts (
	id                  UUID PRIMARY KEY,
	request_id          TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL,
	source              TEXT NOT NULL,
	genuine             BOOLEAN NOT NULL,
	denomination        TEXT,
	score               DOUBLE PRECISION NOT NULL,
	good_matches        INTEGER NOT NULL,
	reason              TEXT NOT NULL,
	scoring_mode        TEXT NOT NULL,
	candidate_keypoints INTEGER NOT NULL,
	processing_time_ms  BIGINT NOT NULL
);
ALTER TABLE verdicts ADD COLUMN IF NOT EXISTS request_id TEXT NOT NULL DEFAULT '';
CREATE INDEX IF NOT EXISTS verdicts_created_at_idx ON verdicts (created_at DESC);
`

// NewDB opens and pings a PostgreSQL connection pool
func NewDB(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the verdict table when missing
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
