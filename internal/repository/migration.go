package repository

import (
	"context"
	"fmt"
)

// InitSchema creates the poll tables and seeds the sequence counter row.
// Statements are idempotent so the migration can run at every startup.
func InitSchema(ctx context.Context, db DBTX) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS poll_sequence (
			id   INT PRIMARY KEY,
			seq  BIGINT NOT NULL DEFAULT 0
		);`,

		`INSERT INTO poll_sequence (id, seq) VALUES (1, 0)
		 ON CONFLICT (id) DO NOTHING;`,

		`CREATE TABLE IF NOT EXISTS polls (
			id          UUID PRIMARY KEY,
			question    TEXT NOT NULL,
			creator_id  UUID NOT NULL,
			likes_count INT NOT NULL DEFAULT 0 CHECK (likes_count >= 0),
			created_at  TIMESTAMPTZ NOT NULL,
			expires_at  TIMESTAMPTZ NOT NULL,
			server_seq  BIGINT NOT NULL UNIQUE
		);`,

		`CREATE INDEX IF NOT EXISTS idx_polls_created_at ON polls (created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_polls_creator ON polls (creator_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_polls_expires_at ON polls (expires_at);`,

		`CREATE TABLE IF NOT EXISTS poll_options (
			poll_id  UUID NOT NULL REFERENCES polls (id) ON DELETE CASCADE,
			position INT NOT NULL,
			text     TEXT NOT NULL,
			votes    INT NOT NULL DEFAULT 0 CHECK (votes >= 0),
			PRIMARY KEY (poll_id, position)
		);`,

		`CREATE TABLE IF NOT EXISTS ballots (
			poll_id      UUID NOT NULL REFERENCES polls (id) ON DELETE CASCADE,
			voter_id     UUID NOT NULL,
			option_index INT NOT NULL,
			voted_at     TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (poll_id, voter_id)
		);`,

		`CREATE INDEX IF NOT EXISTS idx_ballots_voter ON ballots (voter_id);`,

		`CREATE TABLE IF NOT EXISTS saved_polls (
			user_id  UUID NOT NULL,
			poll_id  UUID NOT NULL REFERENCES polls (id) ON DELETE CASCADE,
			saved_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, poll_id)
		);`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration statement: %w", err)
		}
	}
	return nil
}

// DropSchema removes all poll tables. Used by the migrate CLI reset command.
func DropSchema(ctx context.Context, db DBTX) error {
	statements := []string{
		`DROP TABLE IF EXISTS saved_polls;`,
		`DROP TABLE IF EXISTS ballots;`,
		`DROP TABLE IF EXISTS poll_options;`,
		`DROP TABLE IF EXISTS polls;`,
		`DROP TABLE IF EXISTS poll_sequence;`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	return nil
}
