package postgresadapter

import (
	"context"

	"gorm.io/gorm"
)

const (
	voteBallotConstraint = "election_votes_unique_ballot"
	oneActiveConstraint  = "election_positions_one_active"
	winnerPrimaryKey     = "election_winners_pkey"
)

// schemaStatements is applied in order by EnsureSchema. Every statement is
// idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS election_position_templates (
		position_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		order_index INTEGER NOT NULL CHECK (order_index >= 0),
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS election_members (
		member_id TEXT PRIMARY KEY,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		can_vote BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS elections (
		election_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		closed_at TIMESTAMPTZ,
		finalized_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS election_positions (
		election_position_id TEXT PRIMARY KEY,
		election_id TEXT NOT NULL REFERENCES elections (election_id),
		position_id TEXT NOT NULL,
		position_name TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending', 'active', 'completed')),
		current_scrutiny INTEGER NOT NULL CHECK (current_scrutiny BETWEEN 0 AND 3),
		order_index INTEGER NOT NULL,
		opened_at TIMESTAMPTZ,
		closed_at TIMESTAMPTZ,
		completion_reason TEXT NOT NULL DEFAULT '',
		CONSTRAINT election_positions_unique_pair UNIQUE (election_id, position_id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS election_positions_one_active
		ON election_positions (election_id) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS election_candidates (
		candidate_id TEXT PRIMARY KEY,
		election_id TEXT NOT NULL REFERENCES elections (election_id),
		position_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		member_id TEXT NOT NULL DEFAULT '',
		list_index INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS election_candidates_by_position
		ON election_candidates (election_id, position_id)`,
	`CREATE TABLE IF NOT EXISTS election_votes (
		vote_id TEXT PRIMARY KEY,
		voter_id TEXT NOT NULL,
		election_id TEXT NOT NULL REFERENCES elections (election_id),
		position_id TEXT NOT NULL,
		candidate_id TEXT NOT NULL,
		scrutiny_round INTEGER NOT NULL CHECK (scrutiny_round BETWEEN 1 AND 3),
		cast_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS election_votes_unique_ballot
		ON election_votes (voter_id, election_id, position_id, scrutiny_round)`,
	`CREATE INDEX IF NOT EXISTS election_votes_by_round
		ON election_votes (election_id, position_id, scrutiny_round)`,
	`CREATE TABLE IF NOT EXISTS election_attendance (
		election_id TEXT NOT NULL REFERENCES elections (election_id),
		member_id TEXT NOT NULL,
		election_position_id TEXT NOT NULL DEFAULT '',
		is_present BOOLEAN NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (election_id, member_id, election_position_id)
	)`,
	`CREATE TABLE IF NOT EXISTS election_winners (
		election_id TEXT NOT NULL REFERENCES elections (election_id),
		position_id TEXT NOT NULL,
		candidate_id TEXT NOT NULL,
		won_at_scrutiny INTEGER NOT NULL CHECK (won_at_scrutiny BETWEEN 1 AND 3),
		recorded_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT election_winners_pkey PRIMARY KEY (election_id, position_id)
	)`,
	`CREATE TABLE IF NOT EXISTS election_outbox (
		outbox_id TEXT PRIMARY KEY,
		seq BIGSERIAL,
		event_type TEXT NOT NULL,
		partition_key TEXT NOT NULL,
		payload BYTEA NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		published_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS election_outbox_pending
		ON election_outbox (created_at, seq) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS election_event_dedup (
		event_id TEXT PRIMARY KEY,
		payload_hash TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		processed_at TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates the election tables and indexes when missing.
func EnsureSchema(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, statement := range schemaStatements {
			if err := tx.Exec(statement).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
