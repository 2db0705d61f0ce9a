package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is applied at startup and by the integration test manager. The two
// constraints the reconciliation contracts lean on are enforced here, not in
// application code: the processed_events primary key (event dedup) and the
// partial unique index on live alliance pairs.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id                 UUID PRIMARY KEY,
	role               TEXT NOT NULL,
	display_name       TEXT NOT NULL DEFAULT '',
	email              TEXT NOT NULL DEFAULT '',
	reputation_score   INT  NOT NULL DEFAULT 50,
	verification_level INT  NOT NULL DEFAULT 0,
	ladder_completed_at TIMESTAMPTZ,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS processed_events (
	external_id  TEXT PRIMARY KEY,
	event_type   TEXT NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ix_processed_events_processed_at
	ON processed_events (processed_at);

CREATE TABLE IF NOT EXISTS reputation_entries (
	id          UUID PRIMARY KEY,
	account_id  UUID NOT NULL REFERENCES accounts (id),
	score_delta INT  NOT NULL,
	reason_code TEXT NOT NULL,
	category    TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ix_reputation_entries_account
	ON reputation_entries (account_id, created_at);

CREATE TABLE IF NOT EXISTS alliances (
	id           UUID PRIMARY KEY,
	requester_id UUID NOT NULL REFERENCES accounts (id),
	receiver_id  UUID NOT NULL REFERENCES accounts (id),
	pair_key     TEXT NOT NULL,
	status       TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_alliances_pair_live
	ON alliances (pair_key) WHERE status <> 'rejected';

CREATE TABLE IF NOT EXISTS verification_entries (
	id           UUID PRIMARY KEY,
	account_id   UUID NOT NULL REFERENCES accounts (id),
	role         TEXT NOT NULL,
	type         TEXT NOT NULL,
	level        INT  NOT NULL,
	status       TEXT NOT NULL,
	evidence     TEXT[] NOT NULL DEFAULT '{}',
	score_impact INT  NOT NULL DEFAULT 0,
	reviewer_id  UUID,
	submitted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	reviewed_at  TIMESTAMPTZ,
	UNIQUE (account_id, type)
);

CREATE TABLE IF NOT EXISTS subscriptions (
	account_id                UUID PRIMARY KEY REFERENCES accounts (id),
	plan_tier                 TEXT NOT NULL,
	status                    TEXT NOT NULL,
	external_customer_ref     TEXT NOT NULL DEFAULT '',
	external_subscription_ref TEXT NOT NULL DEFAULT '',
	current_period_start      TIMESTAMPTZ,
	current_period_end        TIMESTAMPTZ,
	cancel_at_period_end      BOOLEAN NOT NULL DEFAULT false,
	features                  TEXT[] NOT NULL DEFAULT '{}',
	updated_at                TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_subscriptions_customer_ref
	ON subscriptions (external_customer_ref) WHERE external_customer_ref <> '';

CREATE TABLE IF NOT EXISTS payments (
	external_payment_ref TEXT PRIMARY KEY,
	type          TEXT NOT NULL,
	amount        BIGINT NOT NULL,
	currency      TEXT NOT NULL,
	status        TEXT NOT NULL,
	from_account  UUID NOT NULL,
	to_account    UUID,
	linked_entity UUID,
	platform_fee  BIGINT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS milestones (
	id            UUID PRIMARY KEY,
	title         TEXT NOT NULL DEFAULT '',
	escrow_status TEXT NOT NULL DEFAULT 'unfunded',
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audit_events (
	id          BIGSERIAL PRIMARY KEY,
	category    TEXT NOT NULL,
	action      TEXT NOT NULL,
	account_id  TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL DEFAULT '',
	detail      TEXT NOT NULL DEFAULT '',
	request_id  TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Bootstrap applies the schema. Statements are idempotent so repeated startup
// against an existing database is safe.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}
	return nil
}
