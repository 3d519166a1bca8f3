package store

import (
	"context"
	"fmt"
	"strings"
)

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS public_bodies (
	id {{pk}},
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS info_requests (
	id {{pk}},
	title TEXT NOT NULL,
	user_id BIGINT NOT NULL DEFAULT 0,
	public_body_id BIGINT REFERENCES public_bodies(id),
	law_used TEXT NOT NULL DEFAULT '',
	created_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS outgoing_messages (
	id {{pk}},
	info_request_id BIGINT NOT NULL REFERENCES info_requests(id) ON DELETE CASCADE,
	body TEXT NOT NULL,
	created_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS incoming_messages (
	id {{pk}},
	info_request_id BIGINT NOT NULL REFERENCES info_requests(id) ON DELETE CASCADE,
	refusals TEXT NOT NULL DEFAULT '[]',
	created_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS draft_info_requests (
	id {{pk}},
	title TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	user_id BIGINT NOT NULL DEFAULT 0,
	public_body_id BIGINT REFERENCES public_bodies(id)
);

CREATE TABLE IF NOT EXISTS info_request_batches (
	id {{pk}},
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	user_id BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS info_request_batch_public_bodies (
	info_request_batch_id BIGINT NOT NULL REFERENCES info_request_batches(id) ON DELETE CASCADE,
	public_body_id BIGINT NOT NULL REFERENCES public_bodies(id),
	position INTEGER NOT NULL,
	PRIMARY KEY (info_request_batch_id, public_body_id)
);

CREATE TABLE IF NOT EXISTS draft_info_request_batches (
	id {{pk}},
	title TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	user_id BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS draft_info_request_batch_public_bodies (
	draft_info_request_batch_id BIGINT NOT NULL REFERENCES draft_info_request_batches(id) ON DELETE CASCADE,
	public_body_id BIGINT NOT NULL REFERENCES public_bodies(id),
	position INTEGER NOT NULL,
	PRIMARY KEY (draft_info_request_batch_id, public_body_id)
);

CREATE TABLE IF NOT EXISTS request_summaries (
	id {{pk}},
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	public_body_names TEXT,
	summarisable_type TEXT NOT NULL,
	summarisable_id BIGINT NOT NULL,
	created_at {{ts}} NOT NULL,
	updated_at {{ts}} NOT NULL,
	UNIQUE (summarisable_type, summarisable_id)
);
`

// Schema returns the DDL for the dialect
func Schema(d Dialect) string {
	r := strings.NewReplacer(
		"{{pk}}", "BIGSERIAL PRIMARY KEY",
		"{{ts}}", "TIMESTAMPTZ",
	)
	if d == SQLite {
		r = strings.NewReplacer(
			"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
			"{{ts}}", "TIMESTAMP",
		)
	}
	return r.Replace(schemaTemplate)
}

// Migrate creates any missing tables
func Migrate(ctx context.Context, db *DB) error {
	for _, stmt := range strings.Split(Schema(db.Dialect), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
