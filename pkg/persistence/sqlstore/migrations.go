package sqlstore

import "github.com/dukex/phasetrack/pkg/persistence/sqlbase"

func migrations(dialect sqlbase.Dialect) map[int]string {
	if dialect.IsPostgres() {
		return postgresMigrations()
	}

	return sqliteMigrations()
}

func postgresMigrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE garment_references (
				id BIGSERIAL PRIMARY KEY,
				code VARCHAR(64) NOT NULL UNIQUE,
				collection VARCHAR(64) NOT NULL,
				product_line VARCHAR(64) NOT NULL,
				current_phase VARCHAR(64),
				completed_at TIMESTAMP WITH TIME ZONE,
				archived_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_garment_references_current_phase ON garment_references(current_phase);

			CREATE TABLE traceability_records (
				id BIGSERIAL PRIMARY KEY,
				reference_id BIGINT NOT NULL REFERENCES garment_references(id),
				phase_slug VARCHAR(64) NOT NULL,
				responsible_user VARCHAR(255) NOT NULL DEFAULT '',
				received_at TIMESTAMP WITH TIME ZONE NOT NULL,
				delivered_at TIMESTAMP WITH TIME ZONE,
				status VARCHAR(32) NOT NULL CHECK (status IN ('in_progress', 'completed', 'returned')),
				notes TEXT NOT NULL DEFAULT '',
				actual_hours DOUBLE PRECISION,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_traceability_records_reference_id ON traceability_records(reference_id);

			-- at most one open record per reference and phase
			CREATE UNIQUE INDEX idx_traceability_records_open
				ON traceability_records(reference_id, phase_slug) WHERE delivered_at IS NULL;

			CREATE TABLE action_events (
				id BIGSERIAL PRIMARY KEY,
				record_id BIGINT NOT NULL REFERENCES traceability_records(id),
				type VARCHAR(16) NOT NULL CHECK (type IN ('deliver', 'return')),
				at TIMESTAMP WITH TIME ZONE NOT NULL,
				acting_user VARCHAR(255) NOT NULL,
				notes TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX idx_action_events_record_id ON action_events(record_id);
		`,
		2: `
			CREATE TABLE users (
				id BIGSERIAL PRIMARY KEY,
				code VARCHAR(64) NOT NULL UNIQUE,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL DEFAULT '',
				area VARCHAR(64) NOT NULL DEFAULT '',
				role VARCHAR(64) NOT NULL DEFAULT '',
				status VARCHAR(16) NOT NULL CHECK (status IN ('active', 'inactive')),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_users_area ON users(area);
		`,
	}
}

func sqliteMigrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE garment_references (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				code TEXT NOT NULL UNIQUE,
				collection TEXT NOT NULL,
				product_line TEXT NOT NULL,
				current_phase TEXT,
				completed_at TIMESTAMP,
				archived_at TIMESTAMP,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			);

			CREATE INDEX idx_garment_references_current_phase ON garment_references(current_phase);

			CREATE TABLE traceability_records (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				reference_id INTEGER NOT NULL REFERENCES garment_references(id),
				phase_slug TEXT NOT NULL,
				responsible_user TEXT NOT NULL DEFAULT '',
				received_at TIMESTAMP NOT NULL,
				delivered_at TIMESTAMP,
				status TEXT NOT NULL CHECK (status IN ('in_progress', 'completed', 'returned')),
				notes TEXT NOT NULL DEFAULT '',
				actual_hours REAL,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			);

			CREATE INDEX idx_traceability_records_reference_id ON traceability_records(reference_id);

			CREATE UNIQUE INDEX idx_traceability_records_open
				ON traceability_records(reference_id, phase_slug) WHERE delivered_at IS NULL;

			CREATE TABLE action_events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				record_id INTEGER NOT NULL REFERENCES traceability_records(id),
				type TEXT NOT NULL CHECK (type IN ('deliver', 'return')),
				at TIMESTAMP NOT NULL,
				acting_user TEXT NOT NULL,
				notes TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX idx_action_events_record_id ON action_events(record_id);
		`,
		2: `
			CREATE TABLE users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				code TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL,
				email TEXT NOT NULL DEFAULT '',
				area TEXT NOT NULL DEFAULT '',
				role TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL CHECK (status IN ('active', 'inactive')),
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			);

			CREATE INDEX idx_users_area ON users(area);
		`,
	}
}
