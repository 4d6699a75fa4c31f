// ABOUTME: Database schema definitions for the local contact store
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT,
	phone TEXT,
	street TEXT,
	street2 TEXT,
	city TEXT,
	zip TEXT,
	state TEXT,
	country_code TEXT,
	website TEXT,
	function TEXT,
	lang TEXT,
	comment TEXT,
	is_company INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(LOWER(email));
CREATE INDEX IF NOT EXISTS idx_contacts_name ON contacts(name);

CREATE TABLE IF NOT EXISTS categories (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE COLLATE NOCASE,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS contact_categories (
	contact_id TEXT NOT NULL,
	category_id TEXT NOT NULL,
	PRIMARY KEY (contact_id, category_id),
	FOREIGN KEY (contact_id) REFERENCES contacts(id) ON DELETE CASCADE,
	FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_contact_categories_category ON contact_categories(category_id);

CREATE TABLE IF NOT EXISTS timeline_notes (
	id TEXT PRIMARY KEY,
	contact_id TEXT NOT NULL,
	subject TEXT,
	body TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (contact_id) REFERENCES contacts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_timeline_notes_contact ON timeline_notes(contact_id, created_at);

CREATE TABLE IF NOT EXISTS import_log (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	source_key TEXT NOT NULL,
	contact_id TEXT,
	contact_email TEXT,
	contact_name TEXT,
	outcome TEXT NOT NULL CHECK(outcome IN ('created', 'updated', 'unchanged', 'rejected', 'skipped')),
	confidence TEXT,
	unmatched TEXT,
	error_message TEXT,
	created_at DATETIME NOT NULL,
	notified_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_import_log_created ON import_log(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_import_log_source_key ON import_log(source, source_key);

CREATE TABLE IF NOT EXISTS mailbox_state (
	mailbox TEXT PRIMARY KEY,
	status TEXT NOT NULL CHECK(status IN ('idle', 'polling', 'error')),
	last_poll DATETIME,
	last_message_id TEXT,
	error_message TEXT,
	fetched INTEGER NOT NULL DEFAULT 0,
	processed INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
