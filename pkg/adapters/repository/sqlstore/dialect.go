package sqlstore

import (
	"strings"

	"github.com/Masterminds/squirrel"
)

type dialect struct {
	name        string
	driver      string
	placeholder squirrel.PlaceholderFormat
	schema      string
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS domains (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		authority TEXT NOT NULL UNIQUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		short_code TEXT NOT NULL,
		original_url TEXT NOT NULL,
		domain_id INTEGER REFERENCES domains(id),
		title TEXT,
		title_was_auto_resolved BOOLEAN NOT NULL DEFAULT 0,
		valid_since DATETIME,
		valid_until DATETIME,
		max_visits INTEGER,
		created_at DATETIME NOT NULL,
		deleted_at DATETIME
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_links_domain_short_code
		ON links(COALESCE(domain_id, 0), short_code) WHERE deleted_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_links_original_url ON links(original_url);

	CREATE TABLE IF NOT EXISTS link_tags (
		link_id INTEGER NOT NULL REFERENCES links(id) ON DELETE CASCADE,
		tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (link_id, tag_id)
	);
	CREATE INDEX IF NOT EXISTS idx_link_tags_tag_id ON link_tags(tag_id);
	`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS domains (
		id BIGSERIAL PRIMARY KEY,
		authority TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS tags (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS links (
		id BIGSERIAL PRIMARY KEY,
		short_code TEXT NOT NULL,
		original_url TEXT NOT NULL,
		domain_id BIGINT REFERENCES domains(id),
		title TEXT,
		title_was_auto_resolved BOOLEAN NOT NULL DEFAULT FALSE,
		valid_since TIMESTAMPTZ,
		valid_until TIMESTAMPTZ,
		max_visits INTEGER,
		created_at TIMESTAMPTZ NOT NULL,
		deleted_at TIMESTAMPTZ
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_links_domain_short_code
		ON links(COALESCE(domain_id, 0), short_code) WHERE deleted_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_links_original_url ON links(original_url);

	CREATE TABLE IF NOT EXISTS link_tags (
		link_id BIGINT NOT NULL REFERENCES links(id) ON DELETE CASCADE,
		tag_id BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (link_id, tag_id)
	);
	CREATE INDEX IF NOT EXISTS idx_link_tags_tag_id ON link_tags(tag_id);
	`

var (
	sqliteDialect = dialect{
		name:        "sqlite",
		driver:      "sqlite",
		placeholder: squirrel.Question,
		schema:      sqliteSchema,
	}
	libsqlDialect = dialect{
		name:        "libsql",
		driver:      "libsql",
		placeholder: squirrel.Question,
		schema:      sqliteSchema,
	}
	postgresDialect = dialect{
		name:        "postgres",
		driver:      "pgx",
		placeholder: squirrel.Dollar,
		schema:      postgresSchema,
	}
)

// dialectFor picks the driver from the database URL.
func dialectFor(dbURL string) dialect {
	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return postgresDialect
	case strings.Contains(dbURL, "libsql://"), strings.Contains(dbURL, "wss://"):
		return libsqlDialect
	default:
		return sqliteDialect
	}
}

// sqliteDSN enables foreign keys and a busy timeout on every pooled connection.
func sqliteDSN(dbURL string) string {
	sep := "?"
	if strings.Contains(dbURL, "?") {
		sep = "&"
	}
	return dbURL + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
