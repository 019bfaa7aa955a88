//go:build integration

package data

import (
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// sqliteSchema mirrors migrations/001_initial_schema.up.sql in SQLite syntax.
const sqliteSchema = `
CREATE TABLE authors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);
CREATE TABLE seo_categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	is_active BOOLEAN NOT NULL DEFAULT 1,
	order_index INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL DEFAULT '',
	slug TEXT NOT NULL UNIQUE,
	content TEXT NOT NULL DEFAULT '',
	icon TEXT NOT NULL DEFAULT '',
	category_id INTEGER REFERENCES seo_categories(id) ON DELETE SET NULL,
	author_id INTEGER REFERENCES authors(id) ON DELETE SET NULL,
	status TEXT NOT NULL DEFAULT 'draft',
	meta_title TEXT NOT NULL DEFAULT '',
	meta_description TEXT NOT NULL DEFAULT '',
	focus_keyword TEXT NOT NULL DEFAULT '',
	read_time INTEGER NOT NULL DEFAULT 0,
	excerpt TEXT NOT NULL DEFAULT '',
	auto_saved_content TEXT,
	auto_saved_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	published_at DATETIME
);
CREATE TABLE article_summary_points (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	point_text TEXT NOT NULL,
	order_index INTEGER NOT NULL
);
CREATE TABLE content_versions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	author_id INTEGER,
	created_by TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);`

// newTestDB creates an isolated in-memory SQLite database with the schema
// applied.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Connect("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("Failed to connect to sqlite test database: %v", err)
	}
	// Every new connection would see a fresh in-memory database.
	db.SetMaxOpenConns(1)
	db.MustExec(sqliteSchema)

	t.Cleanup(func() { db.Close() })
	return db
}
