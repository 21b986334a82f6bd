// Package sqlite is the local record store used by the desktop build.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"calendai/ai-calendar/config"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pocketbase/dbx"
	"github.com/sirupsen/logrus"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT UNIQUE NOT NULL,
	password TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	start_time TEXT NOT NULL DEFAULT '',
	end_time TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (user_id) REFERENCES users (id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_events_unique
	ON events (user_id, title, start_date, start_time, end_date, end_time);
CREATE INDEX IF NOT EXISTS idx_events_start ON events (start_date, start_time);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id INTEGER NOT NULL,
	user_id INTEGER,
	sender TEXT NOT NULL CHECK (sender IN ('user', 'assistant', 'system')),
	message TEXT NOT NULL,
	metadata TEXT,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
	handled INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (user_id) REFERENCES users (id)
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, id);
`

// DB is a sqlite-backed store.Store.
type DB struct {
	db  *dbx.DB
	log logrus.FieldLogger
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := dbx.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite works best with a single writer connection
	db.DB().SetMaxOpenConns(1)

	store := &DB{db: db, log: config.Logger.WithField("store", "sqlite")}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	store.log.WithField("path", path).Info("Database initialised")
	return store, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	// Databases created before the handled flag existed lack the column.
	if err := d.addColumnIfMissing(ctx, "messages", "handled", "INTEGER NOT NULL DEFAULT 0"); err != nil {
		return err
	}
	if err := d.addColumnIfMissing(ctx, "events", "location", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}
	if _, err := d.db.NewQuery(schema).WithContext(ctx).Execute(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

type columnInfo struct {
	Cid        int            `db:"cid"`
	Name       string         `db:"name"`
	Type       string         `db:"type"`
	NotNull    int            `db:"notnull"`
	Default    sql.NullString `db:"dflt_value"`
	PrimaryKey int            `db:"pk"`
}

func (d *DB) addColumnIfMissing(ctx context.Context, table, column, definition string) error {
	var columns []columnInfo
	if err := d.db.NewQuery(fmt.Sprintf("PRAGMA table_info(%s)", table)).WithContext(ctx).All(&columns); err != nil {
		return fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	if len(columns) == 0 {
		// table does not exist yet, the schema creates it with the column
		return nil
	}
	for _, c := range columns {
		if c.Name == column {
			return nil
		}
	}

	d.log.WithFields(logrus.Fields{"table": table, "column": column}).Info("Adding missing column")
	q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
	if _, err := d.db.NewQuery(q).WithContext(ctx).Execute(); err != nil {
		return fmt.Errorf("failed to add %s.%s: %w", table, column, err)
	}
	return nil
}
