// Package store persists cluster metadata in SQLite so managers and brokers can rebuild their
// in-memory state after a restart. Messages and consumer offsets are not stored.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mohitkumar/mqueue/errs"
)

// InMemory is the path that opens a private, process-local database.
const InMemory = ":memory:"

type DB struct {
	db *sql.DB
}

// Open opens or creates the database at path and makes sure every table exists.
func Open(path string) (*DB, error) {
	dsn := InMemory
	if path != "" && path != InMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errs.ErrOpenStore(err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errs.ErrOpenStore(err)
	}
	// single writer; also keeps an in-memory database alive on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &DB{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, errs.ErrInitSchema(err)
	}
	return s, nil
}

func (s *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS topics (
		name TEXT PRIMARY KEY,
		partitions INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS partitions (
		topic_name TEXT NOT NULL,
		ind INTEGER NOT NULL,
		broker_host TEXT NOT NULL,
		PRIMARY KEY (topic_name, ind),
		FOREIGN KEY (topic_name) REFERENCES topics(name) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS producers (
		id TEXT PRIMARY KEY,
		topic_name TEXT NOT NULL,
		FOREIGN KEY (topic_name) REFERENCES topics(name) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS consumers (
		id TEXT PRIMARY KEY,
		topic_name TEXT NOT NULL,
		FOREIGN KEY (topic_name) REFERENCES topics(name) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS brokers (
		name TEXT PRIMARY KEY,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS hosted_partitions (
		topic_name TEXT NOT NULL,
		partition_index INTEGER NOT NULL,
		PRIMARY KEY (topic_name, partition_index)
	);

	CREATE TABLE IF NOT EXISTS partition_producers (
		id TEXT NOT NULL,
		topic_name TEXT NOT NULL,
		partition_index INTEGER NOT NULL,
		PRIMARY KEY (id, topic_name, partition_index)
	);

	CREATE TABLE IF NOT EXISTS partition_consumers (
		id TEXT NOT NULL,
		topic_name TEXT NOT NULL,
		partition_index INTEGER NOT NULL,
		PRIMARY KEY (id, topic_name, partition_index)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *DB) Close() error {
	return s.db.Close()
}

func (s *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
