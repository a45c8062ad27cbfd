////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package sqlite persists chat records and the thread read ledger in a SQLite
// database. It backs the command line tool, which runs outside the browser.
package sqlite

import (
	"database/sql"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	_ "modernc.org/sqlite"

	"gitlab.com/threadkeeper/threadkeeper-wasm/records"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS records (
	channel_id   TEXT PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	distinct_dm  INTEGER NOT NULL DEFAULT 0,
	member_count INTEGER NOT NULL DEFAULT 0,
	avatar_url   TEXT NOT NULL DEFAULT '',
	updated_at   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_records_name ON records(name COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS last_read (
	message_id TEXT PRIMARY KEY,
	read_at    INTEGER NOT NULL
);
`

// DB is a SQLite database implementing both [records.Store] and
// [records.Ledger].
type DB struct {
	db *sql.DB
}

// Open opens or creates the database at path and migrates its schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}

	// A private in-memory database only lives as long as its connection
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	} else if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to set WAL mode")
	}

	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to migrate schema")
	}

	jww.DEBUG.Printf("[SQL] Opened record database %s", path)
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Get returns the record for the channel or [records.ErrNotFound].
func (d *DB) Get(channelID string) (records.Record, error) {
	row := d.db.QueryRow(`SELECT channel_id, name, distinct_dm, member_count,
		avatar_url, updated_at FROM records WHERE channel_id = ?`, channelID)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return records.Record{}, records.ErrNotFound
	} else if err != nil {
		return records.Record{}, errors.Wrapf(err,
			"failed to get record for %s", channelID)
	}
	return r, nil
}

// GetAll returns every stored record ordered by channel ID.
func (d *DB) GetAll() ([]records.Record, error) {
	rows, err := d.db.Query(`SELECT channel_id, name, distinct_dm,
		member_count, avatar_url, updated_at FROM records ORDER BY channel_id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list records")
	}
	defer rows.Close()

	var all []records.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan record")
		}
		all = append(all, r)
	}
	return all, errors.Wrap(rows.Err(), "failed to list records")
}

// Upsert inserts or replaces the record.
func (d *DB) Upsert(r records.Record) error {
	if r.ChannelID == "" {
		return errors.New("cannot upsert record without channel ID")
	}

	_, err := d.db.Exec(`INSERT INTO records (channel_id, name, distinct_dm,
		member_count, avatar_url, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET name = excluded.name,
		distinct_dm = excluded.distinct_dm,
		member_count = excluded.member_count,
		avatar_url = excluded.avatar_url, updated_at = excluded.updated_at`,
		r.ChannelID, r.Name, r.Distinct, r.MemberCount, r.AvatarURL,
		r.UpdatedAt)
	return errors.Wrapf(err, "failed to upsert record %s", r.ChannelID)
}

// LastRead returns the last read time of the thread or 0.
func (d *DB) LastRead(messageID string) int64 {
	var ts int64
	err := d.db.QueryRow(
		`SELECT read_at FROM last_read WHERE message_id = ?`, messageID).
		Scan(&ts)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		jww.ERROR.Printf("[SQL] Failed to get last read time of %s: %+v",
			messageID, err)
	}
	return ts
}

// SetLastRead stores the last read time of the thread.
func (d *DB) SetLastRead(messageID string, ts int64) error {
	if messageID == "" {
		return errors.New("cannot mark thread without message ID as read")
	}
	_, err := d.db.Exec(`INSERT INTO last_read (message_id, read_at)
		VALUES (?, ?) ON CONFLICT(message_id) DO UPDATE SET
		read_at = excluded.read_at`, messageID, ts)
	return errors.Wrapf(err, "failed to mark thread %s as read", messageID)
}

// ReadTimes returns every thread read time keyed by message ID.
func (d *DB) ReadTimes() (map[string]int64, error) {
	rows, err := d.db.Query(`SELECT message_id, read_at FROM last_read`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list read times")
	}
	defer rows.Close()

	times := make(map[string]int64)
	for rows.Next() {
		var id string
		var ts int64
		if err = rows.Scan(&id, &ts); err != nil {
			return nil, errors.Wrap(err, "failed to scan read time")
		}
		times[id] = ts
	}
	return times, errors.Wrap(rows.Err(), "failed to list read times")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (records.Record, error) {
	var r records.Record
	err := s.Scan(&r.ChannelID, &r.Name, &r.Distinct, &r.MemberCount,
		&r.AvatarURL, &r.UpdatedAt)
	return r, err
}
