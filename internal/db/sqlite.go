// Package db opens the SQLite response cache and applies its schema migrations.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// Mode selects the pool layout of an opened database.
type Mode string

// Pool modes. A write pool serializes writers on a single connection; a read
// pool allows concurrent readers next to it under WAL.
const (
	ModeWrite Mode = "write"
	ModeRead  Mode = "read"
)

const (
	busyTimeoutMillis  = "5000"
	synchronousSetting = "NORMAL"
	journalModeSetting = "WAL"
	defaultReadConns   = 4
	pingTimeout        = 5 * time.Second
)

// OpenSQLite opens a *sql.DB for the SQLite file at path.
// maxOpen only applies to read pools (0 means 4).
func OpenSQLite(path string, mode Mode, maxOpen int) (*sql.DB, error) {
	if mode != ModeRead && mode != ModeWrite {
		return nil, fmt.Errorf("invalid SQLite mode %q: must be %q or %q", mode, ModeRead, ModeWrite)
	}

	db, err := sql.Open("sqlite3", buildDSN(path, mode))
	if err != nil {
		return nil, fmt.Errorf("open sqlite (%s): %w", mode, err)
	}

	if mode == ModeWrite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if maxOpen <= 0 {
			maxOpen = defaultReadConns
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
	}
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite (%s): %w", mode, err)
	}
	return db, nil
}

// OpenSQLitePair opens a write pool and a read pool on the same file.
func OpenSQLitePair(path string, readMaxOpen int) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = OpenSQLite(path, ModeWrite, 0)
	if err != nil {
		return nil, nil, err
	}
	readDB, err = OpenSQLite(path, ModeRead, readMaxOpen)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}
	return writeDB, readDB, nil
}

// buildDSN appends the go-sqlite3 connection parameters to path.
func buildDSN(path string, mode Mode) string {
	params := url.Values{}
	params.Set("_journal_mode", journalModeSetting)
	params.Set("_busy_timeout", busyTimeoutMillis)
	params.Set("_synchronous", synchronousSetting)
	if mode == ModeWrite {
		params.Set("_txlock", "immediate")
	}
	return path + "?" + params.Encode()
}
