// Package device reads books and annotations out of a Kobo e-reader's
// sqlite library, including libraries synced through KOReader.
package device

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shelfsync/shelfsync/internal/errors"
)

// Store wraps the device's sqlite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the device database read-only. A missing file is a setup
// error: it usually means the device is not mounted.
func Open(path string, logger *slog.Logger) (*Store, error) {
	return open(path, "ro", logger)
}

// OpenWritable opens the device database for writing. Only the transfer
// tool needs this.
func OpenWritable(path string, logger *slog.Logger) (*Store, error) {
	return open(path, "rw", logger)
}

func open(path, mode string, logger *slog.Logger) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, errors.CodeSetup, "device database not found at %s", path)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode="+mode+"&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSetup, "open device database")
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.CodeSetup, "ping device database")
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Device timestamp layouts seen in the wild. Kobo firmware writes the
// first two; KOReader-sourced rows sometimes carry fractional seconds.
var timeLayouts = []string{
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	time.RFC3339,
}

func parseDeviceTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return &t
		}
	}
	return nil
}
