// Package backup snapshots a device database before destructive writes.
// A transfer rewrites Bookmark rows in place; keeping a timestamped copy
// of the target database makes a botched run recoverable.
package backup

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shelfsync/shelfsync/internal/errors"
)

const backupPrefix = "device-"

// Options configures a backup.
type Options struct {
	// Dir is where backups are written. Empty defaults to a "backups"
	// directory next to the database file.
	Dir string
	// Keep caps how many backups of this database are retained; older
	// ones are pruned after a successful snapshot. Zero keeps all.
	Keep int
}

// Result describes a completed backup.
type Result struct {
	Path   string
	Size   int64
	Pruned int
}

// Create copies the database file into the backup directory under a
// timestamped name and prunes old copies past the retention cap.
func Create(dbPath string, opts Options, logger *slog.Logger) (*Result, error) {
	src, err := os.Open(dbPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSetup, "open database for backup")
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSetup, "stat database")
	}

	dir := opts.Dir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(dbPath), "backups")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CodeSetup, "create backup dir")
	}

	timestamp := time.Now().Format("2006-01-02-150405")
	outputPath := filepath.Join(dir, fmt.Sprintf("%s%s-%s", backupPrefix, timestamp, filepath.Base(dbPath)))

	dst, err := os.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSetup, "create backup file")
	}
	size, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(outputPath)
		return nil, errors.Wrap(err, errors.CodeSetup, "write backup")
	}
	if size != info.Size() {
		os.Remove(outputPath)
		return nil, errors.Setupf("backup incomplete: wrote %d of %d bytes", size, info.Size())
	}

	pruned, err := prune(dir, filepath.Base(dbPath), opts.Keep)
	if err != nil {
		// The snapshot itself landed; a failed prune is not fatal.
		logger.Warn("prune old backups", "dir", dir, "error", err)
	}

	logger.Info("database backed up", "path", outputPath, "size", size, "pruned", pruned)
	return &Result{Path: outputPath, Size: size, Pruned: pruned}, nil
}

// prune deletes the oldest backups of the named database beyond keep.
// Timestamped names sort chronologically, so lexical order is age order.
func prune(dir, dbName string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	var matches []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, backupPrefix) && strings.HasSuffix(name, "-"+dbName) {
			matches = append(matches, name)
		}
	}
	if len(matches) <= keep {
		return 0, nil
	}
	sort.Strings(matches)

	pruned := 0
	for _, name := range matches[:len(matches)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}
