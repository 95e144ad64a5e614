package device

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/shelfsync/shelfsync/internal/errors"
)

// TransferOptions controls an annotation transfer between two device
// databases, typically an old device and its replacement.
type TransferOptions struct {
	// DryRun reports what would be copied without writing.
	DryRun bool
	// Books limits the transfer to the named titles. Empty means all.
	Books []string
}

// TransferStats summarizes a transfer run.
type TransferStats struct {
	BooksMatched int
	BooksSkipped int
	RowsCopied   int
}

// bookmarkColumns are the Bookmark columns copied verbatim between
// devices. BookmarkID, VolumeID, and the container paths are rewritten.
const bookmarkColumns = `
	Text, Annotation, ExtraAnnotationData, DateCreated, ChapterProgress,
	Hidden, Type, DateModified, StartContainerPath, StartContainerChildIndex,
	StartOffset, EndContainerPath, EndContainerChildIndex, EndOffset,
	ContentID, VolumeID
`

// Transfer copies annotations for books present on both devices from
// source to target. Books that already have annotations on the target
// are skipped: merging two annotation sets row by row risks duplicates,
// and the remote workspace is the place both sets already meet.
func Transfer(ctx context.Context, source, target *Store, opts TransferOptions) (*TransferStats, error) {
	sourceVolumes, err := source.bookVolumes(ctx)
	if err != nil {
		return nil, err
	}
	targetVolumes, err := target.bookVolumes(ctx)
	if err != nil {
		return nil, err
	}
	annotated, err := target.annotatedVolumes(ctx)
	if err != nil {
		return nil, err
	}

	only := make(map[string]bool, len(opts.Books))
	for _, title := range opts.Books {
		only[strings.TrimSpace(title)] = true
	}

	stats := &TransferStats{}
	for title, sourceVol := range sourceVolumes {
		if len(only) > 0 && !only[title] {
			continue
		}
		targetVol, ok := targetVolumes[title]
		if !ok {
			continue
		}
		stats.BooksMatched++

		if annotated[targetVol] {
			source.logger.Info("skipping book with existing target annotations", "title", title)
			stats.BooksSkipped++
			continue
		}

		copied, err := transferBook(ctx, source, target, sourceVol, targetVol, opts.DryRun)
		if err != nil {
			return stats, errors.Wrapf(err, errors.CodeInternal, "transfer %q", title)
		}
		source.logger.Info("book transferred", "title", title, "rows", copied, "dry_run", opts.DryRun)
		stats.RowsCopied += copied
	}
	return stats, nil
}

// bookVolumes maps book titles to their ContentIDs.
func (s *Store) bookVolumes(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT Title, ContentID FROM content
		WHERE ContentType = 6 AND EpubType = -1 AND ContentID LIKE 'file%'`)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSetup, "query book volumes")
	}
	defer rows.Close()

	volumes := make(map[string]string)
	for rows.Next() {
		var title, contentID sql.NullString
		if err := rows.Scan(&title, &contentID); err != nil {
			return nil, errors.Wrap(err, errors.CodeSetup, "scan book volume")
		}
		if title.String != "" {
			volumes[strings.TrimSpace(title.String)] = contentID.String
		}
	}
	return volumes, rows.Err()
}

// annotatedVolumes returns the set of VolumeIDs that already carry
// highlights or notes.
func (s *Store) annotatedVolumes(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT VolumeID FROM Bookmark
		WHERE Type IN ('highlight', 'note')`)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSetup, "query annotated volumes")
	}
	defer rows.Close()

	annotated := make(map[string]bool)
	for rows.Next() {
		var volume string
		if err := rows.Scan(&volume); err != nil {
			return nil, errors.Wrap(err, errors.CodeSetup, "scan annotated volume")
		}
		annotated[volume] = true
	}
	return annotated, rows.Err()
}

func transferBook(ctx context.Context, source, target *Store, sourceVol, targetVol string, dryRun bool) (int, error) {
	rows, err := source.db.QueryContext(ctx, `
		SELECT `+bookmarkColumns+`
		FROM Bookmark
		WHERE VolumeID = ? AND Type IN ('highlight', 'note')`, sourceVol)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	copied := 0
	for rows.Next() {
		var (
			text, annotation, extra      sql.NullString
			dateCreated                  sql.NullString
			chapterProgress              sql.NullFloat64
			hidden, kind, dateModified   sql.NullString
			startPath                    sql.NullString
			startChildIndex, startOffset sql.NullInt64
			endPath                      sql.NullString
			endChildIndex, endOffset     sql.NullInt64
			contentID, volumeID          sql.NullString
		)
		if err := rows.Scan(&text, &annotation, &extra, &dateCreated, &chapterProgress,
			&hidden, &kind, &dateModified, &startPath, &startChildIndex,
			&startOffset, &endPath, &endChildIndex, &endOffset,
			&contentID, &volumeID); err != nil {
			return copied, err
		}

		if dryRun {
			copied++
			continue
		}

		// Chapter paths embed the volume's ContentID; rewrite them so
		// the target firmware can resolve the annotation.
		newContentID := strings.Replace(contentID.String, sourceVol, targetVol, 1)

		_, err := target.db.ExecContext(ctx, `
			INSERT INTO Bookmark (
				BookmarkID, VolumeID, ContentID, Text, Annotation,
				ExtraAnnotationData, DateCreated, ChapterProgress, Hidden, Type,
				DateModified, StartContainerPath, StartContainerChildIndex,
				StartOffset, EndContainerPath, EndContainerChildIndex, EndOffset
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), targetVol, newContentID, text, annotation,
			extra, dateCreated, chapterProgress, hidden, kind,
			dateModified, startPath, startChildIndex,
			startOffset, endPath, endChildIndex, endOffset)
		if err != nil {
			return copied, err
		}
		copied++
	}
	return copied, rows.Err()
}
