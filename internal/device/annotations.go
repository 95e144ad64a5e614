package device

import (
	"context"
	"database/sql"
	"regexp"
	"strconv"
	"strings"

	"github.com/shelfsync/shelfsync/internal/domain"
	"github.com/shelfsync/shelfsync/internal/errors"
)

const annotationsQuery = `
SELECT
	cb.Title,
	cb.Attribution,
	COALESCE(NULLIF(TRIM(cc.Title), ''), cb.Title) AS Chapter,
	b.Text,
	b.Annotation,
	b.Type,
	b.ChapterProgress,
	b.DateCreated,
	b.StartContainerPath
FROM Bookmark b
JOIN content cb ON cb.ContentID = b.VolumeID
LEFT JOIN content cc ON cc.ContentID = b.ContentID
WHERE b.Type IN ('highlight', 'note')
  AND b.Text IS NOT NULL
  AND TRIM(b.Text) <> ''
`

// pointPattern matches the EPUB CFI-style position the firmware stores,
// e.g. "span#kobo.31.2#point(/1/4/44/1:12)".
var pointPattern = regexp.MustCompile(`point\(([^)]+)\)`)

// Annotations returns every highlight and note on the device, sorted
// into canonical reading order. Bookmarks without a position point (rows
// written against kepub files) are skipped; their offsets are not
// comparable with the rest.
func (s *Store) Annotations(ctx context.Context) ([]domain.AnnotationRecord, error) {
	rows, err := s.db.QueryContext(ctx, annotationsQuery)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSetup, "query device annotations")
	}
	defer rows.Close()

	var (
		anns    []domain.AnnotationRecord
		skipped int
	)
	for rows.Next() {
		var (
			bookTitle sql.NullString
			author    sql.NullString
			chapter   sql.NullString
			text      sql.NullString
			note      sql.NullString
			kind      sql.NullString
			progress  sql.NullFloat64
			created   sql.NullString
			startPath sql.NullString
		)
		if err := rows.Scan(&bookTitle, &author, &chapter, &text, &note, &kind, &progress, &created, &startPath); err != nil {
			return nil, errors.Wrap(err, errors.CodeSetup, "scan device annotation")
		}

		position, ok := parsePosition(startPath.String)
		if !ok {
			skipped++
			continue
		}

		ann := domain.AnnotationRecord{
			BookTitle:  strings.TrimSpace(bookTitle.String),
			BookAuthor: strings.TrimSpace(author.String),
			Chapter:    strings.TrimSpace(chapter.String),
			Text:       strings.TrimSpace(text.String),
			Note:       strings.TrimSpace(note.String),
			Kind:       kindFor(kind.String, note.String),
			Progress:   progress.Float64,
			Position:   position,
		}
		if t := parseDeviceTime(created); t != nil {
			ann.CreatedAt = *t
		}
		anns = append(anns, ann)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeSetup, "iterate device annotations")
	}

	domain.SortAnnotations(anns)

	s.logger.Info("device annotations extracted", "count", len(anns), "skipped", skipped)
	return anns, nil
}

// parsePosition extracts the element index from a bookmark's start
// path. A trailing component with a character offset ("1:12") is the
// text node inside the element; the element index is the step before
// it. Returns false when the path carries no point.
func parsePosition(startPath string) (int, bool) {
	m := pointPattern.FindStringSubmatch(startPath)
	if m == nil {
		return 0, false
	}
	parts := strings.Split(m[1], "/")
	last := parts[len(parts)-1]
	if strings.IndexByte(last, ':') >= 0 {
		if len(parts) < 2 {
			return 0, false
		}
		last = parts[len(parts)-2]
	}
	n, err := strconv.Atoi(last)
	if err != nil {
		return 0, false
	}
	return n, true
}

func kindFor(deviceType, note string) domain.AnnotationKind {
	if deviceType == "note" || strings.TrimSpace(note) != "" {
		return domain.KindNote
	}
	return domain.KindHighlight
}
