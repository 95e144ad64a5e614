package device

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shelfsync/shelfsync/internal/domain"
	"github.com/shelfsync/shelfsync/internal/errors"
	"github.com/shelfsync/shelfsync/internal/normalize"
)

// Sideloaded EPUBs have ContentType 6, EpubType -1, and a file:// prefix.
// Store-bought books and the per-chapter rows the firmware also keeps in
// the content table fall outside this filter.
const booksQuery = `
SELECT
	ContentID,
	Title,
	Attribution,
	ReadStatus,
	TimeSpentReading,
	DateLastRead,
	Language
FROM content
WHERE ContentType = 6
  AND EpubType = -1
  AND ContentID LIKE 'file%'
`

// Books returns every sideloaded book on the device. Rows without a
// title or author cannot be matched against the remote collection and
// are skipped with a warning.
func (s *Store) Books(ctx context.Context) ([]domain.BookRecord, error) {
	rows, err := s.db.QueryContext(ctx, booksQuery)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSetup, "query device books")
	}
	defer rows.Close()

	var books []domain.BookRecord
	for rows.Next() {
		var (
			contentID   string
			title       sql.NullString
			attribution sql.NullString
			readStatus  sql.NullInt64
			timeSpent   sql.NullInt64
			lastRead    sql.NullString
			language    sql.NullString
		)
		if err := rows.Scan(&contentID, &title, &attribution, &readStatus, &timeSpent, &lastRead, &language); err != nil {
			return nil, errors.Wrap(err, errors.CodeSetup, "scan device book")
		}

		if strings.TrimSpace(title.String) == "" || strings.TrimSpace(attribution.String) == "" {
			s.logger.Warn("skipping device book without title or author", "content_id", contentID)
			continue
		}

		books = append(books, domain.BookRecord{
			Title:       strings.TrimSpace(title.String),
			Author:      strings.TrimSpace(attribution.String),
			Status:      readStatusFor(readStatus.Int64),
			ReadingTime: time.Duration(timeSpent.Int64) * time.Second,
			LastRead:    parseDeviceTime(lastRead),
			Language:    normalize.LanguageName(language.String),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeSetup, "iterate device books")
	}

	s.logger.Info("device books extracted", "count", len(books))
	return books, nil
}

// readStatusFor maps the firmware's ReadStatus codes.
func readStatusFor(code int64) domain.ReadingStatus {
	switch code {
	case 1:
		return domain.StatusInProgress
	case 2:
		return domain.StatusFinished
	default:
		return domain.StatusNotStarted
	}
}

// AttachAnnotationStats fills each book's annotation count and note date
// range from its extracted annotations.
func AttachAnnotationStats(books []domain.BookRecord, anns []domain.AnnotationRecord) {
	type stats struct {
		count       int
		first, last *time.Time
	}
	byKey := make(map[domain.NaturalKey]*stats)
	for _, a := range anns {
		key := domain.KeyFor(a.BookTitle, a.BookAuthor)
		st := byKey[key]
		if st == nil {
			st = &stats{}
			byKey[key] = st
		}
		st.count++
		if a.CreatedAt.IsZero() {
			continue
		}
		created := a.CreatedAt
		if st.first == nil || created.Before(*st.first) {
			st.first = &created
		}
		if st.last == nil || created.After(*st.last) {
			st.last = &created
		}
	}

	for i := range books {
		if st, ok := byKey[books[i].Key()]; ok {
			books[i].AnnotationCount = st.count
			books[i].FirstNote = st.first
			books[i].LastNote = st.last
		}
	}
}
