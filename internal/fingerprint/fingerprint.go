// Package fingerprint computes the content hashes that drive change
// detection: a per-book metadata fingerprint, a per-annotation identity
// hash, and an aggregate hash over a book's full annotation set.
//
// All three are hex-encoded SHA-256 digests of a canonical string built
// from a fixed field order, so the same logical content always produces
// the same hash regardless of the order fields arrived in.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shelfsync/shelfsync/internal/domain"
)

// nullValue stands in for absent fields so that "no value" hashes
// deterministically instead of colliding with the empty string.
const nullValue = "\x00null"

const fieldSep = "\x1f"

// Book computes the metadata fingerprint for a book record.
//
// Tracked fields: title, author, genres, status, publication date, page
// count, annotation count, and language. Reading time and last-read date
// are deliberately untracked: they change on every reading session and
// would defeat the skip optimization.
func Book(b *domain.BookRecord) string {
	genres := make([]string, len(b.Genres))
	copy(genres, b.Genres)
	sort.Strings(genres)

	fields := []string{
		"annotations=" + strconv.Itoa(b.AnnotationCount),
		"author=" + orNull(b.Author),
		"genres=" + orNull(strings.Join(genres, ",")),
		"language=" + orNull(b.Language),
		"pages=" + intOrNull(b.Pages),
		"published=" + dateOrNull(b.PublicationDate),
		"status=" + orNull(string(b.Status)),
		"title=" + orNull(b.Title),
	}
	return digest(fields)
}

// Identity computes the identity hash of a single annotation. Two
// annotations with the same book, chapter, text, and progress are the
// same annotation no matter when they were extracted.
func Identity(a *domain.AnnotationRecord) string {
	fields := []string{
		a.BookTitle,
		a.Chapter,
		a.Text,
		formatProgress(a.Progress),
	}
	return digest(fields)
}

// Annotations computes the aggregate content hash of a book's annotation
// set. The input slice is not modified; annotations are sorted into
// canonical order first so extraction order cannot change the hash.
func Annotations(anns []domain.AnnotationRecord) string {
	sorted := make([]domain.AnnotationRecord, len(anns))
	copy(sorted, anns)
	domain.SortAnnotations(sorted)

	fields := make([]string, 0, len(sorted)*3)
	for _, a := range sorted {
		fields = append(fields, a.Chapter, a.Text, formatProgress(a.Progress))
	}
	return digest(fields)
}

func digest(fields []string) string {
	h := sha256.New()
	for i, f := range fields {
		if i > 0 {
			h.Write([]byte(fieldSep))
		}
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func formatProgress(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func orNull(s string) string {
	if s == "" {
		return nullValue
	}
	return s
}

func intOrNull(n int) string {
	if n == 0 {
		return nullValue
	}
	return strconv.Itoa(n)
}

func dateOrNull(t *time.Time) string {
	if t == nil {
		return nullValue
	}
	return t.Format("2006-01-02")
}
