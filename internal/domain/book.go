// Package domain contains the core entities shared across the sync pipeline:
// books and annotations as read from an e-reader device, plus the attributes
// layered on top of them by enrichment.
package domain

import (
	"fmt"
	"time"

	"github.com/shelfsync/shelfsync/internal/normalize"
)

// ReadingStatus is the device-reported state of a book.
type ReadingStatus string

const (
	StatusNotStarted ReadingStatus = "Not started"
	StatusInProgress ReadingStatus = "In progress"
	StatusFinished   ReadingStatus = "Finished"
)

// NaturalKey identifies a book across systems that share no IDs.
// Both components are case-folded and trimmed so that device rows and
// remote records match regardless of casing.
type NaturalKey struct {
	Title  string
	Author string
}

// KeyFor builds the natural key for a raw title/author pair.
func KeyFor(title, author string) NaturalKey {
	return NaturalKey{
		Title:  normalize.Fold(title),
		Author: normalize.Fold(author),
	}
}

// BookRecord is one book as assembled from the device library and,
// optionally, enrichment metadata. Zero values mean "unknown": a nil
// time pointer is an absent date, Pages == 0 is an unknown page count.
type BookRecord struct {
	Title           string
	Author          string
	Genres          []string
	Status          ReadingStatus
	ReadingTime     time.Duration
	LastRead        *time.Time
	PublicationDate *time.Time
	Pages           int
	AnnotationCount int
	Language        string

	// Annotation date range, filled from the device annotation set.
	FirstNote *time.Time
	LastNote  *time.Time
}

// Key returns the book's natural key.
func (b *BookRecord) Key() NaturalKey {
	return KeyFor(b.Title, b.Author)
}

// FormatReadingTime renders accumulated reading time as HH:MM:SS.
// Hours are not capped at 24.
func FormatReadingTime(d time.Duration) string {
	total := int(d.Seconds())
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
