package domain

import (
	"sort"
	"time"
)

// AnnotationKind distinguishes a passage highlight from a highlight that
// carries reader-written commentary.
type AnnotationKind string

const (
	KindHighlight AnnotationKind = "Highlight"
	KindNote      AnnotationKind = "Note"
)

// AnnotationRecord is one highlight or note extracted from the device.
type AnnotationRecord struct {
	BookTitle  string
	BookAuthor string
	Chapter    string
	Text       string
	Note       string
	Kind       AnnotationKind
	// Progress is the position in the book as a 0..1 fraction.
	Progress  float64
	CreatedAt time.Time
	// Position is the trailing component of the device's container path,
	// used to break ties between annotations at the same progress value.
	Position int
}

// SortAnnotations orders annotations into their canonical reading order:
// by progress, then chapter, then position, then creation time. Every
// consumer that cares about order (page rendering, content fingerprints)
// sorts with this one function so the orderings can never drift apart.
func SortAnnotations(anns []AnnotationRecord) {
	sort.SliceStable(anns, func(i, j int) bool {
		a, b := anns[i], anns[j]
		if a.Progress != b.Progress {
			return a.Progress < b.Progress
		}
		if a.Chapter != b.Chapter {
			return a.Chapter < b.Chapter
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
