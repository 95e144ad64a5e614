package sync

import (
	"log/slog"

	"github.com/shelfsync/shelfsync/internal/directory"
	"github.com/shelfsync/shelfsync/internal/domain"
	"github.com/shelfsync/shelfsync/internal/fingerprint"
	"github.com/shelfsync/shelfsync/internal/notion"
)

// AnnotationDecision is one annotation record to create.
type AnnotationDecision struct {
	Annotation domain.AnnotationRecord
	Identity   string
	// BookPageID links the record to its book.
	BookPageID string
}

// PlanAnnotations selects the device annotations that are not yet stored
// remotely. Annotation sync is append-only: nothing is updated or
// deleted, so a hand-edited remote record is never clobbered.
//
// Returns the creations plus the count of annotations whose book could
// not be resolved to a remote record.
func PlanAnnotations(
	anns []domain.AnnotationRecord,
	present *directory.Annotations,
	books *directory.Books,
	logger *slog.Logger,
) (creates []AnnotationDecision, unresolved int, skipped int) {
	seen := make(map[string]struct{}, len(anns))

	for _, a := range anns {
		identity := fingerprint.Identity(&a)

		// Device databases can hold literal duplicate rows after a
		// restore; the first occurrence wins.
		if _, dup := seen[identity]; dup {
			skipped++
			continue
		}
		seen[identity] = struct{}{}

		if present.Has(identity) {
			skipped++
			continue
		}

		pageID, ok := resolveParent(books, &a)
		if !ok {
			logger.Warn("annotation book not in remote collection",
				"book", a.BookTitle,
				"chapter", a.Chapter,
			)
			unresolved++
			continue
		}

		creates = append(creates, AnnotationDecision{
			Annotation: a,
			Identity:   identity,
			BookPageID: pageID,
		})
	}
	return creates, unresolved, skipped
}

// resolveParent finds the remote book record an annotation belongs to:
// by full natural key first, then by title alone for records whose
// stored author differs from the device's attribution string.
func resolveParent(books *directory.Books, a *domain.AnnotationRecord) (string, bool) {
	if entry, ok := books.Lookup(domain.KeyFor(a.BookTitle, a.BookAuthor)); ok {
		return entry.ID, true
	}
	return books.ResolveTitle(a.BookTitle)
}

// annotationProperties renders an annotation into workspace properties.
// The identity hash rides along so later runs can recognize the record.
func annotationProperties(a *domain.AnnotationRecord, identity, bookPageID string) notion.Properties {
	props := notion.Properties{
		notion.PropAnnotationText: notion.Title(a.Text),
		notion.PropAnnotationKind: notion.Select(string(a.Kind)),
		notion.PropChapter:        notion.Text(a.Chapter),
		notion.PropProgress:       notion.Number(a.Progress),
		notion.PropBookRelation:   notion.Relation(bookPageID),
		notion.PropAnnotationID:   notion.Text(identity),
	}
	if a.Note != "" {
		props[notion.PropAnnotationNote] = notion.Text(a.Note)
	}
	if !a.CreatedAt.IsZero() {
		props[notion.PropCreated] = notion.Date(a.CreatedAt)
	}
	return props
}
