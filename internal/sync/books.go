package sync

import (
	"github.com/shelfsync/shelfsync/internal/directory"
	"github.com/shelfsync/shelfsync/internal/domain"
	"github.com/shelfsync/shelfsync/internal/fingerprint"
	"github.com/shelfsync/shelfsync/internal/notion"
)

// BookDecision is the planned action for one device book.
type BookDecision struct {
	Action      Action
	Book        domain.BookRecord
	Key         domain.NaturalKey
	PageID      string // set for updates
	Fingerprint string
	Props       notion.Properties
	Reason      string
}

// PlanBook decides what to do with one device book given the remote
// snapshot. Records marked final are never touched, force or not.
func PlanBook(book domain.BookRecord, dir *directory.Books, force bool) BookDecision {
	key := book.Key()
	fp := fingerprint.Book(&book)

	entry, exists := dir.Lookup(key)
	if !exists {
		props := bookProperties(&book, fp)
		// A finished book entering the collection gets its completion
		// date from the device's last-read timestamp.
		if book.Status == domain.StatusFinished && book.LastRead != nil {
			props[notion.PropCompleted] = notion.Date(*book.LastRead)
		}
		return BookDecision{
			Action:      ActionCreate,
			Book:        book,
			Key:         key,
			Fingerprint: fp,
			Props:       props,
			Reason:      "not in remote collection",
		}
	}

	if entry.Marker == domain.MarkerFinal {
		return BookDecision{
			Action: ActionSkip,
			Book:   book,
			Key:    key,
			PageID: entry.ID,
			Reason: "record marked final",
		}
	}

	if entry.Fingerprint == fp && !force {
		return BookDecision{
			Action:      ActionSkip,
			Book:        book,
			Key:         key,
			PageID:      entry.ID,
			Fingerprint: fp,
			Reason:      "fingerprint unchanged",
		}
	}

	props := bookProperties(&book, fp)
	switch {
	case book.Status == domain.StatusFinished && entry.CompletionDate != "":
		// A completion date recorded on an earlier sync (or by hand)
		// outranks whatever the device thinks.
		props[notion.PropCompleted] = notion.DateString(entry.CompletionDate)
	case book.Status == domain.StatusFinished && book.LastRead != nil:
		props[notion.PropCompleted] = notion.Date(*book.LastRead)
	case book.Status != domain.StatusFinished && entry.CompletionDate != "":
		// The book moved back out of finished; clear the stale date.
		props[notion.PropCompleted] = notion.NullDate()
	}

	reason := "fingerprint changed"
	if entry.Fingerprint == fp {
		reason = "forced update"
	}
	return BookDecision{
		Action:      ActionUpdate,
		Book:        book,
		Key:         key,
		PageID:      entry.ID,
		Fingerprint: fp,
		Props:       props,
		Reason:      reason,
	}
}

// PlanBooks plans every device book against the snapshot.
func PlanBooks(books []domain.BookRecord, dir *directory.Books, force bool) []BookDecision {
	decisions := make([]BookDecision, 0, len(books))
	for _, b := range books {
		decisions = append(decisions, PlanBook(b, dir, force))
	}
	return decisions
}

// bookProperties renders a book into workspace properties, including the
// fingerprint so the next run can compare without refetching the device.
func bookProperties(b *domain.BookRecord, fp string) notion.Properties {
	props := notion.Properties{
		notion.PropTitle:           notion.Title(b.Title),
		notion.PropAuthor:          notion.Text(b.Author),
		notion.PropStatus:          notion.Select(string(b.Status)),
		notion.PropAnnotationCount: notion.NumberInt(b.AnnotationCount),
		notion.PropFingerprint:     notion.Text(fp),
	}
	if len(b.Genres) > 0 {
		props[notion.PropGenres] = notion.MultiSelect(b.Genres)
	}
	if b.ReadingTime > 0 {
		props[notion.PropReadingTime] = notion.Text(domain.FormatReadingTime(b.ReadingTime))
	}
	if b.LastRead != nil {
		props[notion.PropLastRead] = notion.Date(*b.LastRead)
	}
	if b.PublicationDate != nil {
		props[notion.PropPublished] = notion.Date(*b.PublicationDate)
	}
	if b.Pages > 0 {
		props[notion.PropPages] = notion.NumberInt(b.Pages)
	}
	if b.Language != "" {
		props[notion.PropLanguage] = notion.Select(b.Language)
	}
	// Annotation date range is informational, like reading time: written
	// when known but excluded from the fingerprint.
	if b.FirstNote != nil {
		props[notion.PropFirstNote] = notion.Date(*b.FirstNote)
	}
	if b.LastNote != nil {
		props[notion.PropLastNote] = notion.Date(*b.LastNote)
	}
	return props
}
