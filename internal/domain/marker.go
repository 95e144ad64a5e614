package domain

// Marker is the workflow state a reader sets by hand on a remote book
// record. It gates how aggressively the sync is allowed to rewrite the
// record's annotation page.
type Marker string

const (
	// MarkerNone means the record carries no workflow marker and the
	// sync owns the whole page body.
	MarkerNone Marker = ""
	// MarkerInProgress means the reader is drafting a summary above a
	// divider; only content below the divider may be rewritten.
	MarkerInProgress Marker = "In progress"
	// MarkerFinal locks the record: neither its metadata nor its page
	// body may be touched, even on a forced run.
	MarkerFinal Marker = "Final"
)

// ParseMarker maps a raw remote property value onto a Marker.
// Unrecognized values are treated as no marker.
func ParseMarker(s string) Marker {
	switch s {
	case string(MarkerInProgress):
		return MarkerInProgress
	case string(MarkerFinal):
		return MarkerFinal
	default:
		return MarkerNone
	}
}

// EpubMetadata is the metadata block parsed from an EPUB file in the
// cloud library, used to enrich device records that only know title,
// author, and reading state.
type EpubMetadata struct {
	Title           string
	Author          string
	Publisher       string
	Language        string
	Description     string
	Subjects        []string
	PublicationDate string
	Pages           int
}
