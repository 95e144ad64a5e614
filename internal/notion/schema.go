package notion

// Property names of the book collection.
const (
	PropTitle           = "Title"
	PropAuthor          = "Author"
	PropGenres          = "Genres"
	PropStatus          = "Status"
	PropReadingTime     = "Reading Time"
	PropLastRead        = "Last Read"
	PropPublished       = "Published"
	PropPages           = "Pages"
	PropAnnotationCount = "Annotations"
	PropLanguage        = "Language"
	PropCompleted       = "Completed"
	PropFirstNote       = "First Note"
	PropLastNote        = "Last Note"
	PropFingerprint     = "Data Hash"
	PropContentHash     = "Content Hash"
	PropReview          = "Review"
)

// Property names of the annotation collection.
const (
	PropAnnotationText = "Text"
	PropAnnotationNote = "Note"
	PropAnnotationKind = "Kind"
	PropChapter        = "Chapter"
	PropProgress       = "Progress"
	PropCreated        = "Created"
	PropBookRelation   = "Book"
	PropAnnotationID   = "Annotation ID"
)
