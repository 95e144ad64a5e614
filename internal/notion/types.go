package notion

import "time"

// Properties is a property payload for page create and update calls.
// Values are built with the helper constructors below, which produce the
// API's nested wire shapes.
type Properties map[string]any

// Title builds a title property value. Text longer than MaxTextLength is
// truncated; the API rejects oversized rich text outright.
func Title(s string) any {
	return map[string]any{
		"title": []any{richText(Truncate(s))},
	}
}

// Text builds a rich_text property value.
func Text(s string) any {
	return map[string]any{
		"rich_text": []any{richText(Truncate(s))},
	}
}

// Number builds a number property value.
func Number(n float64) any {
	return map[string]any{"number": n}
}

// NumberInt builds a number property value from an int.
func NumberInt(n int) any {
	return map[string]any{"number": float64(n)}
}

// Select builds a select property value.
func Select(name string) any {
	return map[string]any{
		"select": map[string]any{"name": name},
	}
}

// MultiSelect builds a multi_select property value.
func MultiSelect(names []string) any {
	options := make([]any, 0, len(names))
	for _, name := range names {
		options = append(options, map[string]any{"name": name})
	}
	return map[string]any{"multi_select": options}
}

// Date builds a date property value holding a date without time of day.
func Date(t time.Time) any {
	return DateString(t.Format("2006-01-02"))
}

// DateString builds a date property value from a pre-formatted date.
func DateString(s string) any {
	return map[string]any{
		"date": map[string]any{"start": s},
	}
}

// NullDate builds a date property value that clears the stored date.
func NullDate() any {
	return map[string]any{"date": nil}
}

// Relation builds a single-target relation property value.
func Relation(pageID string) any {
	return map[string]any{
		"relation": []any{map[string]any{"id": pageID}},
	}
}

// Truncate shortens a string to MaxTextLength runes.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxTextLength {
		return s
	}
	return string(runes[:MaxTextLength])
}

// Page is a page as returned by query and retrieve calls.
type Page struct {
	ID         string                   `json:"id"`
	Archived   bool                     `json:"archived"`
	Properties map[string]PropertyValue `json:"properties"`
}

// PropertyValue is a typed property as stored on a page. Only the
// variants the sync reads are decoded.
type PropertyValue struct {
	Type        string         `json:"type"`
	Title       []RichText     `json:"title"`
	RichText    []RichText     `json:"rich_text"`
	Number      *float64       `json:"number"`
	Select      *SelectOption  `json:"select"`
	Status      *SelectOption  `json:"status"`
	MultiSelect []SelectOption `json:"multi_select"`
	Date        *DateValue     `json:"date"`
}

// RichText is one span of formatted text.
type RichText struct {
	PlainText string           `json:"plain_text"`
	Text      *RichTextContent `json:"text"`
}

// RichTextContent is the editable payload of a text span.
type RichTextContent struct {
	Content string `json:"content"`
}

// SelectOption is a select, status, or multi_select option.
type SelectOption struct {
	Name string `json:"name"`
}

// DateValue is a stored date property payload.
type DateValue struct {
	Start string `json:"start"`
}

func richText(s string) any {
	return map[string]any{
		"text": map[string]any{"content": s},
	}
}

// TitleText returns the concatenated plain text of a title property, or
// "" when the property is absent or empty.
func (p Page) TitleText(name string) string {
	return joinRichText(p.Properties[name].Title)
}

// Text returns the concatenated plain text of a rich_text property.
func (p Page) Text(name string) string {
	return joinRichText(p.Properties[name].RichText)
}

// SelectName returns the selected option of a select or status property.
func (p Page) SelectName(name string) string {
	prop := p.Properties[name]
	if prop.Select != nil {
		return prop.Select.Name
	}
	if prop.Status != nil {
		return prop.Status.Name
	}
	return ""
}

// DateStart returns the start date of a date property, or "" when unset.
func (p Page) DateStart(name string) string {
	if d := p.Properties[name].Date; d != nil {
		return d.Start
	}
	return ""
}

func joinRichText(spans []RichText) string {
	out := ""
	for _, span := range spans {
		if span.PlainText != "" {
			out += span.PlainText
			continue
		}
		if span.Text != nil {
			out += span.Text.Content
		}
	}
	return out
}
