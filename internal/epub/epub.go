// Package epub parses Dublin Core metadata out of EPUB files and
// estimates their print length.
package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	"github.com/shelfsync/shelfsync/internal/domain"
	"github.com/shelfsync/shelfsync/internal/errors"
)

// opfPackage mirrors the OPF package document. Element names are matched
// by local name, so the Dublin Core namespace prefix does not matter.
type opfPackage struct {
	Metadata struct {
		Titles      []string `xml:"title"`
		Creators    []string `xml:"creator"`
		Publisher   string   `xml:"publisher"`
		Language    string   `xml:"language"`
		Description string   `xml:"description"`
		Subjects    []string `xml:"subject"`
		Date        string   `xml:"date"`
	} `xml:"metadata"`
}

// Parse reads EPUB metadata from an in-memory file.
func Parse(data []byte) (*domain.EpubMetadata, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "open epub archive")
	}

	opf := findOPF(zr)
	if opf == nil {
		return nil, errors.Validation("epub has no OPF package document")
	}

	rc, err := opf.Open()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "open OPF")
	}
	defer rc.Close()

	var pkg opfPackage
	dec := xml.NewDecoder(rc)
	// Sideloaded files regularly declare charsets the strict decoder
	// refuses; fall back to reading them as-is.
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := dec.Decode(&pkg); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "decode OPF")
	}

	md := &domain.EpubMetadata{
		Title:           first(pkg.Metadata.Titles),
		Author:          first(pkg.Metadata.Creators),
		Publisher:       strings.TrimSpace(pkg.Metadata.Publisher),
		Language:        strings.TrimSpace(pkg.Metadata.Language),
		Description:     strings.TrimSpace(pkg.Metadata.Description),
		PublicationDate: strings.TrimSpace(pkg.Metadata.Date),
	}
	for _, s := range pkg.Metadata.Subjects {
		if s = strings.TrimSpace(s); s != "" {
			md.Subjects = append(md.Subjects, s)
		}
	}
	md.Pages = estimatePages(zr)
	return md, nil
}

func findOPF(zr *zip.Reader) *zip.File {
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".opf") {
			return f
		}
	}
	return nil
}

func first(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// charsPerPage matches the heuristic Kobo devices use for EPUB page
// numbering: one page per kilobyte of text.
const charsPerPage = 1024

// estimatePages counts the visible text across the book's HTML content
// and converts it to a device-style page count. Returns 0 when the
// archive holds no content documents.
func estimatePages(zr *zip.Reader) int {
	total := 0
	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		if !strings.HasSuffix(name, ".html") && !strings.HasSuffix(name, ".xhtml") && !strings.HasSuffix(name, ".htm") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		text := tagPattern.ReplaceAllString(string(raw), "")
		total += len([]rune(strings.TrimSpace(text)))
	}
	if total == 0 {
		return 0
	}
	pages := total / charsPerPage
	if pages == 0 {
		pages = 1
	}
	return pages
}
