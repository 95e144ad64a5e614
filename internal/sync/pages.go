package sync

import (
	"fmt"
	"math"

	"github.com/shelfsync/shelfsync/internal/directory"
	"github.com/shelfsync/shelfsync/internal/domain"
	"github.com/shelfsync/shelfsync/internal/fingerprint"
	"github.com/shelfsync/shelfsync/internal/notion"
)

// PageRebuild is a planned rewrite of one book's annotation page body.
type PageRebuild struct {
	PageID    string
	BookTitle string
	// Chunks holds the rendered blocks split into batches the append
	// endpoint accepts.
	Chunks [][]notion.Block
	// ContentHash is stored on the record after the rebuild lands.
	ContentHash string
	Marker      domain.Marker
}

// PlanPage decides whether a book's annotation page needs rebuilding.
// A nil rebuild means the page is left alone; reason says why.
func PlanPage(entry directory.Entry, title string, anns []domain.AnnotationRecord, force bool) (*PageRebuild, string) {
	if entry.Marker == domain.MarkerFinal {
		return nil, "record marked final"
	}

	hash := fingerprint.Annotations(anns)
	if entry.ContentHash == hash && !force {
		return nil, "content hash unchanged"
	}

	sorted := make([]domain.AnnotationRecord, len(anns))
	copy(sorted, anns)
	domain.SortAnnotations(sorted)

	return &PageRebuild{
		PageID:      entry.ID,
		BookTitle:   title,
		Chunks:      chunkBlocks(renderAnnotations(sorted), notion.MaxBlocksPerAppend),
		ContentHash: hash,
		Marker:      entry.Marker,
	}, ""
}

// renderAnnotations lays out the page body: a heading per chapter, then
// one paragraph per annotation in reading order.
func renderAnnotations(sorted []domain.AnnotationRecord) []notion.Block {
	var (
		blocks  []notion.Block
		chapter string
	)
	for i, a := range sorted {
		if i == 0 || a.Chapter != chapter {
			chapter = a.Chapter
			blocks = append(blocks, notion.HeadingBlock("Chapter: "+chapter))
		}
		blocks = append(blocks, notion.ParagraphBlock(annotationLine(&a)))
		if a.Note != "" {
			blocks = append(blocks, notion.ParagraphBlock("Note: "+a.Note))
		}
	}
	return blocks
}

func annotationLine(a *domain.AnnotationRecord) string {
	percent := int(math.Round(a.Progress * 100))
	return fmt.Sprintf("(%d%%) %s", percent, a.Text)
}

func chunkBlocks(blocks []notion.Block, size int) [][]notion.Block {
	if len(blocks) == 0 {
		return nil
	}
	chunks := make([][]notion.Block, 0, (len(blocks)+size-1)/size)
	for len(blocks) > size {
		chunks = append(chunks, blocks[:size])
		blocks = blocks[size:]
	}
	return append(chunks, blocks)
}
