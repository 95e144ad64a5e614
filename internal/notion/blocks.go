package notion

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shelfsync/shelfsync/internal/errors"
)

// Block is one node in a page's block tree. Only the block types the
// sync renders are modeled.
type Block struct {
	ID        string     `json:"id,omitempty"`
	Type      string     `json:"type"`
	Heading2  *BlockText `json:"heading_2,omitempty"`
	Paragraph *BlockText `json:"paragraph,omitempty"`
	Divider   *struct{}  `json:"divider,omitempty"`
}

// BlockText is the rich text payload of a heading or paragraph block.
type BlockText struct {
	RichText []map[string]any `json:"rich_text"`
}

// HeadingBlock builds a heading_2 block.
func HeadingBlock(text string) Block {
	return Block{
		Type:     "heading_2",
		Heading2: &BlockText{RichText: []map[string]any{richTextMap(Truncate(text))}},
	}
}

// ParagraphBlock builds a paragraph block.
func ParagraphBlock(text string) Block {
	return Block{
		Type:      "paragraph",
		Paragraph: &BlockText{RichText: []map[string]any{richTextMap(Truncate(text))}},
	}
}

// DividerBlock builds a divider block.
func DividerBlock() Block {
	return Block{Type: "divider", Divider: &struct{}{}}
}

// IsDivider reports whether the block is a divider.
func (b Block) IsDivider() bool {
	return b.Type == "divider"
}

func richTextMap(s string) map[string]any {
	return map[string]any{
		"text": map[string]any{"content": s},
	}
}

type listBlocksResponse struct {
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor"`
}

// ListBlocks returns the direct children of a page or block, following
// pagination cursors.
func (c *Client) ListBlocks(ctx context.Context, parentID string) ([]Block, error) {
	var (
		blocks []Block
		cursor string
	)
	for {
		path := "/blocks/" + parentID + "/children?page_size=100"
		if cursor != "" {
			path += "&start_cursor=" + url.QueryEscape(cursor)
		}
		var resp listBlocksResponse
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, err
		}
		blocks = append(blocks, resp.Results...)
		if !resp.HasMore {
			return blocks, nil
		}
		cursor = resp.NextCursor
	}
}

type appendBlocksRequest struct {
	Children []Block `json:"children"`
}

// AppendBlocks appends up to MaxBlocksPerAppend blocks to a parent.
// Larger batches must be chunked by the caller; the API rejects them.
func (c *Client) AppendBlocks(ctx context.Context, parentID string, blocks []Block) error {
	if len(blocks) == 0 {
		return nil
	}
	if len(blocks) > MaxBlocksPerAppend {
		return errors.Validationf("append of %d blocks exceeds the %d block limit", len(blocks), MaxBlocksPerAppend)
	}
	return c.do(ctx, http.MethodPatch, "/blocks/"+parentID+"/children", appendBlocksRequest{Children: blocks}, nil)
}

// DeleteBlock removes a single block.
func (c *Client) DeleteBlock(ctx context.Context, blockID string) error {
	return c.do(ctx, http.MethodDelete, "/blocks/"+blockID, nil, nil)
}
