// Package rawdoc defines the raw-document model consumed by the structure
// extraction pipeline.
//
// A Document is the read-only view handed to every candidate source: ordered
// pages of text blocks with layout metadata, the flattened document text with
// a position↔page mapping, and the embedded outline when the source file has
// one. Producing a Document (PDF parsing, OCR, reflow) is the caller's
// concern; this package only checks that what it receives is usable.
//
// Usage:
//
//	doc, err := rawdoc.Build(pages, outline)
//	off, ok := doc.OffsetForPage(40)
package rawdoc

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidDocument reports a structurally unusable document: the one
// condition the extraction pipeline surfaces as a hard error.
var ErrInvalidDocument = errors.New("rawdoc: invalid document")

// Block is a positioned run of text on a page.
type Block struct {
	Text string `json:"text"`

	// Page is the 1-based page index the block appears on.
	Page int `json:"page"`

	// Approximate bounding box in page coordinates (origin top-left,
	// Y grows downward).
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Font metadata. Zero values mean "unknown": a producer without
	// layout information (plain text, degraded PDF) leaves them empty and
	// font-based detection degrades accordingly.
	FontSize float64 `json:"font_size"`
	Bold     bool    `json:"bold"`

	// Start is the block's offset into the flattened document text.
	// Filled in by Build.
	Start int `json:"start"`
}

// Page is an ordered list of blocks.
type Page struct {
	Number int     `json:"number"` // 1-based
	Label  string  `json:"label,omitempty"`
	Blocks []Block `json:"blocks"`
}

// OutlineEntry is one embedded outline (bookmark) entry.
type OutlineEntry struct {
	Title string `json:"title"`
	Level int    `json:"level"` // 1 = top
	Page  int    `json:"page"`  // 1-based target page
}

// Document is the immutable input to an extraction run.
type Document struct {
	Pages   []Page         `json:"pages"`
	Outline []OutlineEntry `json:"outline,omitempty"`

	// Text is the flattened document text: block texts in reading order
	// joined by newlines.
	Text string `json:"text"`

	pageOffsets []int          // index i = offset of page i+1 in Text
	labelOffset map[string]int // printed page label -> offset
}

// PageResolver maps a page index or printed page label to an offset into the
// flattened text. Document implements it; callers with their own mapping
// (e.g. a logical/physical page remapper) may substitute one.
type PageResolver interface {
	OffsetForPage(page int) (int, bool)
	OffsetForLabel(label string) (int, bool)
}

// Build assembles a Document from pages and an optional outline, computing
// the flattened text, per-block offsets, and the page offset table.
func Build(pages []Page, outline []OutlineEntry) (*Document, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrInvalidDocument)
	}

	doc := &Document{
		Pages:       make([]Page, len(pages)),
		Outline:     outline,
		pageOffsets: make([]int, len(pages)),
		labelOffset: make(map[string]int),
	}
	copy(doc.Pages, pages)

	var sb strings.Builder
	for i := range doc.Pages {
		p := &doc.Pages[i]
		// copy the block slice so the offset filling below never writes
		// through to the caller's input
		p.Blocks = append([]Block(nil), p.Blocks...)
		if p.Number != 0 && p.Number != i+1 {
			return nil, fmt.Errorf("%w: page %d out of order at index %d", ErrInvalidDocument, p.Number, i)
		}
		p.Number = i + 1

		doc.pageOffsets[i] = sb.Len()
		if p.Label != "" {
			if _, dup := doc.labelOffset[p.Label]; !dup {
				doc.labelOffset[p.Label] = sb.Len()
			}
		}

		for j := range p.Blocks {
			b := &p.Blocks[j]
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			b.Page = p.Number
			b.Start = sb.Len()
			sb.WriteString(b.Text)
		}
	}
	doc.Text = sb.String()

	for _, e := range outline {
		if e.Page < 1 || e.Page > len(pages) {
			return nil, fmt.Errorf("%w: outline entry %q targets page %d of %d", ErrInvalidDocument, e.Title, e.Page, len(pages))
		}
	}
	return doc, nil
}

// Validate checks a Document that was constructed outside Build.
func (d *Document) Validate() error {
	if d == nil || len(d.Pages) == 0 {
		return fmt.Errorf("%w: no pages", ErrInvalidDocument)
	}
	if len(d.pageOffsets) != len(d.Pages) {
		return fmt.Errorf("%w: missing page offset table (use Build)", ErrInvalidDocument)
	}
	for _, b := range d.Blocks() {
		if b.Start < 0 || b.Start > len(d.Text) {
			return fmt.Errorf("%w: block offset %d outside text of length %d", ErrInvalidDocument, b.Start, len(d.Text))
		}
	}
	return nil
}

// Blocks returns every block of the document in reading order.
func (d *Document) Blocks() []Block {
	var out []Block
	for _, p := range d.Pages {
		out = append(out, p.Blocks...)
	}
	return out
}

// OffsetForPage returns the flattened-text offset where the given 1-based
// page starts.
func (d *Document) OffsetForPage(page int) (int, bool) {
	if page < 1 || page > len(d.pageOffsets) {
		return 0, false
	}
	return d.pageOffsets[page-1], true
}

// OffsetForLabel resolves a printed page label ("iv", "23") to an offset.
// Only when the producer supplied no labels at all do numeric labels fall
// back to page indexes; with an explicit label table a missing key is
// unresolvable, since front matter shifts printed numbers off the physical
// index.
func (d *Document) OffsetForLabel(label string) (int, bool) {
	if off, ok := d.labelOffset[label]; ok {
		return off, true
	}
	if len(d.labelOffset) > 0 {
		return 0, false
	}
	n := 0
	for _, r := range label {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	if n == 0 {
		return 0, false
	}
	return d.OffsetForPage(n)
}

// PageAt returns the 1-based page containing the given text offset.
func (d *Document) PageAt(offset int) int {
	if len(d.pageOffsets) == 0 {
		return 0
	}
	i := sort.Search(len(d.pageOffsets), func(i int) bool {
		return d.pageOffsets[i] > offset
	})
	if i == 0 {
		return 1
	}
	return i
}
