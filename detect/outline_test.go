package detect

import (
	"context"
	"testing"

	"github.com/structura/structura/rawdoc"
	"github.com/structura/structura/section"
)

func outlineDoc(t *testing.T) *rawdoc.Document {
	t.Helper()
	pages := make([]rawdoc.Page, 50)
	for i := range pages {
		pages[i] = rawdoc.Page{Blocks: []rawdoc.Block{{Text: "Body text for a page."}}}
	}
	doc, err := rawdoc.Build(pages, []rawdoc.OutlineEntry{
		{Title: "Chapter 1", Level: 1, Page: 5},
		{Title: "Chapter 2", Level: 1, Page: 40},
		{Title: "  ", Level: 1, Page: 10},    // malformed: blank title
		{Title: "Broken", Level: 0, Page: 8}, // malformed: level 0
	})
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestOutlineSource(t *testing.T) {
	doc := outlineDoc(t)
	src := &OutlineSource{}

	cands, err := src.Extract(context.Background(), doc, doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates (malformed entries skipped), got %d", len(cands))
	}

	c := cands[1]
	if c.Title != "Chapter 2" || c.Level != 1 {
		t.Errorf("candidate = %q level %d", c.Title, c.Level)
	}
	if c.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", c.Confidence)
	}
	if c.Source != section.SourceOutline {
		t.Errorf("source = %q", c.Source)
	}
	want, _ := doc.OffsetForPage(40)
	if c.Start != want {
		t.Errorf("start = %d, want %d", c.Start, want)
	}
}

func TestOutlineSourceEmpty(t *testing.T) {
	doc, err := rawdoc.Build([]rawdoc.Page{
		{Blocks: []rawdoc.Block{{Text: "No outline here."}}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	src := &OutlineSource{}
	cands, err := src.Extract(context.Background(), doc, doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 0 {
		t.Fatalf("expected no candidates, got %d", len(cands))
	}
}
