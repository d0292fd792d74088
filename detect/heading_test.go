package detect

import (
	"context"
	"testing"

	"github.com/structura/structura/rawdoc"
	"github.com/structura/structura/section"
)

// styledDoc builds a page with body text at size 10 and two heading sizes.
func styledDoc(t *testing.T) *rawdoc.Document {
	t.Helper()
	blocks := []rawdoc.Block{
		{Text: "opening body text that precedes the first heading of the document.", FontSize: 10, Y: 40, Height: 12},
		{Text: "The Big Chapter", FontSize: 18, Bold: true, Y: 100, Height: 20},
		{Text: "Plain body text that goes on for quite a while without much shape.", FontSize: 10, Y: 160, Height: 12},
		{Text: "more body. lowercase continuation of the paragraph above, still running.", FontSize: 10, Y: 175, Height: 12},
		{Text: "A Smaller Section", FontSize: 14, Y: 240, Height: 16},
		{Text: "further body text below the second heading, unremarkable in every way.", FontSize: 10, Y: 280, Height: 12},
		{Text: "closing body text, still size ten, still not a heading at all really.", FontSize: 10, Y: 295, Height: 12},
	}
	doc, err := rawdoc.Build([]rawdoc.Page{{Blocks: blocks}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestHeadingSource(t *testing.T) {
	doc := styledDoc(t)
	src := NewHeadingSource(HeadingConfig{})

	cands, err := src.Extract(context.Background(), doc, doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 heading candidates, got %d: %+v", len(cands), cands)
	}

	big, small := cands[0], cands[1]
	if big.Title != "The Big Chapter" || small.Title != "A Smaller Section" {
		t.Fatalf("titles = %q, %q", big.Title, small.Title)
	}
	if big.Source != section.SourceHeading {
		t.Errorf("source = %q", big.Source)
	}
	// Levels follow the rank of distinct above-median font sizes.
	if big.Level != 1 || small.Level != 2 {
		t.Errorf("levels = %d, %d, want 1, 2", big.Level, small.Level)
	}
	if big.Confidence < 0.5 || big.Confidence > 1 {
		t.Errorf("confidence = %v, want within [0.5,1]", big.Confidence)
	}
	if big.Confidence <= small.Confidence {
		t.Errorf("larger heading should outscore smaller: %v vs %v", big.Confidence, small.Confidence)
	}
}

func TestHeadingSourceUniformDoc(t *testing.T) {
	// Same font everywhere, long lowercase lines: nothing should score
	// above the floor.
	var blocks []rawdoc.Block
	for i := 0; i < 20; i++ {
		blocks = append(blocks, rawdoc.Block{
			Text:     "an unbroken run of plain prose that looks the same as every other line in this document and offers no layout signal whatsoever",
			FontSize: 10,
		})
	}
	doc, err := rawdoc.Build([]rawdoc.Page{{Blocks: blocks}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	src := NewHeadingSource(HeadingConfig{})
	cands, err := src.Extract(context.Background(), doc, doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 0 {
		t.Fatalf("uniform document produced %d candidates: %+v", len(cands), cands)
	}
}

func TestHeadingDepthCap(t *testing.T) {
	// Six distinct heading sizes but MaxDepth 4: deepest ranks clamp.
	var blocks []rawdoc.Block
	sizes := []float64{30, 26, 22, 18, 16, 14}
	for _, size := range sizes {
		blocks = append(blocks, rawdoc.Block{Text: "Heading Line", FontSize: size, Bold: true})
	}
	for i := 0; i < 30; i++ {
		blocks = append(blocks, rawdoc.Block{
			Text:     "body text of the usual sort, repeated to anchor the median font size",
			FontSize: 10,
		})
	}
	doc, err := rawdoc.Build([]rawdoc.Page{{Blocks: blocks}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	src := NewHeadingSource(HeadingConfig{MaxDepth: 4})
	cands, err := src.Extract(context.Background(), doc, doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != len(sizes) {
		t.Fatalf("expected %d candidates, got %d", len(sizes), len(cands))
	}
	for _, c := range cands {
		if c.Level > 4 {
			t.Errorf("level %d exceeds depth cap for %v", c.Level, c.Evidence)
		}
	}
	if cands[4].Level != 4 || cands[5].Level != 4 {
		t.Errorf("deep levels = %d, %d, want both clamped to 4", cands[4].Level, cands[5].Level)
	}
}
