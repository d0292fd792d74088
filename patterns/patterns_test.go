package patterns

import (
	"context"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/structura/structura/dbopen"
	"github.com/structura/structura/rawdoc"
	"github.com/structura/structura/section"
)

func TestShape(t *testing.T) {
	tests := []struct {
		title string
		shape string
	}{
		{"Chapter 1", "chapter <n>"},
		{"Chapter 12: The Return", "chapter <n>: the return"},
		{"Section 3.4", "section <n>.<n>"},
		{"Part IV", "part <r>"},
		{"  Appendix   B  ", "appendix b"},
	}
	for _, tt := range tests {
		if got := Shape(tt.title); got != tt.shape {
			t.Errorf("Shape(%q) = %q, want %q", tt.title, got, tt.shape)
		}
	}
}

func TestCompileShape(t *testing.T) {
	re, err := compileShape("chapter <n>")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"Chapter 1", "chapter 42", "  CHAPTER 7  "} {
		if !re.MatchString(s) {
			t.Errorf("%q should match chapter <n>", s)
		}
	}
	for _, s := range []string{"Chapter", "Chapter One", "The Chapter 1 Problem"} {
		if re.MatchString(s) {
			t.Errorf("%q should not match chapter <n>", s)
		}
	}
}

func memLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := New(Config{DB: dbopen.OpenMemory(t)})
	if err != nil {
		t.Fatal(err)
	}
	return lib
}

func TestLearnAndSuggest(t *testing.T) {
	lib := memLibrary(t)
	ctx := context.Background()

	id, err := lib.Learn(ctx, section.Correction{
		Kind:     section.CorrectionMissing,
		Title:    "Chapter 4",
		Level:    1,
		Start:    12000,
		Evidence: section.Evidence{"font_size": "16", "bold": "true"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected a pattern id")
	}

	snap := lib.Snapshot()
	if snap.Version != 1 || len(snap.Patterns) != 1 {
		t.Fatalf("snapshot = version %d, %d patterns", snap.Version, len(snap.Patterns))
	}
	p := snap.Patterns[0]
	if p.Shape != "chapter <n>" || p.Level != 1 || p.MinFontSize != 16 || !p.Bold {
		t.Fatalf("learned pattern = %+v", p)
	}
	if p.Confidence != 0.7 {
		t.Errorf("confidence = %v, want 0.7", p.Confidence)
	}

	doc, err := rawdoc.Build([]rawdoc.Page{
		{Blocks: []rawdoc.Block{
			{Text: "Chapter 9", FontSize: 16, Bold: true},
			{Text: "Ordinary body text without any chapter shape."},
		}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	cands := lib.Suggest(ctx, doc, 4)
	if len(cands) != 1 {
		t.Fatalf("expected 1 suggestion, got %d: %+v", len(cands), cands)
	}
	c := cands[0]
	if c.Source != section.SourcePatternLibrary {
		t.Errorf("source = %q", c.Source)
	}
	if c.Title != "Chapter 9" || c.Level != 1 {
		t.Errorf("suggestion = %q level %d", c.Title, c.Level)
	}
	if c.Confidence != 0.7 {
		t.Errorf("confidence = %v, want full 0.7 (hints agree)", c.Confidence)
	}
	if c.Evidence["pattern_id"] != id {
		t.Errorf("pattern_id = %q, want %q", c.Evidence["pattern_id"], id)
	}
}

func TestSuggestDiscountsDisagreeingHints(t *testing.T) {
	lib := memLibrary(t)
	ctx := context.Background()

	if _, err := lib.Learn(ctx, section.Correction{
		Kind:     section.CorrectionMissing,
		Title:    "Chapter 4",
		Level:    1,
		Evidence: section.Evidence{"font_size": "16", "bold": "true"},
	}); err != nil {
		t.Fatal(err)
	}

	// The matching block is neither large nor bold.
	doc, err := rawdoc.Build([]rawdoc.Page{
		{Blocks: []rawdoc.Block{{Text: "Chapter 2", FontSize: 10}}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	cands := lib.Suggest(ctx, doc, 4)
	if len(cands) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(cands))
	}
	if got := cands[0].Confidence; got >= 0.7 {
		t.Errorf("confidence = %v, want discounted below 0.7", got)
	}
}

func TestSuppression(t *testing.T) {
	lib := memLibrary(t)
	ctx := context.Background()

	if _, err := lib.Learn(ctx, section.Correction{
		Kind:  section.CorrectionMissing,
		Title: "Figure 1",
		Level: 2,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := lib.Learn(ctx, section.Correction{
		Kind:  section.CorrectionFalsePositive,
		Title: "Figure 3",
	}); err != nil {
		t.Fatal(err)
	}

	doc, err := rawdoc.Build([]rawdoc.Page{
		{Blocks: []rawdoc.Block{{Text: "Figure 7"}}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if cands := lib.Suggest(ctx, doc, 4); len(cands) != 0 {
		t.Fatalf("suppressed shape still suggested: %+v", cands)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.db")
	ctx := context.Background()

	db1, err := dbopen.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	lib1, err := New(Config{DB: db1})
	if err != nil {
		t.Fatal(err)
	}
	id, err := lib1.Learn(ctx, section.Correction{
		Kind:  section.CorrectionMissing,
		Title: "Chapter 4",
		Level: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	lib1.RecordUse(ctx, []string{id})
	db1.Close()

	db2, err := dbopen.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()
	lib2, err := New(Config{DB: db2})
	if err != nil {
		t.Fatal(err)
	}

	snap := lib2.Snapshot()
	if snap.Version != 1 || len(snap.Patterns) != 1 {
		t.Fatalf("reloaded snapshot = version %d, %d patterns", snap.Version, len(snap.Patterns))
	}
	p := snap.Patterns[0]
	if p.ID != id || p.Shape != "chapter <n>" {
		t.Fatalf("reloaded pattern = %+v", p)
	}
	if p.Matches != 1 {
		t.Errorf("matches counter = %d, want 1", p.Matches)
	}

	doc, err := rawdoc.Build([]rawdoc.Page{
		{Blocks: []rawdoc.Block{{Text: "Chapter 11"}}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	cands := lib2.Suggest(ctx, doc, 4)
	if len(cands) != 1 || cands[0].Source != section.SourcePatternLibrary {
		t.Fatalf("reloaded library suggestions = %+v", cands)
	}
}
