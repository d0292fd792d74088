package fusion

import (
	"math"
	"testing"

	"github.com/structura/structura/section"
)

func TestSingletonPassThrough(t *testing.T) {
	cands := []section.Candidate{
		{Start: 100, Title: "Chapter 2", Level: 1, Confidence: 0.95, Source: section.SourceOutline},
	}
	spans := Fuse(cands, 5000, Config{})
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95 unchanged", s.Confidence)
	}
	if s.Start != 100 || s.End != 5000 {
		t.Errorf("span = [%d,%d), want [100,5000)", s.Start, s.End)
	}
	if len(s.Sources) != 1 || s.Sources[0] != section.SourceOutline {
		t.Errorf("sources = %v", s.Sources)
	}
}

func TestAgreementFusion(t *testing.T) {
	// Scenario: a heading-detection candidate at 5000 and a ToC candidate
	// at 5040 agree within the 100-char tolerance.
	cands := []section.Candidate{
		{Start: 5000, Title: "methods", Level: 2, Confidence: 0.55, Source: section.SourceHeading},
		{Start: 5040, Title: "Methods", Level: 2, Confidence: 0.85, Source: section.SourceTOC},
	}
	spans := Fuse(cands, 9000, Config{})
	if len(spans) != 1 {
		t.Fatalf("expected 1 fused span, got %d", len(spans))
	}

	s := spans[0]
	if s.Title != "Methods" || s.Level != 2 {
		t.Errorf("representative = %q level %d, want ToC's Methods level 2", s.Title, s.Level)
	}
	if math.Abs(s.Confidence-0.95) > 1e-9 {
		t.Errorf("combined confidence = %v, want 0.95", s.Confidence)
	}
	if len(s.Sources) != 2 || s.Sources[0] != section.SourceTOC || s.Sources[1] != section.SourceHeading {
		t.Errorf("sources = %v, want [toc_parser heading_detection]", s.Sources)
	}
	// Confidence-weighted position: (0.55*5000 + 0.85*5040) / 1.40.
	if want := 5024; s.Start != want {
		t.Errorf("start = %d, want %d", s.Start, want)
	}
}

func TestCombinedAtLeastIndividual(t *testing.T) {
	cands := []section.Candidate{
		{Start: 200, Title: "Intro", Level: 1, Confidence: 0.6, Source: section.SourceHeading},
		{Start: 230, Title: "Introduction", Level: 1, Confidence: 0.85, Source: section.SourceTOC},
		{Start: 250, Title: "Introduction", Level: 1, Confidence: 0.95, Source: section.SourceOutline},
	}
	spans := Fuse(cands, 4000, Config{})
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	for _, c := range cands {
		if s.Confidence < c.Confidence {
			t.Errorf("combined %v below individual %v", s.Confidence, c.Confidence)
		}
	}
	// 0.95 + 2*0.1 caps at 1.0.
	if s.Confidence != 1.0 {
		t.Errorf("confidence = %v, want capped 1.0", s.Confidence)
	}
	if s.Title != "Introduction" || s.Sources[0] != section.SourceOutline {
		t.Errorf("representative should be the outline candidate, got %q via %v", s.Title, s.Sources)
	}
}

func TestLowConfidenceDiscarded(t *testing.T) {
	cands := []section.Candidate{
		{Start: 700, Title: "maybe a heading", Level: 2, Confidence: 0.3, Source: section.SourceHeading},
	}
	spans := Fuse(cands, 2000, Config{MinConfidence: 0.5})
	if len(spans) != 0 {
		t.Fatalf("expected candidate below floor to be discarded, got %+v", spans)
	}
}

func TestEndFilling(t *testing.T) {
	cands := []section.Candidate{
		{Start: 3000, Title: "Third", Level: 1, Confidence: 0.9, Source: section.SourceOutline},
		{Start: 0, Title: "First", Level: 1, Confidence: 0.9, Source: section.SourceOutline},
		{Start: 1500, Title: "Second", Level: 1, Confidence: 0.9, Source: section.SourceOutline},
	}
	spans := Fuse(cands, 4200, Config{})
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}

	wantEnds := []int{1500, 3000, 4200}
	for i, s := range spans {
		if i > 0 && s.Start < spans[i-1].Start {
			t.Errorf("spans out of order at %d", i)
		}
		if s.End != wantEnds[i] {
			t.Errorf("span %d end = %d, want %d", i, s.End, wantEnds[i])
		}
		if i+1 < len(spans) && s.End != spans[i+1].Start {
			t.Errorf("gap between span %d and %d", i, i+1)
		}
	}
}

func TestEqualConfidenceTieBreak(t *testing.T) {
	// Same position, same confidence: the fixed source priority decides.
	cands := []section.Candidate{
		{Start: 900, Title: "from patterns", Level: 2, Confidence: 0.8, Source: section.SourcePatternLibrary},
		{Start: 900, Title: "From ToC", Level: 1, Confidence: 0.8, Source: section.SourceTOC},
	}
	spans := Fuse(cands, 2000, Config{})
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Title != "From ToC" || spans[0].Level != 1 {
		t.Errorf("tie broke to %q, want the ToC candidate", spans[0].Title)
	}
}
