// Package section defines the shared vocabulary of the structure pipeline:
// candidates proposed by detection sources, the fused spans of the final
// structure, advisory validation issues, and human corrections.
package section

import (
	"sort"
	"time"
)

// Source names, in fusion priority order. The priority is part of the
// contract: when sources disagree inside one cluster the higher-priority
// source supplies title and level.
const (
	SourceOutline        = "pdf_outline"
	SourceTOC            = "toc_parser"
	SourceHeading        = "heading_detection"
	SourcePatternLibrary = "pattern_library"
)

// sourceRank orders sources for representative selection; lower wins.
var sourceRank = map[string]int{
	SourceOutline:        0,
	SourceTOC:            1,
	SourceHeading:        2,
	SourcePatternLibrary: 3,
}

// SourceRank returns the fusion priority of a source name; unknown sources
// rank last.
func SourceRank(name string) int {
	if r, ok := sourceRank[name]; ok {
		return r
	}
	return len(sourceRank)
}

// Evidence is a free-form record of source-specific supporting facts
// (observed font size, the raw ToC line, the matched pattern id).
type Evidence map[string]string

// Candidate is one source's unconfirmed proposal for a section boundary.
// Candidates are built fresh each run and never mutated after creation.
type Candidate struct {
	Start      int      `json:"start"`      // offset into the flattened text
	Title      string   `json:"title"`
	Level      int      `json:"level"`      // 1 = top
	Confidence float64  `json:"confidence"` // in [0,1]
	Source     string   `json:"source"`
	Evidence   Evidence `json:"evidence,omitempty"`
}

// Span is a finalized section with a concrete text range. End is exclusive
// and filled in by fusion from the next span's start (document end for the
// last span).
type Span struct {
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Title      string   `json:"title"`
	Level      int      `json:"level"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources"`
}

// Len returns the character length of the span.
func (s Span) Len() int { return s.End - s.Start }

// Severity of a validation issue. Issues are always advisory.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Issue types produced by the validation suite.
const (
	IssueOverlap   = "overlap"
	IssueLevelSkip = "level_skip"
	IssueThinSpan  = "thin_span"
)

// Issue is a detected inconsistency in the fused structure. It never blocks
// or alters the result.
type Issue struct {
	Type     string   `json:"type"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Spans    []int    `json:"spans,omitempty"` // indexes into Result.Spans
}

// Result is the complete output of one extraction run.
type Result struct {
	Spans      []Span      `json:"spans"`
	Candidates []Candidate `json:"candidates"` // pre-fusion, for audit
	Issues     []Issue     `json:"issues,omitempty"`
	Profile    string      `json:"profile"`

	// Confidence is the mean span confidence minus validation penalties
	// (0.1 per warning, 0.02 per info), floored at 0.
	Confidence float64 `json:"confidence"`
}

// CorrectionKind distinguishes the two report shapes a reviewer can file.
type CorrectionKind string

const (
	CorrectionMissing       CorrectionKind = "missing_section"
	CorrectionFalsePositive CorrectionKind = "false_positive"
)

// Correction is a human report about one extraction outcome, fed to the
// pattern library's learning step.
type Correction struct {
	ID       string         `json:"id,omitempty"`
	Kind     CorrectionKind `json:"kind"`
	Title    string         `json:"title"`
	Level    int            `json:"level"`
	Start    int            `json:"start"`
	End      int            `json:"end,omitempty"`
	Evidence Evidence       `json:"evidence,omitempty"`
	Note     string         `json:"note,omitempty"`
	Filed    time.Time      `json:"filed,omitempty"`
}

// SortCandidates orders candidates deterministically: by start, then fusion
// priority, then descending confidence, then title.
func SortCandidates(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if ra, rb := SourceRank(a.Source), SourceRank(b.Source); ra != rb {
			return ra < rb
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Title < b.Title
	})
}

// SortSpans orders spans by start position.
func SortSpans(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Start < spans[j].Start
	})
}
