// Package detect implements the candidate sources of the structure pipeline.
//
// Each source proposes section candidates from one independent signal:
// the embedded outline, a parsed table-of-contents page, or statistical
// heading detection over font and position features. Sources are failure
// isolated — returning no candidates is a normal outcome, and the set of
// sources is a closed, explicitly enumerated list so fusion priority stays
// auditable.
package detect

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/structura/structura/rawdoc"
	"github.com/structura/structura/section"
)

// Source proposes section candidates from one signal.
type Source interface {
	// Name returns the source name recorded on emitted candidates.
	Name() string

	// Extract scans the document and proposes candidates. An empty result
	// is not an error. Implementations must honor ctx cancellation.
	Extract(ctx context.Context, doc *rawdoc.Document, res rawdoc.PageResolver) ([]section.Candidate, error)
}

// cleanTitle normalizes a raw title: NFC normalization (PDF strings are
// frequently decomposed), whitespace collapse, and trailing leader-dot trim.
func cleanTitle(s string) string {
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, ". ")
	return s
}
