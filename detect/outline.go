package detect

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/structura/structura/rawdoc"
	"github.com/structura/structura/section"
)

// outlineConfidence reflects that embedded outlines are author/publisher
// authored: the most trustworthy signal when present.
const outlineConfidence = 0.95

// OutlineSource turns embedded outline entries into candidates. Most
// documents have no outline; the empty result is the expected path.
type OutlineSource struct {
	Logger *slog.Logger
}

// Name implements Source.
func (s *OutlineSource) Name() string { return section.SourceOutline }

// Extract maps each outline entry's target page to a text offset. A
// malformed entry is skipped and logged, never fatal to the rest.
func (s *OutlineSource) Extract(ctx context.Context, doc *rawdoc.Document, res rawdoc.PageResolver) ([]section.Candidate, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cands []section.Candidate
	for _, e := range doc.Outline {
		if err := ctx.Err(); err != nil {
			return cands, err
		}
		title := cleanTitle(e.Title)
		if title == "" || e.Level < 1 {
			logger.Debug("skipping malformed outline entry", "title", e.Title, "level", e.Level)
			continue
		}
		off, ok := res.OffsetForPage(e.Page)
		if !ok {
			logger.Debug("outline entry targets unresolvable page", "title", title, "page", e.Page)
			continue
		}
		cands = append(cands, section.Candidate{
			Start:      off,
			Title:      title,
			Level:      e.Level,
			Confidence: outlineConfidence,
			Source:     section.SourceOutline,
			Evidence: section.Evidence{
				"outline_page": strconv.Itoa(e.Page),
			},
		})
	}
	return cands, nil
}
