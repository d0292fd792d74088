package detect

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/structura/structura/rawdoc"
	"github.com/structura/structura/section"
)

// tocConfidence is fixed moderate: line parsing misfires more often than an
// authored outline does.
const tocConfidence = 0.85

// TOCConfig tunes contents-page detection and parsing.
type TOCConfig struct {
	// ScanPages bounds how many leading pages stage A scores (default 20).
	ScanPages int

	// PageThreshold is the minimum contents-page likelihood to accept a
	// page for parsing (default 0.7).
	PageThreshold float64

	// MaxLevel caps the level inferred from indentation (default 4).
	MaxLevel int

	Logger *slog.Logger
}

func (c *TOCConfig) defaults() {
	if c.ScanPages <= 0 {
		c.ScanPages = 20
	}
	if c.PageThreshold <= 0 {
		c.PageThreshold = 0.7
	}
	if c.MaxLevel <= 0 {
		c.MaxLevel = 4
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// TOCSource parses a table-of-contents page into candidates. Stage A scores
// leading pages for contents-likeness; stage B parses accepted pages into
// (title, level, page label) tuples and resolves the labels to offsets.
type TOCSource struct {
	cfg TOCConfig
}

// NewTOCSource creates a TOCSource with the given configuration.
func NewTOCSource(cfg TOCConfig) *TOCSource {
	cfg.defaults()
	return &TOCSource{cfg: cfg}
}

// Name implements Source.
func (s *TOCSource) Name() string { return section.SourceTOC }

var (
	dottedLeaderRe = regexp.MustCompile(`\.{3,}`)
	pageLabelRe    = regexp.MustCompile(`(\d{1,4}|[ivxlcdm]{1,7})\s*$`)

	// tocLineRe captures "title .... 23" style lines; the title group is
	// lazy so trailing leader dots stay out of it.
	tocLineRe = regexp.MustCompile(`^(\s*)(.+?)[.\s]*(\.{2,}|\s{2,})\s*(\d{1,4}|[ivxlcdm]{1,7})\s*$`)
)

// Extract runs both stages. Returning nothing is common: articles and
// essays rarely carry a contents page.
func (s *TOCSource) Extract(ctx context.Context, doc *rawdoc.Document, res rawdoc.PageResolver) ([]section.Candidate, error) {
	var cands []section.Candidate
	limit := s.cfg.ScanPages
	if limit > len(doc.Pages) {
		limit = len(doc.Pages)
	}
	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			return cands, err
		}
		page := doc.Pages[i]
		text := pageText(page)
		score := s.scorePage(text)
		if score < s.cfg.PageThreshold {
			continue
		}
		s.cfg.Logger.Debug("contents page accepted", "page", page.Number, "score", score)
		cands = append(cands, s.parsePage(text, res)...)
	}
	return cands, nil
}

func pageText(p rawdoc.Page) string {
	var sb strings.Builder
	for _, b := range p.Blocks {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(b.Text)
	}
	return sb.String()
}

// scorePage computes the contents-page likelihood of one page as a weighted
// sum of independent indicators.
func (s *TOCSource) scorePage(text string) float64 {
	lines := nonEmptyLines(text)
	if len(lines) < 3 {
		return 0
	}

	score := 0.0

	// Indicator: an explicit contents heading.
	for _, line := range lines {
		if contentsHeadingRe.MatchString(line) {
			score += 0.35
			break
		}
	}

	// Indicator: dotted leader lines.
	dotted := 0
	trailing := 0
	indents := map[int]bool{}
	for _, line := range lines {
		if dottedLeaderRe.MatchString(line) {
			dotted++
		}
		if pageLabelRe.MatchString(line) && len(strings.Fields(line)) > 1 {
			trailing++
		}
		indents[leadingSpaces(line)] = true
	}
	if ratio := float64(dotted) / float64(len(lines)); ratio > 0.3 {
		score += 0.25
	} else if ratio > 0.1 {
		score += 0.15
	}

	// Indicator: page-number-like tokens at line ends.
	if ratio := float64(trailing) / float64(len(lines)); ratio > 0.5 {
		score += 0.25
	} else if ratio > 0.25 {
		score += 0.15
	}

	// Indicator: hierarchical indentation.
	if len(indents) >= 2 {
		score += 0.15
	}
	return score
}

var contentsHeadingRe = regexp.MustCompile(`(?i)^\s*(table\s+of\s+contents|contents|sommaire|table\s+des\s+mati[eè]res)\s*$`)

// parsePage splits contents lines into candidates, resolving page labels to
// text offsets. Unresolvable entries are dropped, not candidates.
func (s *TOCSource) parsePage(text string, res rawdoc.PageResolver) []section.Candidate {
	var cands []section.Candidate
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" || contentsHeadingRe.MatchString(line) {
			continue
		}
		m := tocLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		title := cleanTitle(m[2])
		label := strings.ToLower(m[4])
		if title == "" {
			continue
		}
		off, ok := res.OffsetForLabel(label)
		if !ok {
			s.cfg.Logger.Debug("dropping unresolvable toc entry", "title", title, "label", label)
			continue
		}
		level := leadingSpaces(m[1])/2 + 1
		if level > s.cfg.MaxLevel {
			level = s.cfg.MaxLevel
		}
		cands = append(cands, section.Candidate{
			Start:      off,
			Title:      title,
			Level:      level,
			Confidence: tocConfidence,
			Source:     section.SourceTOC,
			Evidence: section.Evidence{
				"toc_line":   strings.TrimSpace(line),
				"page_label": label,
			},
		})
	}
	return cands
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func leadingSpaces(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}
