package detect

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/structura/structura/rawdoc"
	"github.com/structura/structura/section"
)

// HeadingConfig tunes statistical heading detection.
type HeadingConfig struct {
	// MinScore is the heading-likelihood floor for emitting a candidate
	// (default 0.5).
	MinScore float64

	// MaxDepth caps the estimated nesting level (default 4).
	MaxDepth int

	// GapThreshold is the preceding vertical whitespace, in page units,
	// counted as a heading signal (default 14).
	GapThreshold float64

	// ShortLineChars is the maximum length of a "short line" (default 80).
	ShortLineChars int

	Logger *slog.Logger
}

func (c *HeadingConfig) defaults() {
	if c.MinScore <= 0 {
		c.MinScore = 0.5
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 4
	}
	if c.GapThreshold <= 0 {
		c.GapThreshold = 14
	}
	if c.ShortLineChars <= 0 {
		c.ShortLineChars = 80
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Signal weights. The weighted sum is bounded by construction: font
// deviation contributes at most 0.4, the boolean signals 0.6 together.
const (
	weightFontDev   = 0.4
	weightBold      = 0.2
	weightGap       = 0.15
	weightShortLine = 0.15
	weightCaseShape = 0.10

	// fontDevCap caps the font deviation, in median-absolute-deviation
	// units, so a single huge display size cannot dominate.
	fontDevCap = 3.0
)

// HeadingSource detects headings as statistical outliers over layout
// features. It is the fallback available for every document: it never fails,
// but on uniformly formatted text it produces low scores that fusion rejects
// via its confidence floor.
type HeadingSource struct {
	cfg HeadingConfig
}

// NewHeadingSource creates a HeadingSource with the given configuration.
func NewHeadingSource(cfg HeadingConfig) *HeadingSource {
	cfg.defaults()
	return &HeadingSource{cfg: cfg}
}

// Name implements Source.
func (s *HeadingSource) Name() string { return section.SourceHeading }

// Extract scores every block and emits candidates above the score floor.
func (s *HeadingSource) Extract(ctx context.Context, doc *rawdoc.Document, _ rawdoc.PageResolver) ([]section.Candidate, error) {
	blocks := doc.Blocks()
	median, mad := fontStats(blocks)
	levels := levelTable(blocks, median, s.cfg.MaxDepth)

	var cands []section.Candidate
	var prev *rawdoc.Block
	prevPage := 0
	for i := range blocks {
		if err := ctx.Err(); err != nil {
			return cands, err
		}
		b := &blocks[i]
		if strings.TrimSpace(b.Text) == "" {
			continue
		}
		if b.Page != prevPage {
			prev = nil
			prevPage = b.Page
		}

		score, ev := s.scoreBlock(b, prev, median, mad)
		prev = b
		if score < s.cfg.MinScore {
			continue
		}

		cands = append(cands, section.Candidate{
			Start:      b.Start,
			Title:      cleanTitle(b.Text),
			Level:      levelFor(levels, b.FontSize),
			Confidence: score,
			Source:     section.SourceHeading,
			Evidence:   ev,
		})
	}
	return cands, nil
}

// scoreBlock computes the heading likelihood of one block.
func (s *HeadingSource) scoreBlock(b, prev *rawdoc.Block, median, mad float64) (float64, section.Evidence) {
	ev := section.Evidence{}
	score := 0.0

	if b.FontSize > 0 && median > 0 {
		dev := (b.FontSize - median) / mad
		if dev > fontDevCap {
			dev = fontDevCap
		}
		if dev > 0 {
			score += weightFontDev * dev / fontDevCap
		}
		ev["font_size"] = fmt.Sprintf("%.1f", b.FontSize)
	}
	if b.Bold {
		score += weightBold
		ev["bold"] = "true"
	}
	if prev != nil && b.Y > 0 && b.Y-(prev.Y+prev.Height) > s.cfg.GapThreshold {
		score += weightGap
		ev["gap_before"] = fmt.Sprintf("%.1f", b.Y-(prev.Y+prev.Height))
	}
	line := strings.TrimSpace(b.Text)
	if len(line) <= s.cfg.ShortLineChars && !strings.Contains(line, "\n") {
		score += weightShortLine
	}
	if isTitleCase(line) || isAllCaps(line) {
		score += weightCaseShape
	}
	if score > 1 {
		score = 1
	}
	return score, ev
}

// fontStats returns the median font size and the median absolute deviation
// over blocks carrying font data. mad is floored so uniform documents do not
// divide by zero.
func fontStats(blocks []rawdoc.Block) (median, mad float64) {
	var sizes []float64
	for _, b := range blocks {
		if b.FontSize > 0 {
			sizes = append(sizes, b.FontSize)
		}
	}
	if len(sizes) == 0 {
		return 0, 1
	}
	sort.Float64s(sizes)
	median = sizes[len(sizes)/2]

	devs := make([]float64, len(sizes))
	for i, v := range sizes {
		devs[i] = math.Abs(v - median)
	}
	sort.Float64s(devs)
	mad = devs[len(devs)/2]
	if mad < 0.5 {
		mad = 0.5
	}
	return median, mad
}

// levelTable ranks the distinct above-median font sizes descending; the
// largest size maps to level 1, capped at maxDepth.
func levelTable(blocks []rawdoc.Block, median float64, maxDepth int) map[float64]int {
	seen := map[float64]bool{}
	var sizes []float64
	for _, b := range blocks {
		if b.FontSize > median && !seen[b.FontSize] {
			seen[b.FontSize] = true
			sizes = append(sizes, b.FontSize)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))

	table := make(map[float64]int, len(sizes))
	for i, size := range sizes {
		level := i + 1
		if level > maxDepth {
			level = maxDepth
		}
		table[size] = level
	}
	return table
}

func levelFor(table map[float64]int, size float64) int {
	if lvl, ok := table[size]; ok {
		return lvl
	}
	return 1
}

// isAllCaps reports whether text is essentially all uppercase letters.
func isAllCaps(text string) bool {
	upper, lower := 0, 0
	for _, r := range text {
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsLower(r):
			lower++
		}
	}
	if upper+lower < 3 {
		return false
	}
	return lower == 0 || float64(upper)/float64(upper+lower) > 0.9
}

// isTitleCase reports whether most words start with an uppercase letter.
func isTitleCase(text string) bool {
	words := strings.Fields(text)
	if len(words) == 0 || len(words) > 12 {
		return false
	}
	capped := 0
	for _, w := range words {
		r := []rune(w)[0]
		if unicode.IsUpper(r) || unicode.IsDigit(r) {
			capped++
		}
	}
	return float64(capped)/float64(len(words)) >= 0.7
}
