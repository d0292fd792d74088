package rawdoc

import (
	"regexp"
	"sort"
	"strings"
)

// Summary holds the coarse document features profile selection scores
// against. Computing it is cheap enough to do once per extraction.
type Summary struct {
	PageCount  int
	BlockCount int
	TextLen    int
	HasOutline bool

	// HasContentsWord reports whether one of the first pages contains a
	// line that is just a contents heading ("Contents", "Table of
	// Contents", "Sommaire").
	HasContentsWord bool

	// MedianFontSize is the median block font size, 0 when the producer
	// supplied no font data.
	MedianFontSize float64

	// FontSpread is max font size divided by the median, 1 for uniform
	// formatting, 0 when unknown.
	FontSpread float64

	// NumberedBlockRatio is the fraction of blocks starting with a
	// section-numbering pattern ("3.", "2.4", "Chapter 7").
	NumberedBlockRatio float64
}

var (
	contentsLineRe = regexp.MustCompile(`(?i)^\s*(table\s+of\s+contents|contents|sommaire|table\s+des\s+mati[eè]res)\s*$`)
	numberedRe     = regexp.MustCompile(`(?i)^\s*((chapter|section|part|chapitre|partie)\s+\d+|\d+(\.\d+)*[.)]?\s+\S)`)
)

// contentsScanPages bounds how deep Summarize looks for a contents heading.
const contentsScanPages = 15

// Summarize computes document-level features.
func Summarize(d *Document) Summary {
	s := Summary{
		PageCount:  len(d.Pages),
		TextLen:    len(d.Text),
		HasOutline: len(d.Outline) > 0,
	}

	var sizes []float64
	numbered := 0
	for pi, p := range d.Pages {
		for _, b := range p.Blocks {
			s.BlockCount++
			if b.FontSize > 0 {
				sizes = append(sizes, b.FontSize)
			}
			if numberedRe.MatchString(b.Text) {
				numbered++
			}
			if pi < contentsScanPages && !s.HasContentsWord {
				for _, line := range strings.Split(b.Text, "\n") {
					if contentsLineRe.MatchString(line) {
						s.HasContentsWord = true
						break
					}
				}
			}
		}
	}
	if s.BlockCount > 0 {
		s.NumberedBlockRatio = float64(numbered) / float64(s.BlockCount)
	}
	if len(sizes) > 0 {
		sort.Float64s(sizes)
		s.MedianFontSize = sizes[len(sizes)/2]
		if s.MedianFontSize > 0 {
			s.FontSpread = sizes[len(sizes)-1] / s.MedianFontSize
		}
	}
	return s
}
