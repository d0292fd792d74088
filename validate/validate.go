// Package validate runs consistency checks over a fused span list. Checks
// are independent and composable; every finding is advisory and nothing here
// mutates the spans.
package validate

import (
	"fmt"

	"github.com/structura/structura/section"
)

// Config holds the validation parameters, usually supplied by the active
// profile.
type Config struct {
	// MinSectionLen is the span length, in characters, below which a span
	// is flagged as suspiciously thin (default 100).
	MinSectionLen int
}

func (c *Config) defaults() {
	if c.MinSectionLen <= 0 {
		c.MinSectionLen = 100
	}
}

// Check is one validation rule.
type Check func(spans []section.Span, cfg Config) []section.Issue

// Checks returns the full suite in a fixed order.
func Checks() []Check {
	return []Check{NoOverlap, Hierarchy, MinContent}
}

// Run executes the whole suite.
func Run(spans []section.Span, cfg Config) []section.Issue {
	cfg.defaults()
	var issues []section.Issue
	for _, check := range Checks() {
		issues = append(issues, check(spans, cfg)...)
	}
	return issues
}

// NoOverlap flags adjacent spans whose ranges overlap. Fusion's end-filling
// step makes this impossible for in-order spans, so a finding signals an
// upstream bug.
func NoOverlap(spans []section.Span, _ Config) []section.Issue {
	var issues []section.Issue
	for i := 1; i < len(spans); i++ {
		if spans[i].Start < spans[i-1].End {
			issues = append(issues, section.Issue{
				Type:     section.IssueOverlap,
				Severity: section.SeverityWarning,
				Message: fmt.Sprintf("span %q [%d,%d) overlaps %q [%d,%d)",
					spans[i-1].Title, spans[i-1].Start, spans[i-1].End,
					spans[i].Title, spans[i].Start, spans[i].End),
				Spans: []int{i - 1, i},
			})
		}
	}
	return issues
}

// Hierarchy flags level jumps deeper than one step (a level 1 section
// directly followed by a level 3). Violations are reported, never silently
// corrected.
func Hierarchy(spans []section.Span, _ Config) []section.Issue {
	var issues []section.Issue
	var stack []int // open section levels, strictly increasing
	for i, s := range spans {
		for len(stack) > 0 && stack[len(stack)-1] >= s.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 && s.Level > stack[len(stack)-1]+1 {
			issues = append(issues, section.Issue{
				Type:     section.IssueLevelSkip,
				Severity: section.SeverityWarning,
				Message: fmt.Sprintf("span %q jumps from level %d to %d",
					s.Title, stack[len(stack)-1], s.Level),
				Spans: []int{i},
			})
		}
		stack = append(stack, s.Level)
	}
	return issues
}

// MinContent flags spans shorter than the configured threshold, a common
// symptom of a false-positive heading.
func MinContent(spans []section.Span, cfg Config) []section.Issue {
	var issues []section.Issue
	for i, s := range spans {
		if s.Len() < cfg.MinSectionLen {
			issues = append(issues, section.Issue{
				Type:     section.IssueThinSpan,
				Severity: section.SeverityInfo,
				Message: fmt.Sprintf("span %q holds only %d chars (min %d)",
					s.Title, s.Len(), cfg.MinSectionLen),
				Spans: []int{i},
			})
		}
	}
	return issues
}
