package patterns

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Title shapes generalize a concrete heading into a reusable rule:
// digit runs become the <n> wildcard and roman numerals the <r> wildcard, so
// "Chapter 12" and "Chapter 3" share the shape "chapter <n>". Shapes are
// matched case-insensitively against whole block lines.

var (
	digitRunRe = regexp.MustCompile(`\d+`)
	romanRe    = regexp.MustCompile(`\b[IVXLCDM]{1,7}\b`)
	spaceRunRe = regexp.MustCompile(`\s+`)
)

// Shape abstracts a title into its generalized form.
func Shape(title string) string {
	s := norm.NFC.String(title)
	s = strings.TrimSpace(s)
	s = digitRunRe.ReplaceAllString(s, "<n>")
	s = romanRe.ReplaceAllString(s, "<r>")
	s = spaceRunRe.ReplaceAllString(s, " ")
	return strings.ToLower(s)
}

// compileShape turns a shape into a full-line, case-insensitive regexp.
func compileShape(shape string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString(`(?i)^\s*`)
	rest := shape
	for rest != "" {
		switch {
		case strings.HasPrefix(rest, "<n>"):
			sb.WriteString(`\d+`)
			rest = rest[3:]
		case strings.HasPrefix(rest, "<r>"):
			sb.WriteString(`[ivxlcdm]{1,7}`)
			rest = rest[3:]
		case rest[0] == ' ':
			sb.WriteString(`\s+`)
			rest = rest[1:]
		default:
			sb.WriteString(regexp.QuoteMeta(rest[:1]))
			rest = rest[1:]
		}
	}
	sb.WriteString(`\s*$`)
	return regexp.Compile(sb.String())
}
