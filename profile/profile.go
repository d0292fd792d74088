// Package profile defines named configuration bundles for the structure
// pipeline and the scoring that auto-selects one for an unclassified
// document.
//
// A Profile is immutable once constructed: built-ins are created here,
// custom profiles are loaded from YAML, and nothing mutates them at runtime.
package profile

import (
	"fmt"
	"time"

	"github.com/structura/structura/rawdoc"
	"github.com/structura/structura/section"
)

// GenericName is the fallback profile every selector must contain.
const GenericName = "generic"

// DefaultFloor is the minimum selection score; below it the generic profile
// wins.
const DefaultFloor = 0.4

// Indicator is one declarative scoring rule: when the named document feature
// satisfies the bounds, the indicator contributes Score, otherwise 0.
type Indicator struct {
	// Feature names a rawdoc.Summary field: page_count, block_count,
	// text_len, has_outline, has_contents, font_spread, numbered_ratio.
	Feature string `yaml:"feature"`

	// GT / LT bound the feature value. Zero means unbounded. Boolean
	// features read as 1 or 0.
	GT *float64 `yaml:"gt,omitempty"`
	LT *float64 `yaml:"lt,omitempty"`

	// Score contributed when the bounds hold, in [0,1].
	Score float64 `yaml:"score"`
}

// Eval scores the indicator against a document summary.
func (in Indicator) Eval(s rawdoc.Summary) float64 {
	v, ok := featureValue(in.Feature, s)
	if !ok {
		return 0
	}
	if in.GT != nil && !(v > *in.GT) {
		return 0
	}
	if in.LT != nil && !(v < *in.LT) {
		return 0
	}
	return in.Score
}

func featureValue(name string, s rawdoc.Summary) (float64, bool) {
	switch name {
	case "page_count":
		return float64(s.PageCount), true
	case "block_count":
		return float64(s.BlockCount), true
	case "text_len":
		return float64(s.TextLen), true
	case "has_outline":
		return boolVal(s.HasOutline), true
	case "has_contents":
		return boolVal(s.HasContentsWord), true
	case "font_spread":
		return s.FontSpread, true
	case "numbered_ratio":
		return s.NumberedBlockRatio, true
	default:
		return 0, false
	}
}

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Profile is one immutable configuration bundle.
type Profile struct {
	Name string `yaml:"name"`

	// Sources lists the enabled candidate source names.
	Sources []string `yaml:"sources"`

	// Fusion parameters.
	PositionTolerance int     `yaml:"position_tolerance"`
	MinConfidence     float64 `yaml:"min_confidence"`
	AgreementBonus    float64 `yaml:"agreement_bonus"`

	// Validation parameters.
	MinSectionLen int `yaml:"min_section_len"`

	// MaxHeadingDepth caps estimated heading levels (default 4).
	MaxHeadingDepth int `yaml:"max_heading_depth"`

	// SourceTimeout bounds each candidate source run (default 5s).
	SourceTimeout time.Duration `yaml:"source_timeout"`

	// Indicators drive auto-selection; the profile's selection score is
	// their mean.
	Indicators []Indicator `yaml:"indicators,omitempty"`
}

// Score computes the profile's selection score against a document summary:
// the mean of its indicator scores, 0 when it declares none.
func (p Profile) Score(s rawdoc.Summary) float64 {
	if len(p.Indicators) == 0 {
		return 0
	}
	sum := 0.0
	for _, in := range p.Indicators {
		sum += in.Eval(s)
	}
	return sum / float64(len(p.Indicators))
}

// SourceEnabled reports whether the named source runs under this profile.
func (p Profile) SourceEnabled(name string) bool {
	for _, s := range p.Sources {
		if s == name {
			return true
		}
	}
	return false
}

// Validate checks a profile definition, mainly for YAML-loaded ones.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile: missing name")
	}
	if len(p.Sources) == 0 {
		return fmt.Errorf("profile %q: no sources enabled", p.Name)
	}
	for _, s := range p.Sources {
		switch s {
		case section.SourceOutline, section.SourceTOC, section.SourceHeading, section.SourcePatternLibrary:
		default:
			return fmt.Errorf("profile %q: unknown source %q", p.Name, s)
		}
	}
	for _, in := range p.Indicators {
		if _, ok := featureValue(in.Feature, rawdoc.Summary{}); !ok {
			return fmt.Errorf("profile %q: unknown indicator feature %q", p.Name, in.Feature)
		}
	}
	return nil
}

func gt(v float64) *float64 { return &v }
func lt(v float64) *float64 { return &v }

var allSources = []string{
	section.SourceOutline,
	section.SourceTOC,
	section.SourceHeading,
	section.SourcePatternLibrary,
}

// Builtins returns the built-in profile set. The generic profile comes last
// and carries no indicators: it is only ever chosen via the selection floor.
func Builtins() []Profile {
	return []Profile{
		{
			Name:              "book",
			Sources:           allSources,
			PositionTolerance: 100,
			MinConfidence:     0.5,
			AgreementBonus:    0.1,
			MinSectionLen:     200,
			MaxHeadingDepth:   4,
			SourceTimeout:     5 * time.Second,
			Indicators: []Indicator{
				{Feature: "page_count", GT: gt(50), Score: 0.8},
				{Feature: "has_contents", GT: gt(0), Score: 0.7},
				{Feature: "has_outline", GT: gt(0), Score: 0.6},
				{Feature: "numbered_ratio", GT: gt(0.01), Score: 0.5},
			},
		},
		{
			Name:              "report",
			Sources:           allSources,
			PositionTolerance: 100,
			MinConfidence:     0.5,
			AgreementBonus:    0.1,
			MinSectionLen:     150,
			MaxHeadingDepth:   4,
			SourceTimeout:     5 * time.Second,
			Indicators: []Indicator{
				{Feature: "numbered_ratio", GT: gt(0.08), Score: 0.8},
				{Feature: "has_contents", GT: gt(0), Score: 0.6},
				{Feature: "page_count", GT: gt(15), LT: lt(120), Score: 0.5},
			},
		},
		{
			Name:              "article",
			Sources:           []string{section.SourceOutline, section.SourceHeading, section.SourcePatternLibrary},
			PositionTolerance: 80,
			MinConfidence:     0.6,
			AgreementBonus:    0.1,
			MinSectionLen:     100,
			MaxHeadingDepth:   3,
			SourceTimeout:     5 * time.Second,
			Indicators: []Indicator{
				{Feature: "page_count", LT: lt(30), Score: 0.7},
				{Feature: "numbered_ratio", GT: gt(0.04), Score: 0.6},
				{Feature: "font_spread", GT: gt(1.1), Score: 0.4},
			},
		},
		{
			Name:              "essay",
			Sources:           []string{section.SourceHeading, section.SourcePatternLibrary},
			PositionTolerance: 80,
			MinConfidence:     0.6,
			AgreementBonus:    0.1,
			MinSectionLen:     100,
			MaxHeadingDepth:   2,
			SourceTimeout:     5 * time.Second,
			Indicators: []Indicator{
				{Feature: "page_count", LT: lt(15), Score: 0.7},
				{Feature: "font_spread", LT: lt(1.15), Score: 0.5},
				{Feature: "numbered_ratio", LT: lt(0.01), Score: 0.5},
			},
		},
		Generic(),
	}
}

// Generic returns the fallback profile.
func Generic() Profile {
	return Profile{
		Name:              GenericName,
		Sources:           allSources,
		PositionTolerance: 100,
		MinConfidence:     0.5,
		AgreementBonus:    0.1,
		MinSectionLen:     100,
		MaxHeadingDepth:   4,
		SourceTimeout:     5 * time.Second,
	}
}

// Select picks the highest-scoring profile for the document summary, falling
// back to generic when the best score misses the floor (or when no profile
// named generic exists, to the first profile). Selection is a pure function
// and never fails.
func Select(s rawdoc.Summary, profiles []Profile, floor float64) Profile {
	if floor <= 0 {
		floor = DefaultFloor
	}
	var generic *Profile
	var best *Profile
	bestScore := -1.0
	for i := range profiles {
		p := &profiles[i]
		if p.Name == GenericName {
			generic = p
		}
		if score := p.Score(s); score > bestScore {
			bestScore = score
			best = p
		}
	}
	if generic == nil {
		g := Generic()
		generic = &g
	}
	if best == nil || bestScore < floor {
		return *generic
	}
	return *best
}
