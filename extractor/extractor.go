// Package extractor wires the structure pipeline together: profile
// selection, concurrent candidate sources, pattern suggestions, fusion and
// validation, returning one Result per document.
//
// Usage:
//
//	eng := extractor.New(extractor.Config{Patterns: lib})
//	res, err := eng.Extract(ctx, doc)
//	fmt.Println(res.Profile, len(res.Spans), res.Confidence)
//
// Extract always returns a Result for a well-formed document, even when that
// result has zero sections and confidence 0; the only hard error is a
// structurally invalid document (rawdoc.ErrInvalidDocument).
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/structura/structura/detect"
	"github.com/structura/structura/fusion"
	"github.com/structura/structura/patterns"
	"github.com/structura/structura/profile"
	"github.com/structura/structura/rawdoc"
	"github.com/structura/structura/section"
	"github.com/structura/structura/validate"
)

// Validation penalties applied to the overall confidence score.
const (
	warningPenalty = 0.1
	infoPenalty    = 0.02
)

// Config holds the engine settings.
type Config struct {
	// Profiles is the selectable profile set (default profile.Builtins()).
	Profiles []profile.Profile

	// SelectionFloor is the minimum auto-selection score before the
	// generic profile wins (default profile.DefaultFloor).
	SelectionFloor float64

	// Patterns is the optional learned pattern library. Nil disables the
	// pattern_library source and Learn.
	Patterns *patterns.Library

	// Resolver overrides the page→offset resolver. Nil uses the document
	// itself.
	Resolver rawdoc.PageResolver

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if len(c.Profiles) == 0 {
		c.Profiles = profile.Builtins()
	}
	if c.SelectionFloor <= 0 {
		c.SelectionFloor = profile.DefaultFloor
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Engine is the per-process extraction orchestrator. It holds no per-call
// state: Extract calls are independent and safe to run concurrently.
type Engine struct {
	cfg Config
}

// New creates an Engine with the given configuration.
func New(cfg Config) *Engine {
	cfg.defaults()
	return &Engine{cfg: cfg}
}

// Extract recovers the document's section structure, auto-selecting a
// profile from document-level features.
func (e *Engine) Extract(ctx context.Context, doc *rawdoc.Document) (*section.Result, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	prof := profile.Select(rawdoc.Summarize(doc), e.cfg.Profiles, e.cfg.SelectionFloor)
	return e.run(ctx, doc, prof)
}

// ExtractWithProfile recovers the structure under an explicitly chosen
// profile, bypassing auto-selection.
func (e *Engine) ExtractWithProfile(ctx context.Context, doc *rawdoc.Document, prof profile.Profile) (*section.Result, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return e.run(ctx, doc, prof)
}

// Learn feeds one human correction to the pattern library and returns the
// new pattern id.
func (e *Engine) Learn(ctx context.Context, c section.Correction) (string, error) {
	if e.cfg.Patterns == nil {
		return "", fmt.Errorf("extractor: no pattern library configured")
	}
	return e.cfg.Patterns.Learn(ctx, c)
}

// sourceRun is one fan-out result.
type sourceRun struct {
	name  string
	cands []section.Candidate
}

func (e *Engine) run(ctx context.Context, doc *rawdoc.Document, prof profile.Profile) (*section.Result, error) {
	logger := e.cfg.Logger
	resolver := e.cfg.Resolver
	if resolver == nil {
		resolver = doc
	}
	timeout := prof.SourceTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sources := e.sources(prof)

	results := make(chan sourceRun, len(sources)+1)
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src detect.Source) {
			defer wg.Done()
			results <- sourceRun{name: src.Name(), cands: e.runSource(ctx, src, doc, resolver, timeout)}
		}(src)
	}
	if e.cfg.Patterns != nil && prof.SourceEnabled(section.SourcePatternLibrary) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			results <- sourceRun{
				name:  section.SourcePatternLibrary,
				cands: e.cfg.Patterns.Suggest(sctx, doc, prof.MaxHeadingDepth),
			}
		}()
	}
	wg.Wait()
	close(results)

	// Join deterministically: channel order depends on scheduling, so
	// gather per source and flatten in priority order before sorting.
	bySource := map[string][]section.Candidate{}
	for r := range results {
		bySource[r.name] = append(bySource[r.name], r.cands...)
	}
	var all []section.Candidate
	for _, name := range []string{section.SourceOutline, section.SourceTOC, section.SourceHeading, section.SourcePatternLibrary} {
		all = append(all, bySource[name]...)
	}
	section.SortCandidates(all)

	spans := fusion.Fuse(all, len(doc.Text), fusion.Config{
		PositionTolerance: prof.PositionTolerance,
		MinConfidence:     prof.MinConfidence,
		AgreementBonus:    prof.AgreementBonus,
		Logger:            logger,
	})
	issues := validate.Run(spans, validate.Config{MinSectionLen: prof.MinSectionLen})

	res := &section.Result{
		Spans:      spans,
		Candidates: all,
		Issues:     issues,
		Profile:    prof.Name,
		Confidence: overallConfidence(spans, issues),
	}

	if e.cfg.Patterns != nil {
		if ids := patternIDs(all); len(ids) > 0 {
			e.cfg.Patterns.RecordUse(ctx, ids)
		}
	}

	logger.Debug("structure extracted",
		"profile", prof.Name, "candidates", len(all), "spans", len(spans),
		"issues", len(issues), "confidence", res.Confidence)
	return res, nil
}

// sources builds the enabled detection sources for a profile. The set is
// closed on purpose: adding a source means extending this list, keeping the
// fusion priority order explicit.
func (e *Engine) sources(prof profile.Profile) []detect.Source {
	var out []detect.Source
	if prof.SourceEnabled(section.SourceOutline) {
		out = append(out, &detect.OutlineSource{Logger: e.cfg.Logger})
	}
	if prof.SourceEnabled(section.SourceTOC) {
		out = append(out, detect.NewTOCSource(detect.TOCConfig{
			MaxLevel: prof.MaxHeadingDepth,
			Logger:   e.cfg.Logger,
		}))
	}
	if prof.SourceEnabled(section.SourceHeading) {
		out = append(out, detect.NewHeadingSource(detect.HeadingConfig{
			MaxDepth: prof.MaxHeadingDepth,
			Logger:   e.cfg.Logger,
		}))
	}
	return out
}

// runSource executes one source with its own timeout, absorbing every
// failure mode: error, timeout, or panic all degrade to zero candidates.
func (e *Engine) runSource(ctx context.Context, src detect.Source, doc *rawdoc.Document, res rawdoc.PageResolver, timeout time.Duration) (cands []section.Candidate) {
	defer func() {
		if r := recover(); r != nil {
			e.cfg.Logger.Warn("candidate source panicked", "source", src.Name(), "panic", r)
			cands = nil
		}
	}()

	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	got, err := src.Extract(sctx, doc, res)
	if err != nil {
		e.cfg.Logger.Warn("candidate source failed", "source", src.Name(), "error", err,
			"elapsed", time.Since(started))
		return nil
	}
	e.cfg.Logger.Debug("candidate source done", "source", src.Name(),
		"candidates", len(got), "elapsed", time.Since(started))
	return got
}

// overallConfidence is the mean span confidence minus validation penalties,
// floored at 0.
func overallConfidence(spans []section.Span, issues []section.Issue) float64 {
	if len(spans) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range spans {
		sum += s.Confidence
	}
	conf := sum / float64(len(spans))
	for _, is := range issues {
		switch is.Severity {
		case section.SeverityWarning:
			conf -= warningPenalty
		case section.SeverityInfo:
			conf -= infoPenalty
		}
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}

func patternIDs(cands []section.Candidate) []string {
	seen := map[string]bool{}
	var ids []string
	for _, c := range cands {
		if c.Source != section.SourcePatternLibrary {
			continue
		}
		if id := c.Evidence["pattern_id"]; id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
