// Package patterns implements the learned pattern library: generalized
// heading rules derived from human corrections, persisted in SQLite and
// replayed on later documents as an additional candidate source.
//
// The library is the single writer of its store. Extraction runs read an
// immutable snapshot, so a concurrent learning step can never alter results
// mid-extraction; match/success counters are advisory telemetry and never
// feed back into scoring automatically.
package patterns

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/structura/structura/rawdoc"
	"github.com/structura/structura/section"
)

// learnedConfidence is the starting confidence of a freshly derived pattern.
const learnedConfidence = 0.7

// Pattern is one generalized rule derived from a single human correction.
type Pattern struct {
	ID    string `json:"id"`
	Shape string `json:"shape"` // see Shape()
	Level int    `json:"level"`

	// Formatting hints carried over from the correction's evidence.
	MinFontSize float64 `json:"min_font_size,omitempty"`
	Bold        bool    `json:"bold,omitempty"`

	// Suppress marks a rule learned from a false-positive report: blocks
	// matching it are withheld from suggestions instead of proposed.
	Suppress bool `json:"suppress,omitempty"`

	Confidence   float64   `json:"confidence"`
	CorrectionID string    `json:"correction_id,omitempty"`
	Created      time.Time `json:"created"`

	// Advisory usage counters.
	Matches   int64 `json:"matches"`
	Successes int64 `json:"successes"`
}

// Snapshot is an immutable view of the pattern set at one store version.
type Snapshot struct {
	Version  int64
	Patterns []Pattern
}

// Config holds the settings needed to create a Library.
type Config struct {
	// DB is the pattern store handle (see dbopen). Required.
	DB *sql.DB

	// RegexCacheSize bounds the compiled-shape cache (default 256).
	RegexCacheSize int

	Logger *slog.Logger
}

// Library owns the persisted pattern set: extraction calls are read-only
// consumers of its snapshot, the learning step is its sole producer.
type Library struct {
	store  *store
	logger *slog.Logger

	mu   sync.RWMutex
	snap *Snapshot

	regexps *lru.Cache[string, *regexp.Regexp]
}

// New creates a Library, applies the store schema and loads the current
// snapshot. An unreadable snapshot is not fatal: the library starts empty
// and logs the failure, matching the rest of the pipeline's
// degrade-don't-abort posture.
func New(cfg Config) (*Library, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("patterns: DB is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RegexCacheSize <= 0 {
		cfg.RegexCacheSize = 256
	}

	st, err := newStore(cfg.DB)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[string, *regexp.Regexp](cfg.RegexCacheSize)
	if err != nil {
		return nil, fmt.Errorf("patterns cache: %w", err)
	}

	l := &Library{
		store:   st,
		logger:  cfg.Logger,
		regexps: cache,
	}
	snap, err := st.load(context.Background())
	if err != nil {
		cfg.Logger.Warn("pattern snapshot unreadable, starting empty", "error", err)
		snap = &Snapshot{}
	}
	l.snap = snap
	return l, nil
}

// Snapshot returns the current immutable pattern snapshot.
func (l *Library) Snapshot() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// Learn derives a pattern from one human correction, persists it, and
// returns the new pattern id. Writes serialize on the library's writer lock;
// a persistence failure is reported to the caller and leaves the in-memory
// snapshot untouched.
func (l *Library) Learn(ctx context.Context, c section.Correction) (string, error) {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return "", fmt.Errorf("patterns: correction has no title")
	}
	switch c.Kind {
	case section.CorrectionMissing, section.CorrectionFalsePositive:
	default:
		return "", fmt.Errorf("patterns: unknown correction kind %q", c.Kind)
	}

	p := Pattern{
		ID:           "pat_" + uuid.NewString(),
		Shape:        Shape(title),
		Level:        c.Level,
		Suppress:     c.Kind == section.CorrectionFalsePositive,
		Confidence:   learnedConfidence,
		CorrectionID: c.ID,
		Created:      time.Now().UTC(),
	}
	if p.Level < 1 {
		p.Level = 1
	}
	if v, ok := c.Evidence["font_size"]; ok {
		if size, err := strconv.ParseFloat(v, 64); err == nil {
			p.MinFontSize = size
		}
	}
	if c.Evidence["bold"] == "true" {
		p.Bold = true
	}
	if _, err := compileShape(p.Shape); err != nil {
		return "", fmt.Errorf("patterns: unusable shape %q: %w", p.Shape, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.insert(ctx, p); err != nil {
		return "", err
	}
	snap, err := l.store.load(ctx)
	if err != nil {
		// The insert committed; only the reload failed. Patch the old
		// snapshot rather than losing the new pattern.
		l.logger.Warn("pattern snapshot reload failed after learn", "error", err)
		patched := &Snapshot{Version: l.snap.Version + 1}
		patched.Patterns = append(patched.Patterns, l.snap.Patterns...)
		patched.Patterns = append(patched.Patterns, p)
		snap = patched
	}
	l.snap = snap
	return p.ID, nil
}

// Suggest scans the document's blocks against the snapshot and emits
// candidates shaped like a detection source's, tagged pattern_library.
// maxDepth caps suggested levels; pass the active profile's value.
func (l *Library) Suggest(ctx context.Context, doc *rawdoc.Document, maxDepth int) []section.Candidate {
	snap := l.Snapshot()
	if len(snap.Patterns) == 0 {
		return nil
	}
	if maxDepth <= 0 {
		maxDepth = 4
	}

	var suppress []*regexp.Regexp
	for _, p := range snap.Patterns {
		if p.Suppress {
			if re := l.compiled(p.Shape); re != nil {
				suppress = append(suppress, re)
			}
		}
	}

	// Best suggestion per block start, deterministic: patterns iterate in
	// snapshot (creation) order, later ones only replace on strictly
	// higher confidence.
	best := map[int]section.Candidate{}
	var starts []int
	for _, b := range doc.Blocks() {
		if ctx.Err() != nil {
			return nil
		}
		text := strings.TrimSpace(b.Text)
		if text == "" || strings.Contains(text, "\n") {
			continue
		}
		if matchesAny(suppress, text) {
			continue
		}
		for _, p := range snap.Patterns {
			if p.Suppress {
				continue
			}
			re := l.compiled(p.Shape)
			if re == nil || !re.MatchString(text) {
				continue
			}
			cand := l.candidate(p, b, text, maxDepth)
			if cur, ok := best[b.Start]; ok {
				if cand.Confidence > cur.Confidence {
					best[b.Start] = cand
				}
			} else {
				best[b.Start] = cand
				starts = append(starts, b.Start)
			}
		}
	}

	var cands []section.Candidate
	for _, start := range starts {
		cands = append(cands, best[start])
	}
	section.SortCandidates(cands)
	return cands
}

// candidate scores one pattern match against the block's formatting. Hints
// that agree raise nothing (the stored confidence already reflects the
// correction); hints that disagree discount it.
func (l *Library) candidate(p Pattern, b rawdoc.Block, text string, maxDepth int) section.Candidate {
	conf := p.Confidence
	if p.MinFontSize > 0 && b.FontSize > 0 && b.FontSize < p.MinFontSize {
		conf *= 0.7
	}
	if p.Bold && !b.Bold {
		conf *= 0.8
	}

	level := p.Level
	if level > maxDepth {
		level = maxDepth
	}
	return section.Candidate{
		Start:      b.Start,
		Title:      text,
		Level:      level,
		Confidence: conf,
		Source:     section.SourcePatternLibrary,
		Evidence: section.Evidence{
			"pattern_id": p.ID,
			"shape":      p.Shape,
		},
	}
}

// RecordUse bumps the advisory match counters for the given pattern ids
// (taken from suggestion evidence). Failures are logged, never propagated:
// telemetry must not break extraction.
func (l *Library) RecordUse(ctx context.Context, ids []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.recordMatches(ctx, ids); err != nil {
		l.logger.Warn("pattern match counters not recorded", "error", err)
	}
}

// RecordSuccess bumps one pattern's success counter, e.g. when a reviewer
// confirms a suggested section.
func (l *Library) RecordSuccess(ctx context.Context, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.recordSuccess(ctx, id); err != nil {
		l.logger.Warn("pattern success counter not recorded", "error", err, "pattern", id)
	}
}

func (l *Library) compiled(shape string) *regexp.Regexp {
	if re, ok := l.regexps.Get(shape); ok {
		return re
	}
	re, err := compileShape(shape)
	if err != nil {
		l.logger.Warn("pattern shape does not compile", "shape", shape, "error", err)
		return nil
	}
	l.regexps.Add(shape, re)
	return re
}

func matchesAny(res []*regexp.Regexp, text string) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
