// Package fusion merges candidates from all sources into ordered,
// non-overlapping section spans.
//
// No single source is reliable in isolation, so fusion deliberately rewards
// agreement between independent sources over any single source's raw score:
// a cluster of concurring candidates earns a bonus on top of its best
// member's confidence.
package fusion

import (
	"log/slog"
	"math"
	"sort"

	"github.com/structura/structura/section"
)

// Config holds the fusion parameters, usually supplied by the active
// profile.
type Config struct {
	// PositionTolerance is the maximum start-position distance, in
	// characters, between candidates of one cluster (default 100).
	PositionTolerance int

	// MinConfidence is the combined-confidence floor below which a
	// cluster is discarded (default 0.5).
	MinConfidence float64

	// AgreementBonus is added per additional agreeing source (default
	// 0.1), capped so combined confidence never exceeds 1.
	AgreementBonus float64

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.PositionTolerance <= 0 {
		c.PositionTolerance = 100
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = 0.5
	}
	if c.AgreementBonus <= 0 {
		c.AgreementBonus = 0.1
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Fuse clusters candidates by position, resolves each cluster to at most one
// span, and fills span ends from the next span's start (docLen for the
// last). The input slice is not modified.
func Fuse(cands []section.Candidate, docLen int, cfg Config) []section.Span {
	cfg.defaults()
	if len(cands) == 0 {
		return nil
	}

	sorted := make([]section.Candidate, len(cands))
	copy(sorted, cands)
	section.SortCandidates(sorted)

	var spans []section.Span
	cluster := []section.Candidate{sorted[0]}
	for _, c := range sorted[1:] {
		if c.Start-cluster[len(cluster)-1].Start <= cfg.PositionTolerance {
			cluster = append(cluster, c)
			continue
		}
		if span, ok := resolve(cluster, cfg); ok {
			spans = append(spans, span)
		}
		cluster = []section.Candidate{c}
	}
	if span, ok := resolve(cluster, cfg); ok {
		spans = append(spans, span)
	}

	section.SortSpans(spans)
	for i := range spans {
		if i+1 < len(spans) {
			spans[i].End = spans[i+1].Start
		} else {
			spans[i].End = docLen
		}
	}
	return spans
}

// resolve turns one cluster into a span, or discards it when its combined
// confidence misses the floor.
func resolve(cluster []section.Candidate, cfg Config) (section.Span, bool) {
	// Representative: fixed source priority, then highest confidence,
	// then earliest position. SortCandidates already ordered the cluster
	// by position; re-rank for priority.
	rep := cluster[0]
	maxConf := cluster[0].Confidence
	for _, c := range cluster[1:] {
		if c.Confidence > maxConf {
			maxConf = c.Confidence
		}
		if better(c, rep) {
			rep = c
		}
	}

	// Distinct agreeing sources, in priority order.
	seen := map[string]bool{}
	var sources []string
	for _, c := range cluster {
		if !seen[c.Source] {
			seen[c.Source] = true
			sources = append(sources, c.Source)
		}
	}
	sort.Slice(sources, func(i, j int) bool {
		return section.SourceRank(sources[i]) < section.SourceRank(sources[j])
	})

	conf := maxConf + cfg.AgreementBonus*float64(len(sources)-1)
	if conf > 1 {
		conf = 1
	}
	if conf < cfg.MinConfidence {
		cfg.Logger.Debug("discarding cluster below confidence floor",
			"title", rep.Title, "confidence", conf, "members", len(cluster))
		return section.Span{}, false
	}

	// Position: confidence-weighted average of member starts.
	var wsum, psum float64
	for _, c := range cluster {
		wsum += c.Confidence
		psum += c.Confidence * float64(c.Start)
	}
	start := rep.Start
	if wsum > 0 {
		start = int(math.Round(psum / wsum))
	}

	return section.Span{
		Start:      start,
		Title:      rep.Title,
		Level:      rep.Level,
		Confidence: conf,
		Sources:    sources,
	}, true
}

// better reports whether a beats b as cluster representative.
func better(a, b section.Candidate) bool {
	if ra, rb := section.SourceRank(a.Source), section.SourceRank(b.Source); ra != rb {
		return ra < rb
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.Start < b.Start
}
