package extractor

import (
	"context"
	"sync"

	"github.com/structura/structura/rawdoc"
	"github.com/structura/structura/section"
)

// BatchResult pairs one batch document with its outcome.
type BatchResult struct {
	Index  int
	Result *section.Result
	Err    error
}

// ExtractBatch processes documents with a bounded worker pool. Each
// extraction is independent and holds no locks; results come back indexed in
// input order. workers <= 0 defaults to 4.
func (e *Engine) ExtractBatch(ctx context.Context, docs []*rawdoc.Document, workers int) []BatchResult {
	if workers <= 0 {
		workers = 4
	}

	out := make([]BatchResult, len(docs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, doc := range docs {
		wg.Add(1)
		go func(i int, doc *rawdoc.Document) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				out[i] = BatchResult{Index: i, Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			res, err := e.Extract(ctx, doc)
			out[i] = BatchResult{Index: i, Result: res, Err: err}
		}(i, doc)
	}
	wg.Wait()
	return out
}
