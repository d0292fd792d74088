// Package pdfdoc builds a rawdoc.Document directly from a PDF file, so the
// structure pipeline is usable without an external raw-document producer.
//
// pdfcpu gives us page content streams and the embedded bookmark tree. The
// content-stream text carries no font metadata, so blocks come back without
// size/weight information and heading detection degrades to its
// formatting-free behavior; outline and ToC candidates are unaffected.
package pdfdoc

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/structura/structura/rawdoc"
)

// Load reads a PDF and assembles a rawdoc.Document: one page per PDF page,
// one block per extracted paragraph, plus the flattened outline when the
// file carries bookmarks.
func Load(path string) (*rawdoc.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	pages := make([]rawdoc.Page, 0, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		page := rawdoc.Page{Number: pageNr}
		for _, para := range splitParagraphs(extractPageText(ctx, pageNr)) {
			page.Blocks = append(page.Blocks, rawdoc.Block{Text: para})
		}
		pages = append(pages, page)
	}

	outline := flattenBookmarks(ctx)
	return rawdoc.Build(pages, outline)
}

// flattenBookmarks converts the PDF bookmark tree into outline entries with
// explicit nesting levels. A malformed or absent tree yields nil, never an
// error: most PDFs simply have no outline.
func flattenBookmarks(ctx *model.Context) []rawdoc.OutlineEntry {
	bms, err := pdfcpu.Bookmarks(ctx)
	if err != nil || len(bms) == 0 {
		return nil
	}
	var out []rawdoc.OutlineEntry
	var walk func(bms []pdfcpu.Bookmark, level int)
	walk = func(bms []pdfcpu.Bookmark, level int) {
		for _, bm := range bms {
			if bm.Title != "" && bm.PageFrom >= 1 && bm.PageFrom <= ctx.PageCount {
				out = append(out, rawdoc.OutlineEntry{
					Title: bm.Title,
					Level: level,
					Page:  bm.PageFrom,
				})
			}
			if len(bm.Kids) > 0 {
				walk(bm.Kids, level+1)
			}
		}
	}
	walk(bms, 1)
	return out
}
