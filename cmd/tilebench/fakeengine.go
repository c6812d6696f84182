package main

import (
	"context"
	"fmt"

	"github.com/vellumview/tilecore/tilerender"
)

// fakeEngine is a synthetic tilerender.PDFEngine used when --file is not
// supplied: a document of uniform-size pages that render instantly,
// letting the benchmark exercise the scheduling and caching pipeline
// without a real PDF engine dependency. FromBytes ignores its payload and
// returns a document sized by the configured page count, so the synthetic
// path still goes through the PDFEngine interface rather than constructing
// a fakeDocument directly.
type fakeEngine struct {
	pageCount int
}

func (e fakeEngine) Open(ctx context.Context, path string) (tilerender.Document, error) {
	return nil, fmt.Errorf("tilebench: fakeEngine cannot open %q, pass --file with a real engine wired in", path)
}

func (e fakeEngine) FromBytes(ctx context.Context, data []byte) (tilerender.Document, error) {
	return newFakeDocument(e.pageCount), nil
}

// fakeDocument is a synthetic document of uniform letter-sized pages.
type fakeDocument struct {
	pageCount int
}

func newFakeDocument(pageCount int) *fakeDocument {
	return &fakeDocument{pageCount: pageCount}
}

func (d *fakeDocument) PageCount() int { return d.pageCount }

func (d *fakeDocument) Page(i int) (tilerender.Page, error) {
	if i < 0 || i >= d.pageCount {
		return nil, fmt.Errorf("tilebench: page %d out of range", i)
	}
	return &fakePage{index: i}, nil
}

// fakePage renders a deterministic solid BGRA buffer sized to whatever
// the caller asks for, standing in for a real PDF engine's rasterizer.
type fakePage struct {
	index int
}

func (p *fakePage) RenderRGBA(ctx context.Context, widthPx, heightPx int) ([]byte, error) {
	buf := make([]byte, widthPx*heightPx*4)
	shade := byte(32 + (p.index*17)%192)
	for i := 0; i < len(buf); i += 4 {
		buf[i+0] = shade       // B
		buf[i+1] = shade / 2   // G
		buf[i+2] = shade / 4   // R
		buf[i+3] = 255         // A
	}
	return buf, nil
}

func (p *fakePage) ExtractText(ctx context.Context) (string, error) {
	return "", nil
}

func (p *fakePage) ExtractTextSpans(ctx context.Context) ([]tilerender.TextSpan, error) {
	return nil, nil
}

func (p *fakePage) SizePoints(ctx context.Context) (float64, float64, error) {
	return 612, 792, nil // US Letter
}
