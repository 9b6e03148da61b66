package render

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/markdave123-py/readaloud/internal/core"
)

// baseDPI is the PDF user-space resolution; a scale of 2.0 renders at 144 DPI.
const baseDPI = 72.0

// FitzRenderer opens documents with MuPDF through go-fitz.
type FitzRenderer struct {
	validator *Validator
}

var _ core.DocumentRenderer = (*FitzRenderer)(nil)

// NewFitzRenderer creates a renderer that validates input with v first.
// A nil validator skips validation.
func NewFitzRenderer(v *Validator) *FitzRenderer {
	return &FitzRenderer{validator: v}
}

// Open validates and opens a PDF held in memory.
func (r *FitzRenderer) Open(ctx context.Context, data []byte) (core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.validator != nil {
		if _, err := r.validator.Validate(data); err != nil {
			return nil, err
		}
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, core.CorruptDocumentError("failed to open PDF", err)
	}

	pageCount := doc.NumPage()
	if pageCount == 0 {
		doc.Close()
		return nil, core.CorruptDocumentError("PDF has no pages", nil)
	}

	return &fitzDocument{doc: doc, pageCount: pageCount}, nil
}

type fitzDocument struct {
	mu        sync.Mutex
	doc       *fitz.Document
	pageCount int
}

func (d *fitzDocument) PageCount() int {
	return d.pageCount
}

func (d *fitzDocument) Render(ctx context.Context, page int, scale float64) (image.Image, error) {
	if page < 1 || page > d.pageCount {
		return nil, core.OutOfRangeError(page, d.pageCount)
	}
	if scale <= 0 {
		scale = 1
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil, core.IOError("document is closed", nil)
	}

	img, err := d.doc.ImageDPI(page-1, baseDPI*scale)
	if err != nil {
		return nil, core.CorruptDocumentError(fmt.Sprintf("failed to render page %d", page), err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}
