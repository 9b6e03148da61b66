// Package coretest provides in-memory fakes of the core interfaces for tests.
package coretest

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/markdave123-py/readaloud/internal/core"
)

// Document is a fake core.Document. Each page renders as a uniform gray
// bitmap whose level equals the page number, which Extractor decodes.
type Document struct {
	Pages     int
	RenderErr error

	mu      sync.Mutex
	closed  bool
	renders atomic.Int32
}

func NewDocument(pages int) *Document {
	return &Document{Pages: pages}
}

func (d *Document) PageCount() int { return d.Pages }

func (d *Document) Render(ctx context.Context, page int, _ float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 1 || page > d.Pages {
		return nil, core.OutOfRangeError(page, d.Pages)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, core.IOError("document is closed", nil)
	}
	if d.RenderErr != nil {
		return nil, d.RenderErr
	}
	d.renders.Add(1)

	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = uint8(page)
	}
	return img, nil
}

func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *Document) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Document) Renders() int { return int(d.renders.Load()) }

// Renderer opens every input as Doc, or fails with Err.
type Renderer struct {
	Doc *Document
	Err error
}

func (r *Renderer) Open(_ context.Context, _ []byte) (core.Document, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Doc, nil
}

// Extractor returns Texts[page] for bitmaps produced by Document.
type Extractor struct {
	Texts map[int]string
	Err   error
	// Gate, when set, blocks every call until it is closed.
	Gate chan struct{}

	calls atomic.Int32
}

func (e *Extractor) Name() string { return "fake" }

func (e *Extractor) Extract(ctx context.Context, img image.Image, _ string, _ int) (string, error) {
	e.calls.Add(1)
	if e.Gate != nil {
		select {
		case <-e.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if e.Err != nil {
		return "", e.Err
	}
	page := int(color.GrayModel.Convert(img.At(img.Bounds().Min.X, img.Bounds().Min.Y)).(color.Gray).Y)
	return e.Texts[page], nil
}

func (e *Extractor) Calls() int { return int(e.calls.Load()) }

// Speech is a fake core.SpeechBackend.
type Speech struct {
	BackendName string
	Err         error
	// Gate, when set, blocks every call until it is closed or ctx ends.
	Gate chan struct{}

	mu    sync.Mutex
	texts []string
}

func (s *Speech) Name() string { return s.BackendName }

func (s *Speech) Synthesize(ctx context.Context, text string, _ core.Voice) (*core.Audio, error) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()

	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return &core.Audio{Data: []byte(s.BackendName + ":" + text), MimeType: "audio/mpeg"}, nil
}

// Texts returns every text passed to Synthesize, in call order.
func (s *Speech) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}
