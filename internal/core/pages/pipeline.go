// Package pages renders, enhances and recognizes document pages, memoizing
// the result per document digest, page number and processing config.
package pages

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/markdave123-py/readaloud/internal/core"
	"github.com/markdave123-py/readaloud/internal/core/cache"
	"github.com/markdave123-py/readaloud/internal/core/ocr"
	"github.com/markdave123-py/readaloud/internal/observability"
)

// Source is an opened document with its content digest.
type Source struct {
	Digest string
	Doc    core.Document
}

// Page is the derived content of one page.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
	// Preview is the rendered page as PNG, scaled to the preview width.
	Preview []byte `json:"preview"`
	// Processed is the enhanced bitmap fed to the extractor, as PNG.
	Processed []byte `json:"processed"`
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	extractor core.TextExtractor
	cache     cache.Client
	ttl       time.Duration
	parallel  int
	group     singleflight.Group
	log       *observability.Logger
	encoder   png.Encoder
}

type Options struct {
	// TTL for cached pages; zero keeps them until evicted.
	TTL time.Duration
	// Parallel bounds concurrent page work during prefetch.
	Parallel int
}

func NewPipeline(extractor core.TextExtractor, c cache.Client, opts Options, log *observability.Logger) *Pipeline {
	if log == nil {
		log = observability.Nop()
	}
	if opts.Parallel <= 0 {
		opts.Parallel = 2
	}
	return &Pipeline{
		extractor: extractor,
		cache:     c,
		ttl:       opts.TTL,
		parallel:  opts.Parallel,
		log:       log.WithOperation("page_pipeline"),
		encoder:   png.Encoder{CompressionLevel: png.BestSpeed},
	}
}

// Page returns the derived content for page, computing it at most once per
// key across concurrent callers. Out of range pages fail with ErrOutOfRange.
func (p *Pipeline) Page(ctx context.Context, src Source, page int, cfg Config) (*Page, error) {
	if n := src.Doc.PageCount(); page < 1 || page > n {
		return nil, core.OutOfRangeError(page, n)
	}

	key := p.key(src, page, cfg)
	if pg, ok := p.lookup(ctx, key); ok {
		return pg, nil
	}

	// The shared computation must not die with whichever caller started it.
	workCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (any, error) {
		return p.build(workCtx, src, page, cfg, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Page), nil
	}
}

// Prefetch warms the cache for pages, bounded by the configured parallelism.
// Pages outside the document are skipped.
func (p *Pipeline) Prefetch(ctx context.Context, src Source, pages []int, cfg Config) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallel)

	for _, n := range pages {
		if n < 1 || n > src.Doc.PageCount() {
			continue
		}
		g.Go(func() error {
			if _, err := p.Page(gctx, src, n, cfg); err != nil {
				return fmt.Errorf("prefetch page %d: %w", n, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Forget drops every cached page of a document.
func (p *Pipeline) Forget(ctx context.Context, digest string) error {
	return p.cache.DeleteByPrefix(ctx, cache.Key("page", digest)+":")
}

func (p *Pipeline) key(src Source, page int, cfg Config) string {
	return cache.Key("page", src.Digest, strconv.Itoa(page), cfg.Fingerprint(p.extractor.Name()))
}

func (p *Pipeline) lookup(ctx context.Context, key string) (*Page, bool) {
	raw, err := p.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			p.log.Warn().Err(err).Str("key", key).Msg("page cache read failed")
		}
		return nil, false
	}
	var pg Page
	if err := json.Unmarshal(raw, &pg); err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("discarding unreadable cached page")
		return nil, false
	}
	return &pg, true
}

func (p *Pipeline) build(ctx context.Context, src Source, page int, cfg Config, key string) (*Page, error) {
	start := time.Now()

	img, err := src.Doc.Render(ctx, page, cfg.Scale)
	if err != nil {
		return nil, err
	}
	enhanced := ocr.Enhance(img, cfg.enhanceOptions())

	// Extraction failures read as an empty page.
	extracted := true
	raw, err := p.extractor.Extract(ctx, enhanced, cfg.Language, cfg.Mode)
	if err != nil {
		extracted = false
		raw = ""
		p.log.Warn().Err(err).Int("page", page).Str("engine", p.extractor.Name()).Msg("text extraction failed")
	}

	preview, err := p.encode(ocr.FitWidth(img, cfg.PreviewMaxWidth))
	if err != nil {
		return nil, err
	}
	processed, err := p.encode(ocr.FitWidth(enhanced, cfg.PreviewMaxWidth))
	if err != nil {
		return nil, err
	}

	pg := &Page{Number: page, Text: ocr.CleanText(raw), Preview: preview, Processed: processed}

	p.log.Debug().
		Int("page", page).
		Int("chars", len(pg.Text)).
		Dur("took", time.Since(start)).
		Msg("page prepared")

	if extracted {
		p.store(ctx, key, pg)
	}
	return pg, nil
}

func (p *Pipeline) store(ctx context.Context, key string, pg *Page) {
	raw, err := json.Marshal(pg)
	if err != nil {
		p.log.Warn().Err(err).Msg("encode page for cache")
		return
	}
	if err := p.cache.Set(ctx, key, raw, p.ttl); err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("page cache write failed")
	}
}

func (p *Pipeline) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
