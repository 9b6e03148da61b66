// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/markdave123-py/readaloud/internal/config"
	"github.com/markdave123-py/readaloud/internal/core"
	"github.com/markdave123-py/readaloud/internal/core/cache"
	db "github.com/markdave123-py/readaloud/internal/core/database"
	"github.com/markdave123-py/readaloud/internal/core/llm"
	"github.com/markdave123-py/readaloud/internal/core/narration"
	objectclient "github.com/markdave123-py/readaloud/internal/core/object-client"
	"github.com/markdave123-py/readaloud/internal/core/ocr"
	"github.com/markdave123-py/readaloud/internal/core/pages"
	"github.com/markdave123-py/readaloud/internal/core/render"
	"github.com/markdave123-py/readaloud/internal/observability"
	"github.com/markdave123-py/readaloud/internal/services"
)

type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Cache        cache.Client
	Reader       *services.ReaderService
	Server       *Server

	closers []io.Closer
	log     *observability.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, log *observability.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{log: log}

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBClient = dbClient
	log.Info().Msg("database initialized and ready")

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.ObjectClient = objClient
	log.Info().Str("bucket", cfg.BucketName).Msg("object client initialized and ready")

	a.Cache, err = newCache(appCtx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	extractor, health, err := a.newExtractor(appCtx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("couldn't initialize the text extractor, %w", err)
	}

	narrator, err := newNarrator(appCtx, cfg, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("couldn't initialize narration, %w", err)
	}

	pageCfg := pages.Config{
		Scale:           cfg.RenderScale,
		Contrast:        cfg.Contrast,
		Binarize:        cfg.Binarize,
		BlockSize:       ocr.DefaultBlockSize,
		Offset:          ocr.DefaultOffset,
		Language:        cfg.OCRLanguage,
		Mode:            cfg.OCRMode,
		PreviewMaxWidth: cfg.PreviewMaxWidth,
	}
	pipeline := pages.NewPipeline(extractor, a.Cache, pages.Options{TTL: cfg.CacheTTL, Parallel: max(1, cfg.PrefetchPages)}, log)

	a.Reader = services.NewReaderService(
		pipeline,
		narrator,
		narration.NewCatalog(cfg.TTSLanguage, cfg.TTSRate, cfg.DefaultVoice),
		services.ReaderOptions{
			Pages:          pageCfg,
			MinTextLength:  cfg.MinTextLength,
			EmptyPageDelay: cfg.EmptyPageDelay,
			PrefetchPages:  cfg.PrefetchPages,
		},
		log,
	)

	renderer := render.NewFitzRenderer(render.NewValidator())
	docs := services.NewDocumentService(dbClient, objClient, cfg.BucketName, renderer, a.Reader, log)
	users := services.NewUserService(dbClient)

	health["ocr_engine"] = extractor.Name()
	health["ocr_language"] = cfg.OCRLanguage
	a.Server = NewServer(cfg, users, docs, a.Reader, health, log)
	return a, nil
}

func newCache(ctx context.Context, cfg *config.Config, log *observability.Logger) (cache.Client, error) {
	if cfg.RedisAddr == "" {
		log.Info().Int("max_entries", cfg.CacheSize).Msg("using in-memory page cache")
		return cache.NewMemoryClient(cfg.CacheSize), nil
	}
	c, err := cache.NewRedisClient(ctx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("using redis page cache")
	return c, nil
}

// newExtractor picks the OCR engine and reports what it found about it.
func (a *App) newExtractor(ctx context.Context, cfg *config.Config) (core.TextExtractor, map[string]any, error) {
	health := map[string]any{}

	switch cfg.OCREngine {
	case "gemini":
		g, err := llm.NewGeminiVision(ctx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, g)
		return g, health, nil
	case "tesseract", "":
		version, ok, err := ocr.Probe(cfg.OCRLanguage)
		if err != nil {
			a.log.Warn().Err(err).Msg("tesseract probe failed")
		} else if !ok {
			a.log.Warn().Str("language", cfg.OCRLanguage).Msg("tesseract language data not installed")
		} else {
			a.log.Info().Str("version", version).Str("language", cfg.OCRLanguage).Msg("tesseract ready")
		}
		health["tesseract_version"] = version
		health["tesseract_language_installed"] = ok
		return ocr.NewTesseractExtractor(), health, nil
	default:
		return nil, nil, core.ConfigError("unknown OCR engine "+cfg.OCREngine, nil)
	}
}

// newNarrator wires Cloud TTS as primary when a key is configured and the
// Translate endpoint as secondary.
func newNarrator(ctx context.Context, cfg *config.Config, log *observability.Logger) (*narration.Narrator, error) {
	secondary := narration.NewTranslateTTS("", 15*time.Second)

	if cfg.TTSAPIKey == "" {
		log.Warn().Msg("GOOGLE_TTS_API_KEY not set, narrating with the translate endpoint only")
		return narration.NewNarrator(nil, secondary, log)
	}
	primary, err := narration.NewCloudTTS(ctx, cfg.TTSAPIKey)
	if err != nil {
		return nil, err
	}
	return narration.NewNarrator(primary, secondary, log)
}

func (a *App) Close() {
	if a.Reader != nil {
		a.Reader.Shutdown()
	}
	for _, c := range a.closers {
		_ = c.Close()
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
