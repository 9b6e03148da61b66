package services

import (
	"context"
	"sync"
	"time"

	"github.com/markdave123-py/readaloud/internal/core"
	"github.com/markdave123-py/readaloud/internal/core/autoread"
	"github.com/markdave123-py/readaloud/internal/core/narration"
	"github.com/markdave123-py/readaloud/internal/core/ocr"
	"github.com/markdave123-py/readaloud/internal/core/pages"
	"github.com/markdave123-py/readaloud/internal/observability"
)

// SessionSettings are the per-session choices a user makes on upload/open.
// Zero values fall back to the service defaults.
type SessionSettings struct {
	Voice    string
	Binarize *bool
	Mode     int
}

// ReaderOptions are the service-wide auto-read defaults.
type ReaderOptions struct {
	Pages          pages.Config
	MinTextLength  int
	EmptyPageDelay time.Duration
	PrefetchPages  int
}

// PageCache is a page source whose cached pages can be released.
type PageCache interface {
	autoread.PageSource
	Forget(ctx context.Context, digest string) error
}

// ReaderService keeps one live reading session per user.
type ReaderService struct {
	pages    PageCache
	narrator autoread.Narrator
	voices   *narration.Catalog
	opts     ReaderOptions
	log      *observability.Logger

	mu       sync.Mutex
	sessions map[string]*autoread.Controller
}

func NewReaderService(ps PageCache, n autoread.Narrator, voices *narration.Catalog, opts ReaderOptions, log *observability.Logger) *ReaderService {
	if log == nil {
		log = observability.Nop()
	}
	return &ReaderService{
		pages:    ps,
		narrator: n,
		voices:   voices,
		opts:     opts,
		log:      log,
		sessions: make(map[string]*autoread.Controller),
	}
}

// Open starts a new session for userID on doc, replacing any previous one.
// The session owns doc from here on; on error doc is closed.
func (s *ReaderService) Open(ctx context.Context, userID string, src pages.Source, settings SessionSettings) (autoread.Snapshot, error) {
	opts, err := s.optionsFor(settings)
	if err != nil {
		_ = src.Doc.Close()
		return autoread.Snapshot{}, err
	}

	ctrl, err := autoread.New(src, s.pages, s.narrator, opts, s.log.WithUser(userID))
	if err != nil {
		_ = src.Doc.Close()
		return autoread.Snapshot{}, err
	}

	s.mu.Lock()
	prev := s.sessions[userID]
	s.sessions[userID] = ctrl
	s.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("closing replaced session")
		}
	}

	// Warm the first pages so the preview shows up quickly.
	ctrl.Warm()

	s.log.Info().Str("user_id", userID).Int("pages", src.Doc.PageCount()).Str("voice", opts.Voice.ID).Msg("reading session opened")
	return ctrl.Snapshot(), nil
}

// Session returns the user's live session or ErrNoSession.
func (s *ReaderService) Session(userID string) (*autoread.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctrl, ok := s.sessions[userID]
	if !ok {
		return nil, core.ErrNoSession
	}
	return ctrl, nil
}

// Close ends the user's session and drops its cached pages unless another
// session is reading the same document.
func (s *ReaderService) Close(ctx context.Context, userID string) error {
	s.mu.Lock()
	ctrl, ok := s.sessions[userID]
	delete(s.sessions, userID)
	shared := false
	if ok {
		for _, other := range s.sessions {
			if other.Digest() == ctrl.Digest() {
				shared = true
				break
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		return core.ErrNoSession
	}

	err := ctrl.Close()
	if !shared {
		if ferr := s.pages.Forget(ctx, ctrl.Digest()); ferr != nil {
			s.log.Warn().Err(ferr).Str("user_id", userID).Msg("releasing cached pages")
		}
	}
	return err
}

// Shutdown closes every session.
func (s *ReaderService) Shutdown() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*autoread.Controller)
	s.mu.Unlock()

	for userID, ctrl := range all {
		if err := ctrl.Close(); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("closing session on shutdown")
		}
	}
}

func (s *ReaderService) Voices() []core.Voice {
	return s.voices.List()
}

// ValidateSettings reports whether settings would be accepted by Open.
func (s *ReaderService) ValidateSettings(settings SessionSettings) error {
	_, err := s.optionsFor(settings)
	return err
}

func (s *ReaderService) optionsFor(settings SessionSettings) (autoread.Options, error) {
	voice, err := s.voices.Lookup(settings.Voice)
	if err != nil {
		return autoread.Options{}, err
	}

	cfg := s.opts.Pages
	if settings.Binarize != nil {
		cfg.Binarize = *settings.Binarize
	}
	if settings.Mode != 0 {
		if !ocr.ValidMode(settings.Mode) {
			return autoread.Options{}, core.ValidationError("unsupported page segmentation mode", nil)
		}
		cfg.Mode = settings.Mode
	}

	return autoread.Options{
		Pages:          cfg,
		Voice:          voice,
		MinTextLength:  s.opts.MinTextLength,
		EmptyPageDelay: s.opts.EmptyPageDelay,
		PrefetchPages:  s.opts.PrefetchPages,
	}, nil
}
