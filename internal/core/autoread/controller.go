// Package autoread drives continuous reading of a document: prepare the
// current page, narrate it, wait for playback to finish, move on.
package autoread

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/markdave123-py/readaloud/internal/core"
	"github.com/markdave123-py/readaloud/internal/core/pages"
	"github.com/markdave123-py/readaloud/internal/core/session"
	"github.com/markdave123-py/readaloud/internal/observability"
)

// recentLimit bounds how many finished narrations stay addressable.
const recentLimit = 8

// Controller owns one reader's session. All events are serialized by mu;
// page preparation and synthesis run on goroutines tracked by wg.
type Controller struct {
	mu       sync.Mutex
	src      pages.Source
	pages    PageSource
	narrator Narrator
	opts     Options
	log      *observability.Logger

	sess   *session.Session
	state  State
	active *Narration
	cancel context.CancelFunc
	recent []*Narration
	notice string
	closed bool

	base       context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// New creates an idle controller on page 1 of src. The controller takes
// ownership of src.Doc and closes it in Close.
func New(src pages.Source, ps PageSource, n Narrator, opts Options, log *observability.Logger) (*Controller, error) {
	sess, err := session.New(src.Doc.PageCount())
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = observability.Nop()
	}
	if opts.MinTextLength < 1 {
		opts.MinTextLength = 1
	}
	base, cancel := context.WithCancel(context.Background())
	return &Controller{
		src:        src,
		pages:      ps,
		narrator:   n,
		opts:       opts,
		log:        log.WithSession(src.Digest[:min(12, len(src.Digest))]),
		sess:       sess,
		state:      StateIdle,
		base:       base,
		baseCancel: cancel,
	}, nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Start turns on auto-advance and reads the current page. A narration left
// over from earlier is cancelled first.
func (c *Controller) Start() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Snapshot{}, core.ErrNoSession
	}

	c.cancelActive()
	c.notice = ""
	c.sess.SetAutoAdvance(true)
	c.setState(StateReading, "start")
	c.readCurrent()
	return c.snapshot(), nil
}

// Stop clears auto-advance and cancels the active narration.
func (c *Controller) Stop() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Snapshot{}, core.ErrNoSession
	}

	c.cancelActive()
	c.sess.SetAutoAdvance(false)
	c.setState(StateIdle, "stop")
	return c.snapshot(), nil
}

// Next moves forward one page; triggerAuto also turns on auto-advance. On
// the last page nothing changes.
func (c *Controller) Next(triggerAuto bool) (Snapshot, error) {
	return c.navigate("next", func(s *session.Session) (bool, error) {
		return s.Next(triggerAuto), nil
	})
}

// Previous moves back one page. On the first page nothing changes.
func (c *Controller) Previous() (Snapshot, error) {
	return c.navigate("previous", func(s *session.Session) (bool, error) {
		return s.Previous(), nil
	})
}

// JumpTo moves to page n, failing with ErrOutOfRange outside the document.
// Auto-advance keeps its value.
func (c *Controller) JumpTo(n int) (Snapshot, error) {
	return c.navigate("jump", func(s *session.Session) (bool, error) {
		if n < 1 || n > s.PageCount() {
			return false, core.OutOfRangeError(n, s.PageCount())
		}
		return true, s.JumpTo(n)
	})
}

// OnNarrationComplete signals that playback of narration id ended. It
// reports false when id is not the playing narration.
func (c *Controller) OnNarrationComplete(id string) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state != StateReading || c.active == nil ||
		c.active.ID != id || c.active.Status != NarrationPlaying {
		return c.snapshot(), false
	}
	c.active.Status = NarrationDone
	c.advance("narration complete")
	return c.snapshot(), true
}

// Audio returns the audio of a recent narration that reached playback.
func (c *Controller) Audio(id string) (*core.Audio, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, n := range c.recent {
		if n.ID == id && n.audio != nil {
			return &core.Audio{Data: n.audio, MimeType: n.MimeType}, nil
		}
	}
	return nil, core.NotFoundError("narration audio not found", nil)
}

// Page returns the prepared content of page n with the session config.
func (c *Controller) Page(ctx context.Context, n int) (*pages.Page, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, core.ErrNoSession
	}
	return c.pages.Page(ctx, c.src, n, c.opts.Pages)
}

// Digest identifies the document being read.
func (c *Controller) Digest() string { return c.src.Digest }

// Close stops reading, waits for background work and closes the document.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.cancelActive()
	c.sess.SetAutoAdvance(false)
	c.setState(StateIdle, "close")
	c.closed = true
	c.baseCancel()
	c.mu.Unlock()

	c.wg.Wait()
	return c.src.Doc.Close()
}

// Wait blocks until no background work is running.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// navigate applies move and, only if the page changed, cancels the active
// narration and re-reads when auto-advance is on.
func (c *Controller) navigate(op string, move func(*session.Session) (bool, error)) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Snapshot{}, core.ErrNoSession
	}

	before := c.sess.Page()
	moved, err := move(c.sess)
	if err != nil {
		return c.snapshot(), err
	}
	if !moved {
		return c.snapshot(), nil
	}

	c.cancelActive()
	c.notice = ""
	if c.sess.AutoAdvance() {
		c.setState(StateReading, op)
		c.readCurrent()
	} else {
		c.setState(StateIdle, op)
	}
	c.log.Debug().Str("op", op).Int("from", before).Int("to", c.sess.Page()).Msg("navigated")
	return c.snapshot(), nil
}

// readCurrent starts preparing and narrating the current page. Caller holds mu.
func (c *Controller) readCurrent() {
	n := &Narration{
		ID:        uuid.NewString(),
		Page:      c.sess.Page(),
		Status:    NarrationPending,
		CreatedAt: time.Now(),
	}
	ctx, cancel := context.WithCancel(c.base)
	c.active = n
	c.cancel = cancel
	c.remember(n)

	c.wg.Add(1)
	go c.prepare(ctx, n)
}

func (c *Controller) prepare(ctx context.Context, n *Narration) {
	defer c.wg.Done()
	log := c.log.WithOperation("read_page")

	pg, err := c.pages.Page(ctx, c.src, n.Page, c.opts.Pages)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Warn().Err(err).Int("page", n.Page).Msg("page could not be prepared, skipping")
		c.skip(n, NarrationFailed, fmt.Sprintf("page %d skipped: it could not be processed", n.Page), "page failed")
		return
	}
	c.prefetch(ctx, n.Page)

	text := strings.TrimSpace(pg.Text)
	if utf8.RuneCountInString(text) < c.opts.MinTextLength {
		log.Debug().Int("page", n.Page).Msg("no text on page, skipping")
		if c.opts.EmptyPageDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.opts.EmptyPageDelay):
			}
		}
		c.skip(n, NarrationDone, "", "empty page")
		return
	}

	audio, tag, err := c.narrator.Narrate(ctx, text, c.opts.Voice)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Error().Err(err).Int("page", n.Page).Msg("narration failed on every backend, skipping")
		c.skip(n, NarrationFailed, fmt.Sprintf("page %d skipped: narration unavailable", n.Page), "narration failed")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != n {
		return
	}
	n.Status = NarrationPlaying
	n.Backend = tag
	n.MimeType = audio.MimeType
	n.audio = audio.Data
	log.Info().Int("page", n.Page).Str("backend", string(tag)).Int("bytes", len(audio.Data)).Msg("narration ready")
}

// prefetch warms the following pages in the background.
func (c *Controller) prefetch(ctx context.Context, page int) {
	if c.opts.PrefetchPages <= 0 {
		return
	}
	next := make([]int, 0, c.opts.PrefetchPages)
	for i := 1; i <= c.opts.PrefetchPages; i++ {
		next = append(next, page+i)
	}
	c.runPrefetch(ctx, next)
}

// Warm prepares the current page and the ones after it without narrating.
// The work is bound to the controller and stops on Close.
func (c *Controller) Warm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.opts.PrefetchPages <= 0 {
		return
	}
	page := c.sess.Page()
	warm := make([]int, 0, c.opts.PrefetchPages+1)
	for i := 0; i <= c.opts.PrefetchPages; i++ {
		warm = append(warm, page+i)
	}
	c.runPrefetch(c.base, warm)
}

func (c *Controller) runPrefetch(ctx context.Context, pageNums []int) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.pages.Prefetch(ctx, c.src, pageNums, c.opts.Pages); err != nil && ctx.Err() == nil {
			c.log.Debug().Err(err).Ints("pages", pageNums).Msg("prefetch failed")
		}
	}()
}

// skip finishes n without playback and advances if n is still active.
func (c *Controller) skip(n *Narration, status NarrationStatus, notice, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != n || c.state != StateReading {
		return
	}
	n.Status = status
	if notice != "" {
		c.notice = notice
	}
	c.advance(reason)
}

// advance runs the READING -> ADVANCING -> READING|IDLE step. Caller holds mu.
func (c *Controller) advance(reason string) {
	c.releaseActive()
	c.setState(StateAdvancing, reason)

	if !c.sess.Next(false) {
		c.sess.SetAutoAdvance(false)
		c.setState(StateIdle, "end of document")
		return
	}
	c.setState(StateReading, "next page")
	c.readCurrent()
}

// cancelActive cancels the active narration, if any. Caller holds mu.
func (c *Controller) cancelActive() {
	if c.active == nil {
		return
	}
	if c.active.Status == NarrationPending || c.active.Status == NarrationPlaying {
		c.active.Status = NarrationCancelled
	}
	c.releaseActive()
}

func (c *Controller) releaseActive() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.active = nil
}

func (c *Controller) setState(to State, reason string) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	c.log.Debug().Str("from", string(from)).Str("to", string(to)).Int("page", c.sess.Page()).Str("reason", reason).Msg("state changed")
	if c.opts.OnTransition != nil {
		c.opts.OnTransition(Transition{From: from, To: to, Page: c.sess.Page(), Reason: reason})
	}
}

func (c *Controller) remember(n *Narration) {
	c.recent = append(c.recent, n)
	if len(c.recent) > recentLimit {
		c.recent = c.recent[len(c.recent)-recentLimit:]
	}
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		State:       c.state,
		Page:        c.sess.Page(),
		PageCount:   c.sess.PageCount(),
		AutoAdvance: c.sess.AutoAdvance(),
		Voice:       c.opts.Voice.ID,
		Notice:      c.notice,
	}
	if c.active != nil {
		n := *c.active
		n.audio = nil
		s.Narration = &n
	}
	return s
}
