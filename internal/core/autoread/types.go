package autoread

import (
	"context"
	"time"

	"github.com/markdave123-py/readaloud/internal/core"
	"github.com/markdave123-py/readaloud/internal/core/narration"
	"github.com/markdave123-py/readaloud/internal/core/pages"
)

// State of the auto-read machine.
type State string

const (
	StateIdle      State = "IDLE"
	StateReading   State = "READING"
	StateAdvancing State = "ADVANCING"
)

// NarrationStatus is the lifecycle of a single narration.
type NarrationStatus string

const (
	NarrationPending   NarrationStatus = "pending"
	NarrationPlaying   NarrationStatus = "playing"
	NarrationCancelled NarrationStatus = "cancelled"
	NarrationFailed    NarrationStatus = "failed"
	NarrationDone      NarrationStatus = "done"
)

// Narration is one attempt to read a page aloud. Audio is set once the
// narration is playing.
type Narration struct {
	ID        string               `json:"id"`
	Page      int                  `json:"page"`
	Backend   narration.BackendTag `json:"backend,omitempty"`
	Status    NarrationStatus      `json:"status"`
	MimeType  string               `json:"mime_type,omitempty"`
	CreatedAt time.Time            `json:"created_at"`

	audio []byte
}

// Transition is reported to Options.OnTransition on every state change.
type Transition struct {
	From   State
	To     State
	Page   int
	Reason string
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	State       State      `json:"state"`
	Page        int        `json:"page"`
	PageCount   int        `json:"page_count"`
	AutoAdvance bool       `json:"auto_advance"`
	Voice       string     `json:"voice"`
	Narration   *Narration `json:"narration,omitempty"`
	Notice      string     `json:"notice,omitempty"`
}

// PageSource yields prepared pages.
type PageSource interface {
	Page(ctx context.Context, src pages.Source, page int, cfg pages.Config) (*pages.Page, error)
	Prefetch(ctx context.Context, src pages.Source, pages []int, cfg pages.Config) error
}

// Narrator produces audio for page text.
type Narrator interface {
	Narrate(ctx context.Context, text string, voice core.Voice) (*core.Audio, narration.BackendTag, error)
}

// Options configure a controller.
type Options struct {
	Pages pages.Config
	Voice core.Voice
	// MinTextLength is the shortest text, in runes, worth narrating.
	MinTextLength int
	// EmptyPageDelay is waited before skipping a page without text.
	EmptyPageDelay time.Duration
	// PrefetchPages is how many following pages to prepare ahead.
	PrefetchPages int
	// OnTransition runs with the controller lock held; it must not call
	// back into the controller.
	OnTransition func(Transition)
}
