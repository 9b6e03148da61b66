// Package narration turns page text into playable audio through a primary
// speech backend with a single-hop fallback to a secondary one.
package narration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/markdave123-py/readaloud/internal/core"
	"github.com/markdave123-py/readaloud/internal/observability"
)

// BackendTag records which backend produced a narration.
type BackendTag string

const (
	BackendPrimary   BackendTag = "primary"
	BackendSecondary BackendTag = "secondary"
)

// Narrator tries the primary backend, then the secondary once.
type Narrator struct {
	primary   core.SpeechBackend
	secondary core.SpeechBackend
	log       *observability.Logger
}

// NewNarrator wires the two backends. Either may be nil when not configured,
// but not both.
func NewNarrator(primary, secondary core.SpeechBackend, log *observability.Logger) (*Narrator, error) {
	if primary == nil && secondary == nil {
		return nil, core.ConfigError("no speech backend configured", nil)
	}
	if log == nil {
		log = observability.Nop()
	}
	return &Narrator{primary: primary, secondary: secondary, log: log.WithOperation("narrate")}, nil
}

// Narrate synthesizes text with voice. Cancellation of ctx aborts without
// trying the other backend.
func (n *Narrator) Narrate(ctx context.Context, text string, voice core.Voice) (*core.Audio, BackendTag, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, "", core.ValidationError("narration text is empty", nil)
	}

	var primaryErr error
	if n.primary != nil {
		audio, err := n.primary.Synthesize(ctx, text, voice)
		if err == nil {
			return audio, BackendPrimary, nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		primaryErr = fmt.Errorf("%s: %w", n.primary.Name(), err)
		n.log.Warn().Err(err).Str("backend", n.primary.Name()).Msg("primary speech backend failed, falling back")
	}

	if n.secondary == nil {
		return nil, "", core.NarrationFailureError("speech synthesis failed", primaryErr)
	}

	audio, err := n.secondary.Synthesize(ctx, text, voice)
	if err == nil {
		return audio, BackendSecondary, nil
	}
	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}
	secondaryErr := fmt.Errorf("%s: %w", n.secondary.Name(), err)
	n.log.Error().Err(err).Str("backend", n.secondary.Name()).Msg("secondary speech backend failed")

	return nil, "", core.NarrationFailureError("speech synthesis failed", errors.Join(primaryErr, secondaryErr))
}
