package narration

import (
	"sort"
	"strings"

	"github.com/markdave123-py/readaloud/internal/core"
)

const (
	VoiceFemale = "female"
	VoiceMale   = "male"

	DefaultLanguage = "vi-VN"
	DefaultRate     = 1.15
)

// Catalog holds the voices a user can pick from, keyed by id.
type Catalog struct {
	voices   map[string]core.Voice
	fallback string
}

// NewCatalog builds the two stock voices for language at rate. defaultID
// falls back to female when unknown.
func NewCatalog(language string, rate float64, defaultID string) *Catalog {
	if language == "" {
		language = DefaultLanguage
	}
	if rate <= 0 {
		rate = DefaultRate
	}
	c := &Catalog{voices: map[string]core.Voice{
		VoiceFemale: {ID: VoiceFemale, Label: "Giọng nữ", Language: language, Name: language + "-Wavenet-A", Rate: rate},
		VoiceMale:   {ID: VoiceMale, Label: "Giọng nam", Language: language, Name: language + "-Wavenet-B", Rate: rate},
	}}
	c.fallback = VoiceFemale
	if _, ok := c.voices[strings.ToLower(defaultID)]; ok {
		c.fallback = strings.ToLower(defaultID)
	}
	return c
}

// Lookup returns the voice for id, or the default voice when id is empty.
func (c *Catalog) Lookup(id string) (core.Voice, error) {
	if id == "" {
		return c.voices[c.fallback], nil
	}
	v, ok := c.voices[strings.ToLower(id)]
	if !ok {
		return core.Voice{}, core.ValidationError("unknown voice "+id, nil)
	}
	return v, nil
}

func (c *Catalog) List() []core.Voice {
	out := make([]core.Voice, 0, len(c.voices))
	for _, v := range c.voices {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
