package core

import (
	"context"
	"image"
)

// Document is an opened, immutable PDF. Pages are 1-based.
type Document interface {
	PageCount() int
	// Render rasterizes a page; scale 1.0 is 72 DPI.
	Render(ctx context.Context, page int, scale float64) (image.Image, error)
	Close() error
}

// DocumentRenderer opens raw document bytes. Unparseable input fails with
// ErrCorruptDocument.
type DocumentRenderer interface {
	Open(ctx context.Context, data []byte) (Document, error)
}

// TextExtractor maps a rendered bitmap to recognized text. Mode is the
// engine's page segmentation mode.
type TextExtractor interface {
	Name() string
	Extract(ctx context.Context, img image.Image, language string, mode int) (string, error)
}

// Voice selects a speaker for narration.
type Voice struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Language string `json:"language"`
	// Name is the backend-specific voice name, e.g. "vi-VN-Wavenet-A".
	Name string  `json:"name"`
	Rate float64 `json:"rate"`
}

// Audio is a playable narration resource.
type Audio struct {
	Data     []byte
	MimeType string
}

// SpeechBackend converts text to audio.
type SpeechBackend interface {
	Name() string
	Synthesize(ctx context.Context, text string, voice Voice) (*Audio, error)
}
