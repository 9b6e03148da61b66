package pages

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/markdave123-py/readaloud/internal/core/ocr"
)

// Config tunes how a page is turned into a preview and text. Two pages
// rendered with equal configs and the same extractor are interchangeable.
type Config struct {
	Scale           float64
	Contrast        float64
	Binarize        bool
	BlockSize       int
	Offset          float64
	Language        string
	Mode            int
	PreviewMaxWidth int
}

// DefaultConfig mirrors the stock environment defaults.
func DefaultConfig() Config {
	return Config{
		Scale:           2.0,
		Contrast:        2.0,
		BlockSize:       ocr.DefaultBlockSize,
		Offset:          ocr.DefaultOffset,
		Language:        "vie",
		Mode:            ocr.ModeSingleBlock,
		PreviewMaxWidth: 1400,
	}
}

func (c Config) enhanceOptions() ocr.EnhanceOptions {
	return ocr.EnhanceOptions{
		Contrast:  c.Contrast,
		Binarize:  c.Binarize,
		BlockSize: c.BlockSize,
		Offset:    c.Offset,
	}
}

// Fingerprint identifies the config together with the extractor name.
func (c Config) Fingerprint(engine string) string {
	raw := fmt.Sprintf("%s|%.3f|%.3f|%t|%d|%.2f|%s|%d|%d",
		engine, c.Scale, c.Contrast, c.Binarize, c.BlockSize, c.Offset, c.Language, c.Mode, c.PreviewMaxWidth)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:8])
}

// Digest returns the hex sha256 of document bytes, used as its cache identity.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
