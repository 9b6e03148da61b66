package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"slices"

	"github.com/otiai10/gosseract/v2"

	"github.com/markdave123-py/readaloud/internal/core"
)

// Supported page segmentation modes.
const (
	ModeAuto         = int(gosseract.PSM_AUTO)
	ModeSingleColumn = int(gosseract.PSM_SINGLE_COLUMN)
	ModeSingleBlock  = int(gosseract.PSM_SINGLE_BLOCK)
)

// ValidMode reports whether mode is one we expose to users.
func ValidMode(mode int) bool {
	return mode == ModeAuto || mode == ModeSingleColumn || mode == ModeSingleBlock
}

// TesseractExtractor recognizes text with libtesseract. A fresh client is
// created per call since gosseract clients are not safe for concurrent use.
type TesseractExtractor struct {
	clientFactory func() *gosseract.Client
}

var _ core.TextExtractor = (*TesseractExtractor)(nil)

func NewTesseractExtractor() *TesseractExtractor {
	return &TesseractExtractor{clientFactory: gosseract.NewClient}
}

func (e *TesseractExtractor) Name() string { return "tesseract" }

func (e *TesseractExtractor) Extract(ctx context.Context, img image.Image, language string, mode int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode page: %w", err)
	}

	c := e.clientFactory()
	defer c.Close()

	if language != "" {
		if err := c.SetLanguage(language); err != nil {
			return "", fmt.Errorf("set language: %w", err)
		}
	}
	if mode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(mode)); err != nil {
			return "", fmt.Errorf("set page seg mode: %w", err)
		}
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}

// Probe reports the tesseract version and whether language is installed.
func Probe(language string) (version string, ok bool, err error) {
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return "", false, fmt.Errorf("list tesseract languages: %w", err)
	}
	return gosseract.Version(), slices.Contains(langs, language), nil
}
