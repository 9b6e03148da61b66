package render

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/markdave123-py/readaloud/internal/core"
)

const (
	pdfMagic = "%PDF-"
	// MaxDocumentSize bounds accepted uploads.
	MaxDocumentSize = 100 << 20
)

func init() {
	// pdfcpu otherwise creates a config dir under the user's home.
	api.DisableConfigDir()
}

// Validator checks uploaded bytes before they reach the renderer.
type Validator struct {
	conf *model.Configuration
}

// NewValidator creates a validator running pdfcpu in relaxed mode, which
// accepts the small PDF standard deviations common in scanned PDFs.
func NewValidator() *Validator {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Validator{conf: conf}
}

// Validate returns the page count of a well-formed PDF, or a
// CorruptDocument error.
func (v *Validator) Validate(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, core.CorruptDocumentError("document is empty", nil)
	}
	if len(data) > MaxDocumentSize {
		return 0, core.ValidationError(fmt.Sprintf("document exceeds %d MB", MaxDocumentSize>>20), nil)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte(pdfMagic)) {
		return 0, core.CorruptDocumentError("missing PDF header", nil)
	}

	if err := api.Validate(bytes.NewReader(data), v.conf); err != nil {
		return 0, core.CorruptDocumentError("pdf validation failed", err)
	}

	n, err := api.PageCount(bytes.NewReader(data), v.conf)
	if err != nil {
		return 0, core.CorruptDocumentError("cannot count pages", err)
	}
	if n < 1 {
		return 0, core.CorruptDocumentError("PDF has no pages", nil)
	}
	return n, nil
}
