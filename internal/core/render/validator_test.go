package render

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/markdave123-py/readaloud/internal/core"
)

func TestValidatorRejectsBadInput(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "not a pdf", data: []byte("PK\x03\x04 this is a zip")},
		{name: "truncated pdf", data: []byte("%PDF-1.4\n1 0 obj\n<<")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := v.Validate(tt.data)
			assert.Zero(t, n)
			assert.True(t, errors.Is(err, core.ErrCorruptDocument), "got %v", err)
		})
	}
}

func TestFitzRendererOpenRejectsCorruptDocument(t *testing.T) {
	r := NewFitzRenderer(NewValidator())

	_, err := r.Open(context.Background(), []byte("definitely not a pdf"))
	assert.True(t, errors.Is(err, core.ErrCorruptDocument))
}

func TestFitzRendererOpenHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFitzRenderer(nil).Open(ctx, []byte("%PDF-1.4"))
	assert.ErrorIs(t, err, context.Canceled)
}
