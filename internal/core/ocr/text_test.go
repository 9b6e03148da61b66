package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "noise only", in: " ..-- | __\n", want: ""},
		{name: "commas", in: ",,", want: ""},
		{name: "question marks", in: "!?", want: ""},
		{name: "dashes", in: "— –", want: ""},
		{name: "bullets", in: "• •", want: ""},
		{name: "quotes", in: "'\"", want: ""},
		{name: "symbols", in: "© + ~", want: ""},
		{name: "digit survives", in: "- 3 -", want: "- 3 -"},
		{name: "flattens lines", in: "Xin chào\nthế giới\n\n", want: "Xin chào thế giới"},
		{name: "drops pipes", in: "Chương | 1", want: "Chương 1"},
		{name: "keeps punctuation inside text", in: "Hết. Tiếp-theo!", want: "Hết. Tiếp-theo!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestValidMode(t *testing.T) {
	assert.True(t, ValidMode(3))
	assert.True(t, ValidMode(4))
	assert.True(t, ValidMode(6))
	assert.False(t, ValidMode(13))
}
