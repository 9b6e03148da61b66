package llm

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/readaloud/internal/core"
)

const transcribePrompt = `Transcribe all readable text on this scanned page exactly as written.
Language hint: %s. Keep the reading order, do not translate, summarize or comment.
If the page has no readable text, answer with an empty response.`

// GeminiVision extracts page text with a multimodal Gemini model.
type GeminiVision struct {
	client    *genai.Client
	modelName string
}

func NewGeminiVision(ctx context.Context, apiKey, modelName string) (*GeminiVision, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, core.ConfigError("gemini api key is not set", nil)
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiVision{client: cl, modelName: modelName}, nil
}

func (g *GeminiVision) Name() string { return "gemini" }

func (g *GeminiVision) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Extract ignores the segmentation mode; it only matters to tesseract.
func (g *GeminiVision) Extract(ctx context.Context, img image.Image, language string, _ int) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode page: %w", err)
	}

	m := g.client.GenerativeModel(g.modelName)
	m.SetTemperature(0)

	resp, err := m.GenerateContent(ctx,
		genai.ImageData("png", buf.Bytes()),
		genai.Text(fmt.Sprintf(transcribePrompt, language)),
	)
	if err != nil {
		return "", fmt.Errorf("gemini transcribe: %w", err)
	}
	return responseText(resp), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

var _ core.TextExtractor = (*GeminiVision)(nil)
