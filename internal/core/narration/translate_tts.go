package narration

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/markdave123-py/readaloud/internal/core"
)

const (
	translateBaseURL = "https://translate.google.com"
	maxChunkRunes    = 100
)

// TranslateTTS uses the public Google Translate speech endpoint. It needs no
// credentials but only accepts short inputs, so text is sent in pieces and
// the MP3 frames are concatenated.
type TranslateTTS struct {
	client *resty.Client
}

var _ core.SpeechBackend = (*TranslateTTS)(nil)

func NewTranslateTTS(baseURL string, timeout time.Duration) *TranslateTTS {
	if baseURL == "" {
		baseURL = translateBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)").
		SetHeader("Referer", "http://translate.google.com/")
	return &TranslateTTS{client: c}
}

func (t *TranslateTTS) Name() string { return "google-translate-tts" }

func (t *TranslateTTS) Synthesize(ctx context.Context, text string, voice core.Voice) (*core.Audio, error) {
	chunks := splitText(text, maxChunkRunes)
	if len(chunks) == 0 {
		return nil, core.ValidationError("nothing to synthesize", nil)
	}

	lang := translateLang(voice.Language)
	var out bytes.Buffer
	for i, chunk := range chunks {
		resp, err := t.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"ie":      "UTF-8",
				"client":  "tw-ob",
				"tl":      lang,
				"q":       chunk,
				"total":   fmt.Sprint(len(chunks)),
				"idx":     fmt.Sprint(i),
				"textlen": fmt.Sprint(utf8.RuneCountInString(chunk)),
			}).
			Get("/translate_tts")
		if err != nil {
			return nil, fmt.Errorf("translate tts chunk %d: %w", i, err)
		}
		if resp.IsError() {
			return nil, core.APIError(fmt.Sprintf("translate tts chunk %d: status %d", i, resp.StatusCode()), nil)
		}
		out.Write(resp.Body())
	}

	if out.Len() == 0 {
		return nil, core.APIError("translate tts returned no audio", nil)
	}
	return &core.Audio{Data: out.Bytes(), MimeType: "audio/mpeg"}, nil
}

// translateLang maps a BCP-47 tag to the endpoint's short code ("vi-VN" -> "vi").
func translateLang(language string) string {
	if language == "" {
		return "vi"
	}
	lang, _, _ := strings.Cut(language, "-")
	return strings.ToLower(lang)
}

var sentenceEnd = regexp.MustCompile(`[.!?;:…]+\s+|\n+`)

// splitText breaks text into pieces of at most limit runes, preferring
// sentence boundaries, then word boundaries. Adjacent short pieces are
// merged to keep the request count low.
func splitText(text string, limit int) []string {
	var pieces []string
	for _, s := range splitSentences(text) {
		if utf8.RuneCountInString(s) <= limit {
			pieces = append(pieces, s)
			continue
		}
		pieces = append(pieces, splitWords(s, limit)...)
	}
	return mergePieces(pieces, limit)
}

func splitSentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[last:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		out = append(out, s)
	}
	return out
}

func splitWords(sentence string, limit int) []string {
	var out []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
	}
	for _, w := range strings.Fields(sentence) {
		wl := utf8.RuneCountInString(w)
		if wl > limit {
			flush()
			out = append(out, splitRunes(w, limit)...)
			continue
		}
		if curLen > 0 && curLen+1+wl > limit {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(w)
		curLen += wl
	}
	flush()
	return out
}

func splitRunes(word string, limit int) []string {
	var out []string
	r := []rune(word)
	for len(r) > limit {
		out = append(out, string(r[:limit]))
		r = r[limit:]
	}
	if len(r) > 0 {
		out = append(out, string(r))
	}
	return out
}

func mergePieces(pieces []string, limit int) []string {
	var out []string
	for _, p := range pieces {
		if n := len(out); n > 0 && utf8.RuneCountInString(out[n-1])+1+utf8.RuneCountInString(p) <= limit {
			out[n-1] += " " + p
			continue
		}
		out = append(out, p)
	}
	return out
}
