package narration

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/markdave123-py/readaloud/internal/core"
)

func TestCloudTTSSynthesize(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString([]byte("mp3-bytes")),
		})
	}))
	defer srv.Close()

	tts, err := NewCloudTTS(context.Background(), "test-key",
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	audio, err := tts.Synthesize(context.Background(), "Xin chào", testVoice)

	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(audio.Data))
	assert.Equal(t, "audio/mpeg", audio.MimeType)

	voice := body["voice"].(map[string]any)
	assert.Equal(t, "vi-VN-Wavenet-A", voice["name"])
	cfg := body["audioConfig"].(map[string]any)
	assert.Equal(t, "MP3", cfg["audioEncoding"])
	assert.InDelta(t, 1.15, cfg["speakingRate"], 1e-9)
}

func TestCloudTTSServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	tts, err := NewCloudTTS(context.Background(), "test-key",
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = tts.Synthesize(context.Background(), "Xin chào", testVoice)
	assert.Error(t, err)
}

func TestNewCloudTTSRequiresKey(t *testing.T) {
	_, err := NewCloudTTS(context.Background(), "")
	assert.Equal(t, core.ErrorTypeConfig, core.TypeOf(err))
}

func TestCatalog(t *testing.T) {
	c := NewCatalog("vi-VN", 1.15, "MALE")

	v, err := c.Lookup("female")
	require.NoError(t, err)
	assert.Equal(t, "vi-VN-Wavenet-A", v.Name)
	assert.InDelta(t, 1.15, v.Rate, 1e-9)

	v, err = c.Lookup("")
	require.NoError(t, err)
	assert.Equal(t, VoiceMale, v.ID)

	_, err = c.Lookup("robot")
	assert.Equal(t, core.ErrorTypeValidation, core.TypeOf(err))

	assert.Len(t, c.List(), 2)

	v, err = NewCatalog("", 0, "x").Lookup("")
	require.NoError(t, err)
	assert.Equal(t, VoiceFemale, v.ID, "unknown default falls back to female")
}
