package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	middleware "github.com/markdave123-py/readaloud/internal/api/middlewares"
	"github.com/markdave123-py/readaloud/internal/core"
	"github.com/markdave123-py/readaloud/internal/core/autoread"
	"github.com/markdave123-py/readaloud/internal/core/cache"
	"github.com/markdave123-py/readaloud/internal/core/coretest"
	"github.com/markdave123-py/readaloud/internal/core/narration"
	"github.com/markdave123-py/readaloud/internal/core/pages"
	"github.com/markdave123-py/readaloud/internal/models"
	"github.com/markdave123-py/readaloud/internal/observability"
	"github.com/markdave123-py/readaloud/internal/services"
)

type fakeDB struct {
	mu    sync.Mutex
	users map[string]*models.User
	docs  map[string]*models.Document
}

func newFakeDB() *fakeDB {
	return &fakeDB{users: map[string]*models.User{}, docs: map[string]*models.Document{}}
}

func (f *fakeDB) CreateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.Email] = u
	return nil
}

func (f *fakeDB) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[email], nil
}

func (f *fakeDB) CreateDocument(_ context.Context, d *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *d
	f.docs[d.ID] = &cp
	return nil
}

func (f *fakeDB) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[id], nil
}

func (f *fakeDB) ListDocumentsByUser(_ context.Context, userID string) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Document
	for _, d := range f.docs {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDB) UpdateDocumentStatus(context.Context, string, string) error { return nil }
func (f *fakeDB) Close() error                                               { return nil }

type fakeStore struct{ data map[string][]byte }

func (s *fakeStore) UploadFile(_ context.Context, bucket, key string, data []byte, _ string) (string, error) {
	s.data[key] = data
	return "https://" + bucket + ".s3.us-east-2.amazonaws.com/" + key, nil
}
func (s *fakeStore) DeleteFile(context.Context, string, string) error { return nil }
func (s *fakeStore) GetFile(_ context.Context, _, key string) ([]byte, error) {
	return s.data[key], nil
}

type testServer struct {
	router   http.Handler
	reader   *services.ReaderService
	renderer *coretest.Renderer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := observability.Nop()
	mem := cache.NewMemoryClient(100)
	t.Cleanup(func() { _ = mem.Close() })

	ex := &coretest.Extractor{Texts: map[int]string{1: "Trang một", 2: "Trang hai", 3: "Trang ba"}}
	narrator, err := narration.NewNarrator(&coretest.Speech{BackendName: "primary"}, nil, nil)
	require.NoError(t, err)

	reader := services.NewReaderService(
		pages.NewPipeline(ex, mem, pages.Options{}, nil),
		narrator,
		narration.NewCatalog("vi-VN", 1.15, "female"),
		services.ReaderOptions{Pages: pages.DefaultConfig(), MinTextLength: 2},
		log,
	)
	t.Cleanup(reader.Shutdown)

	db := newFakeDB()
	renderer := &coretest.Renderer{Doc: coretest.NewDocument(3)}
	docs := services.NewDocumentService(db, &fakeStore{data: map[string][]byte{}}, "bucket", renderer, reader, log)

	auth := NewAuthHandler(services.NewUserService(db), "s3cret", log)
	docHandler := NewDocumentHandler(docs, log)
	sess := NewSessionHandler(reader, log)

	r := chi.NewRouter()
	r.Post("/api/signup", auth.Signup)
	r.Post("/api/login", auth.Login)
	r.Get("/health", NewHealthHandler(map[string]any{"ocr_engine": "fake"}).Health)
	r.Group(func(p chi.Router) {
		p.Use(middleware.JWTMiddleware("s3cret"))
		p.Post("/api/documents/upload", docHandler.UploadDocument)
		p.Get("/api/documents", docHandler.GetDocuments)
		p.Post("/api/documents/{id}/open", docHandler.OpenDocument)
		p.Get("/api/voices", sess.Voices)
		p.Route("/api/session", func(s chi.Router) {
			s.Get("/", sess.State)
			s.Delete("/", sess.Close)
			s.Post("/start", sess.Start)
			s.Post("/stop", sess.Stop)
			s.Post("/next", sess.Next)
			s.Post("/previous", sess.Previous)
			s.Post("/jump", sess.Jump)
			s.Post("/narrations/{id}/complete", sess.CompleteNarration)
			s.Get("/narrations/{id}/audio", sess.NarrationAudio)
			s.Get("/pages/{n}/image", sess.PageImage)
			s.Get("/pages/{n}/text", sess.PageText)
		})
	})
	return &testServer{router: r, reader: reader, renderer: renderer}
}

func (s *testServer) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signup(t *testing.T, email string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/signup", "",
		strings.NewReader(`{"email":"`+email+`","password":"secret1"}`), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out["token"]
}

func (s *testServer) upload(t *testing.T, token string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "sach.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("%PDF-1.7 fake"))
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return s.do(t, http.MethodPost, "/api/documents/upload", token, &buf, mw.FormDataContentType())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "lan@example.com")

	rec := s.do(t, http.MethodPost, "/api/signup", "",
		strings.NewReader(`{"email":"lan@example.com","password":"secret1"}`), "application/json")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/login", "",
		strings.NewReader(`{"email":"lan@example.com","password":"secret1"}`), "application/json")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[map[string]string](t, rec)["token"])

	rec = s.do(t, http.MethodPost, "/api/login", "",
		strings.NewReader(`{"email":"lan@example.com","password":"nope"}`), "application/json")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode[map[string]string](t, rec)["type"])

	rec = s.do(t, http.MethodPost, "/api/login", "", strings.NewReader(`{`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/session", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "fake", body["ocr_engine"])
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "lan@example.com")

	rec := s.do(t, http.MethodGet, "/api/session", token, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.upload(t, token, map[string]string{"voice": "male", "psm": "4"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	up := decode[struct {
		Document models.Document   `json:"document"`
		Session  autoread.Snapshot `json:"session"`
	}](t, rec)
	assert.Equal(t, 3, up.Document.PageCount)
	assert.Equal(t, "male", up.Session.Voice)
	assert.Equal(t, autoread.StateIdle, up.Session.State)

	rec = s.do(t, http.MethodGet, "/api/documents", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Document](t, rec), 1)

	rec = s.do(t, http.MethodPost, "/api/session/jump", token, strings.NewReader(`{"page":7}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "out_of_range", decode[map[string]string](t, rec)["type"])

	rec = s.do(t, http.MethodPost, "/api/session/next?auto=maybe", token, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/session/start", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, autoread.StateReading, decode[autoread.Snapshot](t, rec).State)

	var playing *autoread.Narration
	require.Eventually(t, func() bool {
		snap := decode[autoread.Snapshot](t, s.do(t, http.MethodGet, "/api/session", token, nil, ""))
		if snap.Narration != nil && snap.Narration.Status == autoread.NarrationPlaying {
			playing = snap.Narration
			return true
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	rec = s.do(t, http.MethodGet, "/api/session/narrations/"+playing.ID+"/audio", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "primary:Trang một", rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/session/narrations/"+playing.ID+"/complete", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	done := decode[struct {
		Applied bool              `json:"applied"`
		Session autoread.Snapshot `json:"session"`
	}](t, rec)
	assert.True(t, done.Applied)
	assert.Equal(t, 2, done.Session.Page)

	rec = s.do(t, http.MethodPost, "/api/session/narrations/"+playing.ID+"/complete", token, nil, "")
	assert.False(t, decode[map[string]any](t, rec)["applied"].(bool))

	rec = s.do(t, http.MethodPost, "/api/session/stop", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[autoread.Snapshot](t, rec)
	assert.Equal(t, autoread.StateIdle, snap.State)
	assert.False(t, snap.AutoAdvance)

	rec = s.do(t, http.MethodPost, "/api/session/previous", token, nil, "")
	assert.Equal(t, 1, decode[autoread.Snapshot](t, rec).Page)

	rec = s.do(t, http.MethodGet, "/api/session/pages/3/text", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Trang ba", decode[map[string]any](t, rec)["text"])

	rec = s.do(t, http.MethodGet, "/api/session/pages/1/image?processed=true", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = s.do(t, http.MethodGet, "/api/session/pages/9/image", token, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/session/pages/x/text", token, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/session", token, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/session", token, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.renderer.Doc = coretest.NewDocument(3)
	rec = s.do(t, http.MethodPost, "/api/documents/"+up.Document.ID+"/open?voice=female", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodGet, "/api/session", token, nil, "")
	assert.Equal(t, "female", decode[autoread.Snapshot](t, rec).Voice)
}

func TestAutoNextStartsReadingOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "lan@example.com")

	rec := s.upload(t, token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/session/next?auto=true", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[autoread.Snapshot](t, rec)
	assert.Equal(t, 2, snap.Page)
	assert.True(t, snap.AutoAdvance)
	assert.Equal(t, autoread.StateReading, snap.State)

	rec = s.do(t, http.MethodPost, "/api/session/next", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[autoread.Snapshot](t, rec).Page)
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "lan@example.com")

	rec := s.upload(t, token, map[string]string{"voice": "robot"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.upload(t, token, map[string]string{"binarize": "sometimes"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.renderer.Err = core.CorruptDocumentError("not a PDF", nil)
	rec = s.upload(t, token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "corrupt_document", decode[map[string]string](t, rec)["type"])

	rec = s.do(t, http.MethodPost, "/api/documents/upload", token, strings.NewReader("x"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoices(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "lan@example.com")

	rec := s.do(t, http.MethodGet, "/api/voices", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	voices := decode[[]core.Voice](t, rec)
	require.Len(t, voices, 2)
	assert.Equal(t, "female", voices[0].ID)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, statusFor(core.ErrorTypeNarrationFailure))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(core.ErrorTypeConfig))
	assert.Equal(t, http.StatusInternalServerError, statusFor(core.ErrorTypeIO))
	assert.Equal(t, http.StatusNotFound, statusFor(core.ErrorTypeNotFound))
}
