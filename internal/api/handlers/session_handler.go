package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/readaloud/internal/core"
	"github.com/markdave123-py/readaloud/internal/core/autoread"
	"github.com/markdave123-py/readaloud/internal/observability"
	"github.com/markdave123-py/readaloud/internal/services"
)

// SessionHandler exposes the caller's auto-read controller.
type SessionHandler struct {
	reader *services.ReaderService
	log    *observability.Logger
}

func NewSessionHandler(reader *services.ReaderService, log *observability.Logger) *SessionHandler {
	return &SessionHandler{reader: reader, log: log.WithOperation("session")}
}

func (h *SessionHandler) controller(w http.ResponseWriter, r *http.Request) (*autoread.Controller, bool) {
	userID, ok := userID(w, r)
	if !ok {
		return nil, false
	}
	ctrl, err := h.reader.Session(userID)
	if err != nil {
		writeError(w, h.log, err)
		return nil, false
	}
	return ctrl, true
}

// reply writes the snapshot of a controller operation.
func (h *SessionHandler) reply(w http.ResponseWriter, snap autoread.Snapshot, err error) {
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SessionHandler) State(w http.ResponseWriter, r *http.Request) {
	if ctrl, ok := h.controller(w, r); ok {
		writeJSON(w, http.StatusOK, ctrl.Snapshot())
	}
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	if ctrl, ok := h.controller(w, r); ok {
		snap, err := ctrl.Start()
		h.reply(w, snap, err)
	}
}

func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if ctrl, ok := h.controller(w, r); ok {
		snap, err := ctrl.Stop()
		h.reply(w, snap, err)
	}
}

func (h *SessionHandler) Next(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	auto := false
	if v := r.URL.Query().Get("auto"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, h.log, core.ValidationError("auto must be true or false", err))
			return
		}
		auto = b
	}
	snap, err := ctrl.Next(auto)
	h.reply(w, snap, err)
}

func (h *SessionHandler) Previous(w http.ResponseWriter, r *http.Request) {
	if ctrl, ok := h.controller(w, r); ok {
		snap, err := ctrl.Previous()
		h.reply(w, snap, err)
	}
}

type jumpRequest struct {
	Page int `json:"page"`
}

func (h *SessionHandler) Jump(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	var req jumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, core.ValidationError("invalid body", err))
		return
	}
	snap, err := ctrl.JumpTo(req.Page)
	h.reply(w, snap, err)
}

// CompleteNarration is called by the player when audio playback ends.
func (h *SessionHandler) CompleteNarration(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	snap, applied := ctrl.OnNarrationComplete(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]any{"applied": applied, "session": snap})
}

func (h *SessionHandler) NarrationAudio(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	audio, err := ctrl.Audio(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	w.Header().Set("Content-Type", audio.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(audio.Data)
}

// PageImage serves the rendered page; ?processed=true returns the bitmap
// used for recognition instead.
func (h *SessionHandler) PageImage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, h.log, core.ValidationError("page must be a number", err))
		return
	}
	pg, err := ctrl.Page(r.Context(), n)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	img := pg.Preview
	if processed, _ := strconv.ParseBool(r.URL.Query().Get("processed")); processed {
		img = pg.Processed
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(img)
}

func (h *SessionHandler) PageText(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, h.log, core.ValidationError("page must be a number", err))
		return
	}
	pg, err := ctrl.Page(r.Context(), n)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"page": n, "text": pg.Text})
}

func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.reader.Close(r.Context(), userID); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Voices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.reader.Voices())
}
