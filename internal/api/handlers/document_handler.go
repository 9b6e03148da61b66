package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/readaloud/internal/core"
	"github.com/markdave123-py/readaloud/internal/core/render"
	"github.com/markdave123-py/readaloud/internal/observability"
	"github.com/markdave123-py/readaloud/internal/services"
)

type DocumentHandler struct {
	docs *services.DocumentService
	log  *observability.Logger
}

func NewDocumentHandler(docs *services.DocumentService, log *observability.Logger) *DocumentHandler {
	return &DocumentHandler{docs: docs, log: log.WithOperation("documents")}
}

// UploadDocument stores a PDF and opens a reading session on it.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, render.MaxDocumentSize+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, h.log, core.ValidationError("document is too large", err))
			return
		}
		writeError(w, h.log, core.ValidationError("invalid multipart form", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.log, core.ValidationError("invalid file", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, h.log, core.IOError("failed to read upload", err))
		return
	}

	settings, err := sessionSettings(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	uploadctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	doc, snap, err := h.docs.Upload(uploadctx, userID, header.Filename, header.Header.Get("Content-Type"), data, settings)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"document": doc, "session": snap})
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(w, r)
	if !ok {
		return
	}

	documents, err := h.docs.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, documents)
}

// OpenDocument starts a reading session on a stored document.
func (h *DocumentHandler) OpenDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(w, r)
	if !ok {
		return
	}

	settings, err := sessionSettings(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	doc, snap, err := h.docs.Open(r.Context(), userID, chi.URLParam(r, "id"), settings)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": doc, "session": snap})
}
