package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	middleware "github.com/markdave123-py/readaloud/internal/api/middlewares"
	"github.com/markdave123-py/readaloud/internal/core"
	"github.com/markdave123-py/readaloud/internal/observability"
	"github.com/markdave123-py/readaloud/internal/services"
)

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	users  *services.UserService
	secret string
	log    *observability.Logger
}

func NewAuthHandler(users *services.UserService, secret string, log *observability.Logger) *AuthHandler {
	return &AuthHandler{users: users, secret: secret, log: log.WithOperation("auth")}
}

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, core.ValidationError("invalid body", err))
		return
	}

	user, err := h.users.Register(r.Context(), req.Email, req.Password, req.FirstName)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.issueToken(w, http.StatusCreated, user.ID)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, core.ValidationError("invalid body", err))
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.issueToken(w, http.StatusOK, user.ID)
}

func (h *AuthHandler) issueToken(w http.ResponseWriter, status int, userID string) {
	token, err := middleware.GenerateToken(h.secret, userID, tokenTTL)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, status, map[string]string{"token": token})
}
