package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/careloop/hms-backend/internal/auth"
	"github.com/careloop/hms-backend/internal/user"
)

type AuthHandler struct {
	users    *user.Service
	tokens   *auth.TokenIssuer
	validate *validator.Validate
	log      zerolog.Logger
}

func NewAuthHandler(users *user.Service, tokens *auth.TokenIssuer, validate *validator.Validate, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, validate: validate, log: log}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !bindJSON(w, r, h.validate, &req) {
		return
	}

	account, err := h.users.RegisterPatient(r.Context(), req.Username, req.Email, req.Password, req.FullName)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPatientResponse(account))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !bindJSON(w, r, h.validate, &req) {
		return
	}

	u, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}

	token, err := h.tokens.Issue(u.ID, u.Role)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, User: toUserResponse(u)})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	u, err := h.users.GetUser(r.Context(), ident.UserID)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}
