package handlers

import (
	"errors"
	"net/http"

	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/middleware"
	"github.com/AnshRaj112/visited-regions-backend/internal/models"
	"github.com/AnshRaj112/visited-regions-backend/internal/services"
)

// AuthResponse is returned by signup, signin and me.
type AuthResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *models.User `json:"user,omitempty"`
	Token   string       `json:"token,omitempty"`
}

type AuthHandler struct {
	auth *services.Auth
	log  logger.Logger
}

func NewAuthHandler(auth *services.Auth, log logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignUpInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	user, err := h.auth.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.Info("user signed up", logger.String("user_id", user.ID.String()))
	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Account created. Please sign in.",
		User:    &user,
	})
}

// Signin handles POST /api/auth/signin.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req services.SignInInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	token, user, err := h.auth.SignIn(r.Context(), req)
	if errors.Is(err, services.ErrUnauthorized) {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Signed in",
		User:    &user,
		Token:   token,
	})
}

// Signout handles POST /api/auth/signout. Signing out twice is not an error.
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context(), middleware.TokenFromContext(r.Context())); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeMessage(w, http.StatusOK, "Signed out")
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), middleware.SessionFromContext(r.Context()))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "OK", User: &user})
}
