package httpapi

import (
	"errors"
	"net/http"
	"strings"

	reminder "github.com/ace-232/day-planner-app"
	"github.com/ace-232/day-planner-app/internal/auth"
)

type signupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId,omitempty"`
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error("failed to hash password", "error", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	user := reminder.NewUser(strings.TrimSpace(req.Name), strings.TrimSpace(req.Email), hash)
	if err := s.cfg.Users.Create(r.Context(), user); err != nil {
		if errors.Is(err, reminder.ErrUserExists) {
			respondError(w, http.StatusBadRequest, "User already exists")
			return
		}
		s.log.Error("failed to create user", "error", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	token, err := s.cfg.Tokens.Issue(user.ID)
	if err != nil {
		s.log.Error("failed to issue token", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusCreated, tokenResponse{Token: token})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	user, err := s.cfg.Users.FindByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, reminder.ErrUserNotFound) {
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		s.log.Error("failed to find user", "error", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.cfg.Tokens.Issue(user.ID)
	if err != nil {
		s.log.Error("failed to issue token", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusOK, tokenResponse{Token: token, UserID: user.ID})
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"valid": true})
}
