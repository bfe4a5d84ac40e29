package web

import (
	"errors"
	"net/http"
	"time"

	"mascot-factory/internal/account"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string        `json:"token"`
	User  *account.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := s.accounts.Register(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, account.ErrExists):
		writeJSON(w, http.StatusConflict, apiError{Error: err.Error()})
	case errors.Is(err, account.ErrInvalidEmail), errors.Is(err, account.ErrWeakPassword):
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
	case err != nil:
		s.logger.Error("register failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "registration failed"})
	default:
		writeJSON(w, http.StatusCreated, u)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := s.accounts.Authenticate(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, apiError{Error: err.Error()})
		return
	case errors.Is(err, account.ErrPending), errors.Is(err, account.ErrExpired):
		writeJSON(w, http.StatusForbidden, apiError{Error: err.Error()})
		return
	case err != nil:
		s.logger.Error("login failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "login failed"})
		return
	}

	token := s.sessions.Create(u.Email)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: u})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		s.sessions.Destroy(token)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	User     *account.User `json:"user"`
	Workshop workshopView  `json:"workshop"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	st := s.workshop.Get(u.Email)
	writeJSON(w, http.StatusOK, meResponse{User: u, Workshop: viewOf(st, u.Role())})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.accounts.List(r.Context())
	if err != nil {
		s.logger.Error("list users failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "could not list users"})
		return
	}
	if users == nil {
		users = []account.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleApproveUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.accounts.Approve(r.Context(), r.PathValue("email"))
	if errors.Is(err, account.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, apiError{Error: err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("approve failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "could not approve user"})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	err := s.accounts.Remove(r.Context(), email)
	switch {
	case errors.Is(err, account.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiError{Error: err.Error()})
	case errors.Is(err, account.ErrProtected):
		writeJSON(w, http.StatusForbidden, apiError{Error: err.Error()})
	case err != nil:
		s.logger.Error("remove user failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "could not remove user"})
	default:
		s.sessions.DestroyUser(email)
		s.workshop.Reset(account.NormalizeEmail(email))
		w.WriteHeader(http.StatusNoContent)
	}
}
