package http

import (
	"errors"
	"net/http"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	// passwords are not trimmed
	user, err := s.accounts.Register(r.Context(), p.Get("username"), p.rawGet("password"), p.rawGet("confirmation"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if err := s.sessions.Issue(w, Session{UserID: user.ID}); err != nil {
		s.handleError(w, r, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "User registered", log.FieldUserID, user.ID)
	writeJSON(w, http.StatusCreated, userView{ID: user.ID, Username: user.Username})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	user, err := s.accounts.Authenticate(r.Context(), p.Get("username"), p.rawGet("password"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if err := s.sessions.Issue(w, Session{UserID: user.ID}); err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userView{ID: user.ID, Username: user.Username})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, err := mustSession(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	p, err := parseBody(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if err := s.accounts.ChangePassword(r.Context(), sess.UserID, p.rawGet("current"), p.rawGet("password"), p.rawGet("confirmation")); err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			// a wrong current password must not end the session
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "password changed"})
}
