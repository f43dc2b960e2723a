package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/gangstat197/ise-music-app/pkg/models"
)

// handleCreateUser registers a new user (POST json username/email).
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "Bad request", "Invalid JSON body", err)
		return
	}
	if req.Username == "" || req.Email == "" {
		s.respondError(w, r, http.StatusBadRequest, "Bad request", "username and email are required", nil)
		return
	}

	user, err := s.store.CreateUser(req.Username, req.Email)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, user)
}

// handleLogin is the stub login: it resolves an email to a user, creating
// one when none exists. No password is checked.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "Bad request", "Invalid JSON body", err)
		return
	}
	if req.Email == "" {
		s.respondError(w, r, http.StatusBadRequest, "Bad request", "email is required", nil)
		return
	}

	user, err := s.store.LoginByEmail(req.Email, req.Username)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

// handleGetUser returns a user profile.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := s.store.GetUserByID(id)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

// handleUpdateUser applies a partial profile patch.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	var patch models.UserPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "Bad request", "Invalid JSON body", err)
		return
	}

	user, err := s.store.UpdateUser(id, patch)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

// pathID parses a numeric path variable, responding with 400 on failure.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, r, http.StatusBadRequest, "Bad request", "Invalid "+name, err)
		return 0, false
	}
	return id, true
}
