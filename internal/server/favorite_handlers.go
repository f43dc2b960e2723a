package server

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// handleGetFavorites returns the user's favorite songs, most recently
// added first.
func (s *Server) handleGetFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "user_id")
	if !ok {
		return
	}
	songs, err := s.store.GetFavoriteSongs(userID)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, songs)
}

// handleAddFavorite marks a song as a favorite of the user.
func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "user_id")
	if !ok {
		return
	}
	songID, ok := s.pathID(w, r, "song_id")
	if !ok {
		return
	}

	favorite, err := s.store.AddFavorite(userID, songID)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"song_id": songID,
	}).Debug("Favorite added")
	s.respondJSON(w, http.StatusCreated, favorite)
}

// handleRemoveFavorite unmarks a favorite.
func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "user_id")
	if !ok {
		return
	}
	songID, ok := s.pathID(w, r, "song_id")
	if !ok {
		return
	}

	if err := s.store.RemoveFavorite(userID, songID); err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
