package server

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/gangstat197/ise-music-app/pkg/models"
)

// handleGetPlaylists lists the user's playlists, newest first.
func (s *Server) handleGetPlaylists(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "user_id")
	if !ok {
		return
	}
	playlists, err := s.store.GetUserPlaylists(userID)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, playlists)
}

// handleCreatePlaylist creates an empty playlist for the user.
func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "user_id")
	if !ok {
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "Bad request", "Invalid JSON body", err)
		return
	}
	if body.Name == "" {
		s.respondError(w, r, http.StatusBadRequest, "Bad request", "name is required", nil)
		return
	}

	playlist, err := s.store.CreatePlaylist(userID, body.Name)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     userID,
		"playlist_id": playlist.ID,
		"name":        playlist.Name,
	}).Info("Playlist created")
	s.respondJSON(w, http.StatusCreated, playlist)
}

// handleGetPlaylist returns the playlist together with its songs in
// playlist order.
func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "user_id")
	if !ok {
		return
	}
	playlistID, ok := s.pathID(w, r, "playlist_id")
	if !ok {
		return
	}

	detail, err := s.store.GetPlaylistDetail(userID, playlistID)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, detail)
}

// handleUpdatePlaylist renames the playlist.
func (s *Server) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "user_id")
	if !ok {
		return
	}
	playlistID, ok := s.pathID(w, r, "playlist_id")
	if !ok {
		return
	}

	var patch models.PlaylistPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "Bad request", "Invalid JSON body", err)
		return
	}

	playlist, err := s.store.UpdatePlaylist(userID, playlistID, patch)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, playlist)
}

// handleDeletePlaylist removes the playlist; its entries cascade.
func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "user_id")
	if !ok {
		return
	}
	playlistID, ok := s.pathID(w, r, "playlist_id")
	if !ok {
		return
	}

	if err := s.store.DeletePlaylist(userID, playlistID); err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAddPlaylistSong appends a song to the end of the playlist.
func (s *Server) handleAddPlaylistSong(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "user_id")
	if !ok {
		return
	}
	playlistID, ok := s.pathID(w, r, "playlist_id")
	if !ok {
		return
	}
	songID, ok := s.pathID(w, r, "song_id")
	if !ok {
		return
	}

	entry, err := s.store.AddSongToPlaylist(userID, playlistID, songID)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"playlist_id": playlistID,
		"song_id":     songID,
		"position":    entry.Position,
	}).Debug("Song added to playlist")
	s.respondJSON(w, http.StatusCreated, entry)
}

// handleRemovePlaylistSong removes a song from the playlist. Positions of the
// remaining entries are left untouched; relative order is preserved.
func (s *Server) handleRemovePlaylistSong(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "user_id")
	if !ok {
		return
	}
	playlistID, ok := s.pathID(w, r, "playlist_id")
	if !ok {
		return
	}
	songID, ok := s.pathID(w, r, "song_id")
	if !ok {
		return
	}

	if err := s.store.RemoveSongFromPlaylist(userID, playlistID, songID); err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReorderPlaylist rewrites entry positions to match the submitted song
// ID order. Callers send the complete membership list.
func (s *Server) handleReorderPlaylist(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "user_id")
	if !ok {
		return
	}
	playlistID, ok := s.pathID(w, r, "playlist_id")
	if !ok {
		return
	}

	var body struct {
		SongIDs []int64 `json:"song_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "Bad request", "Invalid JSON body", err)
		return
	}

	if err := s.store.ReorderPlaylist(userID, playlistID, body.SongIDs); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	detail, err := s.store.GetPlaylistDetail(userID, playlistID)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, detail)
}
