package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gangstat197/ise-music-app/internal/store"
	"github.com/gangstat197/ise-music-app/pkg/models"
)

// handleUploadSong ingests a multipart upload: the audio blob goes to
// durable storage under a collision-free name, metadata extraction is
// best-effort, and the song row is created even when extraction fails.
func (s *Server) handleUploadSong(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "Bad request", "Failed to parse upload form", err)
		return
	}

	title := r.FormValue("title")
	artist := r.FormValue("artist")
	if title == "" || artist == "" {
		s.respondError(w, r, http.StatusBadRequest, "Bad request", "title and artist are required", nil)
		return
	}

	song := &models.Song{Title: title, Artist: artist}
	if v := r.FormValue("album"); v != "" {
		song.Album = &v
	}
	if v := r.FormValue("genre"); v != "" {
		song.Genre = &v
	}
	if v := r.FormValue("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, "Bad request", "year must be an integer", err)
			return
		}
		song.Year = &year
	}
	if v := r.FormValue("user_id"); v != "" {
		ownerID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, "Bad request", "user_id must be an integer", err)
			return
		}
		song.OwnerID = &ownerID
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "Bad request", "No file provided", err)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !s.cfg.IsExtensionAllowed(ext) {
		s.respondError(w, r, http.StatusBadRequest, "Bad request",
			"Only "+strings.ToUpper(strings.Join(trimDots(s.cfg.Uploads.AllowedExtensions), ", "))+" files are allowed", nil)
		return
	}
	song.FileType = strings.TrimPrefix(ext, ".")

	storedPath, err := s.ingest.Store(file, s.cfg.SongsDir(), header.Filename)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "Internal server error", "Failed to store uploaded file", err)
		return
	}
	song.FilePath = storedPath

	// Metadata is enrichment: a failed extraction leaves duration null and
	// the upload proceeds.
	meta := s.ingest.ExtractMetadata(storedPath)
	song.Duration = meta.Duration
	if stat, err := os.Stat(storedPath); err == nil {
		size := stat.Size()
		song.FileSize = &size
	}

	if image, imageHeader, err := r.FormFile("image"); err == nil {
		defer image.Close()
		imagePath, err := s.ingest.Store(image, s.cfg.ImagesDir(), imageHeader.Filename)
		if err != nil {
			s.ingest.Delete(storedPath)
			s.respondError(w, r, http.StatusInternalServerError, "Internal server error", "Failed to store cover image", err)
			return
		}
		song.ImagePath = &imagePath
	} else if err != http.ErrMissingFile {
		s.ingest.Delete(storedPath)
		s.respondError(w, r, http.StatusBadRequest, "Bad request", "Error processing cover image", err)
		return
	}

	id, err := s.store.InsertSong(song)
	if err != nil {
		s.ingest.Delete(storedPath)
		if song.ImagePath != nil {
			s.ingest.Delete(*song.ImagePath)
		}
		s.respondStoreError(w, r, err)
		return
	}

	created, err := s.store.GetSongByID(id)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"song_id":  id,
		"title":    created.Title,
		"artist":   created.Artist,
		"path":     storedPath,
		"meta_err": meta.Err,
	}).Info("Song uploaded")
	s.respondJSON(w, http.StatusCreated, created)
}

// handleListSongs returns songs filtered by search/artist/genre with
// skip/limit paging.
func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.SongFilter{
		Search: q.Get("search"),
		Artist: q.Get("artist"),
		Genre:  q.Get("genre"),
	}
	if v := q.Get("skip"); v != "" {
		skip, err := strconv.Atoi(v)
		if err != nil || skip < 0 {
			s.respondError(w, r, http.StatusBadRequest, "Bad request", "skip must be a non-negative integer", err)
			return
		}
		filter.Skip = skip
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			s.respondError(w, r, http.StatusBadRequest, "Bad request", "limit must be a non-negative integer", err)
			return
		}
		filter.Limit = limit
	}

	songs, err := s.store.ListSongs(filter)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, songs)
}

// handleGetSong returns a single song by ID.
func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	song, err := s.store.GetSongByID(id)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, song)
}

// handleSongFile streams the audio blob with a content type derived from the
// stored file type. Range requests are honored for seeking.
func (s *Server) handleSongFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	song, err := s.store.GetSongByID(id)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	if _, err := os.Stat(song.FilePath); err != nil {
		s.respondError(w, r, http.StatusNotFound, "Not found", "Audio file not found", err)
		return
	}

	w.Header().Set("Content-Type", s.ingest.ContentType(song.FileType))
	w.Header().Set("Accept-Ranges", "bytes")
	http.ServeFile(w, r, song.FilePath)
}

// handleSongDownload forces the audio blob as an attachment.
func (s *Server) handleSongDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	song, err := s.store.GetSongByID(id)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	if _, err := os.Stat(song.FilePath); err != nil {
		s.respondError(w, r, http.StatusNotFound, "Not found", "Audio file not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", song.Title+"."+song.FileType))
	http.ServeFile(w, r, song.FilePath)
}

// handleSongImage serves the cover art, or 404 when the song has none.
func (s *Server) handleSongImage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	song, err := s.store.GetSongByID(id)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	if song.ImagePath == nil {
		s.respondError(w, r, http.StatusNotFound, "Not found", "Song has no cover image", nil)
		return
	}
	if _, err := os.Stat(*song.ImagePath); err != nil {
		s.respondError(w, r, http.StatusNotFound, "Not found", "Cover image not found", err)
		return
	}
	http.ServeFile(w, r, *song.ImagePath)
}

// handleUpdateSong applies a partial metadata patch.
func (s *Server) handleUpdateSong(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	var patch models.SongPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "Bad request", "Invalid JSON body", err)
		return
	}

	song, err := s.store.UpdateSong(id, patch)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, song)
}

// handleDeleteSong removes the song row (favorites and playlist entries
// cascade) and best-effort deletes the backing file.
func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	song, err := s.store.GetSongByID(id)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	if err := s.store.DeleteSong(id); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	// A missing blob is not an error; the row is already gone.
	s.ingest.Delete(song.FilePath)

	w.WriteHeader(http.StatusNoContent)
}

func trimDots(exts []string) []string {
	out := make([]string, len(exts))
	for i, ext := range exts {
		out[i] = strings.TrimPrefix(ext, ".")
	}
	return out
}
