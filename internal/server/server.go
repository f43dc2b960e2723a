// Package server wires the HTTP gateway: routing, cross-origin policy,
// static serving of the uploads tree and the JSON error boundary.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/gangstat197/ise-music-app/internal/config"
	"github.com/gangstat197/ise-music-app/internal/ingest"
	"github.com/gangstat197/ise-music-app/internal/store"
)

// Server is the HTTP gateway over the music library.
type Server struct {
	cfg    *config.Config
	store  *store.Store
	ingest *ingest.Service
	logger *logrus.Logger
}

// NewServer creates a new server instance.
func NewServer(cfg *config.Config, st *store.Store, ing *ingest.Service, logger *logrus.Logger) *Server {
	return &Server{
		cfg:    cfg,
		store:  st,
		ingest: ing,
		logger: logger,
	}
}

// Router builds the full route surface. Favorites and playlists are mounted
// once, under their top-level routers.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.corsMiddleware)
	router.Use(s.requestLoggingMiddleware)

	router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Songs
	api.HandleFunc("/songs/upload", s.handleUploadSong).Methods(http.MethodPost)
	api.HandleFunc("/songs", s.handleListSongs).Methods(http.MethodGet)
	api.HandleFunc("/songs/{id:[0-9]+}", s.handleGetSong).Methods(http.MethodGet)
	api.HandleFunc("/songs/{id:[0-9]+}", s.handleUpdateSong).Methods(http.MethodPut)
	api.HandleFunc("/songs/{id:[0-9]+}", s.handleDeleteSong).Methods(http.MethodDelete)
	api.HandleFunc("/songs/{id:[0-9]+}/file", s.handleSongFile).Methods(http.MethodGet)
	api.HandleFunc("/songs/{id:[0-9]+}/download", s.handleSongDownload).Methods(http.MethodGet)
	api.HandleFunc("/songs/{id:[0-9]+}/image", s.handleSongImage).Methods(http.MethodGet)

	// Users
	api.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)
	api.HandleFunc("/users/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/users/{id:[0-9]+}", s.handleGetUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}", s.handleUpdateUser).Methods(http.MethodPut)

	// Favorites
	api.HandleFunc("/favorites/{user_id:[0-9]+}", s.handleGetFavorites).Methods(http.MethodGet)
	api.HandleFunc("/favorites/{user_id:[0-9]+}/{song_id:[0-9]+}", s.handleAddFavorite).Methods(http.MethodPost)
	api.HandleFunc("/favorites/{user_id:[0-9]+}/{song_id:[0-9]+}", s.handleRemoveFavorite).Methods(http.MethodDelete)

	// Playlists
	api.HandleFunc("/playlists/{user_id:[0-9]+}", s.handleGetPlaylists).Methods(http.MethodGet)
	api.HandleFunc("/playlists/{user_id:[0-9]+}", s.handleCreatePlaylist).Methods(http.MethodPost)
	api.HandleFunc("/playlists/{user_id:[0-9]+}/{playlist_id:[0-9]+}", s.handleGetPlaylist).Methods(http.MethodGet)
	api.HandleFunc("/playlists/{user_id:[0-9]+}/{playlist_id:[0-9]+}", s.handleUpdatePlaylist).Methods(http.MethodPut)
	api.HandleFunc("/playlists/{user_id:[0-9]+}/{playlist_id:[0-9]+}", s.handleDeletePlaylist).Methods(http.MethodDelete)
	api.HandleFunc("/playlists/{user_id:[0-9]+}/{playlist_id:[0-9]+}/songs/reorder", s.handleReorderPlaylist).Methods(http.MethodPut)
	api.HandleFunc("/playlists/{user_id:[0-9]+}/{playlist_id:[0-9]+}/songs/{song_id:[0-9]+}", s.handleAddPlaylistSong).Methods(http.MethodPost)
	api.HandleFunc("/playlists/{user_id:[0-9]+}/{playlist_id:[0-9]+}/songs/{song_id:[0-9]+}", s.handleRemovePlaylistSong).Methods(http.MethodDelete)

	// Static file serving of the uploads tree
	uploadsFileServer := http.FileServer(http.Dir(s.cfg.Uploads.Root))
	router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", uploadsFileServer))

	// Routes above match specific methods only, so a preflight OPTIONS
	// request would fall through to the 404 handler without ever entering
	// the middleware chain. This catch-all gives it a matching route; the
	// CORS middleware then answers it.
	router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {})

	return router
}

// Run starts the HTTP server and blocks until an interrupt or SIGTERM, then
// shuts down gracefully.
func (s *Server) Run() error {
	if err := os.MkdirAll(s.cfg.SongsDir(), 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(s.cfg.ImagesDir(), 0755); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         s.cfg.GetAddress(),
		Handler:      s.Router(),
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: 2 * time.Duration(s.cfg.Server.ReadTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("address", httpServer.Addr).Info("Server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	s.logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

// handleRoot returns service metadata.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Music Player API",
		"version": "1.0.0",
	})
}
