package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Sentinel errors for expected, user-facing outcomes. Handlers map these to
// HTTP statuses; everything else is treated as an internal failure.
var (
	// ErrNotFound means a referenced user, song, playlist or join row is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness invariant would be violated.
	ErrConflict = errors.New("conflict")
)

// Store wraps a *sql.DB providing higher-level helper methods for the
// application's persistent state. It is safe for concurrent use because the
// underlying *sql.DB is concurrency-safe; uniqueness invariants are backed by
// schema-level UNIQUE constraints, the existence pre-checks here are
// best-effort only.
type Store struct {
	conn   *sql.DB
	logger *logrus.Logger
}

// NewStore opens (or creates) a SQLite database at the provided path and
// ensures all required tables and indices exist. Foreign keys are enforced on
// every connection so ON DELETE CASCADE holds across the pool. Caller should
// Close() it when finished.
func NewStore(dbPath string, maxConns int, logger *logrus.Logger) (*Store, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works better with fewer connections
	if maxConns < 1 {
		maxConns = 1
	}
	conn.SetMaxOpenConns(maxConns)
	idle := 2
	if idle > maxConns {
		idle = maxConns
	}
	conn.SetMaxIdleConns(idle)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	s := &Store{
		conn:   conn,
		logger: logger,
	}

	if err := s.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Database initialized successfully")
	return s, nil
}

// createTables creates tables and indices if they do not already exist.
// This is idempotent and safe to call multiple times.
func (s *Store) createTables() error {
	usersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	songsTable := `
	CREATE TABLE IF NOT EXISTS songs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		album TEXT,
		genre TEXT,
		year INTEGER,
		duration REAL,
		file_path TEXT NOT NULL UNIQUE,
		file_type TEXT NOT NULL,
		file_size INTEGER,
		image_path TEXT,
		owner_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
		upload_date DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	favoritesTable := `
	CREATE TABLE IF NOT EXISTS favorites (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		song_id INTEGER NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, song_id)
	);`

	playlistsTable := `
	CREATE TABLE IF NOT EXISTS playlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	// Songs deleted from the library cascade out of every playlist; the
	// UNIQUE pair is the authoritative backstop for duplicate entries.
	playlistSongsTable := `
	CREATE TABLE IF NOT EXISTS playlist_songs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
		song_id INTEGER NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL DEFAULT 0,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (playlist_id, song_id)
	);`

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_songs_artist ON songs(artist);",
		"CREATE INDEX IF NOT EXISTS idx_songs_genre ON songs(genre);",
		"CREATE INDEX IF NOT EXISTS idx_songs_search ON songs(title, artist, album);",
		"CREATE INDEX IF NOT EXISTS idx_songs_owner ON songs(owner_id);",
		"CREATE INDEX IF NOT EXISTS idx_favorites_user ON favorites(user_id);",
		"CREATE INDEX IF NOT EXISTS idx_playlists_user ON playlists(user_id);",
		"CREATE INDEX IF NOT EXISTS idx_playlist_songs_playlist ON playlist_songs(playlist_id);",
		"CREATE INDEX IF NOT EXISTS idx_playlist_songs_position ON playlist_songs(playlist_id, position);",
	}

	tables := []string{usersTable, songsTable, favoritesTable, playlistsTable, playlistSongsTable}
	for _, table := range tables {
		if _, err := s.conn.Exec(table); err != nil {
			return err
		}
	}

	for _, index := range indices {
		if _, err := s.conn.Exec(index); err != nil {
			return err
		}
	}

	return nil
}

// Ping verifies database connectivity for health checks.
func (s *Store) Ping() error {
	return s.conn.Ping()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite constraint failure. The
// schema's UNIQUE constraints are the backstop for races that slip past the
// existence pre-checks, so these surface as ErrConflict too.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
