package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/gangstat197/ise-music-app/pkg/models"
)

// GetUserPlaylists returns all playlists owned by a user, newest first.
func (s *Store) GetUserPlaylists(userID int64) ([]models.Playlist, error) {
	if _, err := s.GetUserByID(userID); err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(`
		SELECT id, name, user_id, created_at FROM playlists
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to query playlists")
		return nil, err
	}
	defer rows.Close()

	playlists := []models.Playlist{}
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.UserID, &p.CreatedAt); err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// CreatePlaylist inserts a new playlist owned by userID.
func (s *Store) CreatePlaylist(userID int64, name string) (*models.Playlist, error) {
	if _, err := s.GetUserByID(userID); err != nil {
		return nil, err
	}

	result, err := s.conn.Exec("INSERT INTO playlists (name, user_id) VALUES (?, ?)", name, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to create playlist")
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetPlaylist(userID, id)
}

// GetPlaylist returns a playlist only if it belongs to the given user.
func (s *Store) GetPlaylist(userID, playlistID int64) (*models.Playlist, error) {
	var p models.Playlist
	err := s.conn.QueryRow(`
		SELECT id, name, user_id, created_at FROM playlists
		WHERE id = ? AND user_id = ?`, playlistID, userID).
		Scan(&p.ID, &p.Name, &p.UserID, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("playlist %d: %w", playlistID, ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

// GetPlaylistDetail returns the playlist together with its songs in
// position order.
func (s *Store) GetPlaylistDetail(userID, playlistID int64) (*models.PlaylistDetail, error) {
	playlist, err := s.GetPlaylist(userID, playlistID)
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(`
		SELECT s.id, s.title, s.artist, s.album, s.genre, s.year, s.duration,
		       s.file_path, s.file_type, s.file_size, s.image_path, s.owner_id, s.upload_date
		FROM songs s
		JOIN playlist_songs ps ON s.id = ps.song_id
		WHERE ps.playlist_id = ?
		ORDER BY ps.position, ps.id`, playlistID)
	if err != nil {
		s.logger.WithError(err).WithField("playlist_id", playlistID).Error("Failed to query playlist songs")
		return nil, err
	}
	defer rows.Close()

	songs, err := scanSongRows(rows)
	if err != nil {
		return nil, err
	}
	return &models.PlaylistDetail{Playlist: *playlist, Songs: songs}, nil
}

// UpdatePlaylist applies a partial patch to playlist details.
func (s *Store) UpdatePlaylist(userID, playlistID int64, patch models.PlaylistPatch) (*models.Playlist, error) {
	if _, err := s.GetPlaylist(userID, playlistID); err != nil {
		return nil, err
	}

	var sets []string
	var args []interface{}
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}

	if len(sets) > 0 {
		args = append(args, playlistID)
		query := "UPDATE playlists SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := s.conn.Exec(query, args...); err != nil {
			s.logger.WithError(err).WithField("playlist_id", playlistID).Error("Failed to update playlist")
			return nil, err
		}
	}

	return s.GetPlaylist(userID, playlistID)
}

// DeletePlaylist removes the playlist; its entries go with it via cascade.
func (s *Store) DeletePlaylist(userID, playlistID int64) error {
	if _, err := s.GetPlaylist(userID, playlistID); err != nil {
		return err
	}
	_, err := s.conn.Exec("DELETE FROM playlists WHERE id = ?", playlistID)
	if err != nil {
		s.logger.WithError(err).WithField("playlist_id", playlistID).Error("Failed to delete playlist")
	}
	return err
}

// AddSongToPlaylist appends a song at the end of a playlist, assigning
// position = count of existing entries so positions stay dense under a pure
// append workload. The duplicate pair is rejected with ErrConflict.
func (s *Store) AddSongToPlaylist(userID, playlistID, songID int64) (*models.PlaylistEntry, error) {
	if _, err := s.GetPlaylist(userID, playlistID); err != nil {
		return nil, err
	}
	if _, err := s.GetSongByID(songID); err != nil {
		return nil, err
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRow(
		"SELECT id FROM playlist_songs WHERE playlist_id = ? AND song_id = ?",
		playlistID, songID).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("song already in playlist: %w", ErrConflict)
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	var count int
	if err := tx.QueryRow(
		"SELECT COUNT(*) FROM playlist_songs WHERE playlist_id = ?", playlistID).Scan(&count); err != nil {
		return nil, err
	}

	result, err := tx.Exec(`
		INSERT INTO playlist_songs (playlist_id, song_id, position)
		VALUES (?, ?, ?)`, playlistID, songID, count)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("song already in playlist: %w", ErrConflict)
		}
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"playlist_id": playlistID,
			"song_id":     songID,
		}).Error("Failed to insert playlist entry")
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	entry := &models.PlaylistEntry{ID: id, PlaylistID: playlistID, SongID: songID, Position: count}
	err = tx.QueryRow(
		"SELECT added_at FROM playlist_songs WHERE id = ?", id).Scan(&entry.AddedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// RemoveSongFromPlaylist removes a song from the playlist. Remaining
// positions are not recompacted; callers re-densify with a full
// ReorderPlaylist. Returns ErrNotFound when the song is not in the playlist.
func (s *Store) RemoveSongFromPlaylist(userID, playlistID, songID int64) error {
	if _, err := s.GetPlaylist(userID, playlistID); err != nil {
		return err
	}

	result, err := s.conn.Exec(
		"DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?", playlistID, songID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("song not in playlist: %w", ErrNotFound)
	}
	return nil
}

// ReorderPlaylist assigns position = index for every song in songIDs that is
// already an entry of the playlist; IDs with no entry are silently skipped
// and entries not mentioned keep their old positions. Callers are expected to
// send the complete song-id list so positions land on a dense 0..n-1 range;
// the operation is idempotent for such a list. Runs in one transaction so a
// concurrent reader never observes a half-applied ordering.
func (s *Store) ReorderPlaylist(userID, playlistID int64, songIDs []int64) error {
	if _, err := s.GetPlaylist(userID, playlistID); err != nil {
		return err
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"UPDATE playlist_songs SET position = ? WHERE playlist_id = ? AND song_id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for position, songID := range songIDs {
		if _, err := stmt.Exec(position, playlistID, songID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// PlaylistEntries returns the raw (song, position) pairs of a playlist in
// position order.
func (s *Store) PlaylistEntries(playlistID int64) ([]models.PlaylistEntry, error) {
	rows, err := s.conn.Query(`
		SELECT id, playlist_id, song_id, position, added_at
		FROM playlist_songs
		WHERE playlist_id = ?
		ORDER BY position, id`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.PlaylistEntry{}
	for rows.Next() {
		var e models.PlaylistEntry
		if err := rows.Scan(&e.ID, &e.PlaylistID, &e.SongID, &e.Position, &e.AddedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
