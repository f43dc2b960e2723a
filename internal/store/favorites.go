package store

import (
	"database/sql"
	"fmt"

	"github.com/gangstat197/ise-music-app/pkg/models"
)

// GetFavoriteSongs returns a user's favorite songs, most recently added
// first. Returns ErrNotFound when the user does not exist.
func (s *Store) GetFavoriteSongs(userID int64) ([]models.Song, error) {
	if _, err := s.GetUserByID(userID); err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(`
		SELECT s.id, s.title, s.artist, s.album, s.genre, s.year, s.duration,
		       s.file_path, s.file_type, s.file_size, s.image_path, s.owner_id, s.upload_date
		FROM songs s
		JOIN favorites f ON s.id = f.song_id
		WHERE f.user_id = ?
		ORDER BY f.added_at DESC, f.id DESC`, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to query favorites")
		return nil, err
	}
	defer rows.Close()
	return scanSongRows(rows)
}

// AddFavorite marks a song as one of the user's favorites. Favoriting the
// same pair twice is rejected with ErrConflict, not upserted.
func (s *Store) AddFavorite(userID, songID int64) (*models.Favorite, error) {
	if _, err := s.GetUserByID(userID); err != nil {
		return nil, err
	}
	if _, err := s.GetSongByID(songID); err != nil {
		return nil, err
	}

	var existing int64
	err := s.conn.QueryRow(
		"SELECT id FROM favorites WHERE user_id = ? AND song_id = ?", userID, songID).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("song already in favorites: %w", ErrConflict)
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	result, err := s.conn.Exec("INSERT INTO favorites (user_id, song_id) VALUES (?, ?)", userID, songID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("song already in favorites: %w", ErrConflict)
		}
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"user_id": userID,
			"song_id": songID,
		}).Error("Failed to insert favorite")
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	favorite := &models.Favorite{ID: id, UserID: userID, SongID: songID}
	err = s.conn.QueryRow(
		"SELECT added_at FROM favorites WHERE id = ?", id).Scan(&favorite.AddedAt)
	if err != nil {
		return nil, err
	}
	return favorite, nil
}

// RemoveFavorite removes a song from the user's favorites. Returns
// ErrNotFound when the pair was never favorited.
func (s *Store) RemoveFavorite(userID, songID int64) error {
	result, err := s.conn.Exec(
		"DELETE FROM favorites WHERE user_id = ? AND song_id = ?", userID, songID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("song not in favorites: %w", ErrNotFound)
	}
	return nil
}
