package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/gangstat197/ise-music-app/pkg/models"
)

const songColumns = "id, title, artist, album, genre, year, duration, file_path, file_type, file_size, image_path, owner_id, upload_date"

// SongFilter narrows ListSongs results. Search matches a substring across
// title, artist and album; Artist and Genre match exactly.
type SongFilter struct {
	Search string
	Artist string
	Genre  string
	Skip   int
	Limit  int
}

// InsertSong stores a new song row and returns its ID. The file_path must be
// unique (ErrConflict otherwise) and an owner, when set, must exist
// (ErrNotFound otherwise).
func (s *Store) InsertSong(song *models.Song) (int64, error) {
	if song.OwnerID != nil {
		if _, err := s.GetUserByID(*song.OwnerID); err != nil {
			return 0, err
		}
	}

	var existing int64
	err := s.conn.QueryRow("SELECT id FROM songs WHERE file_path = ?", song.FilePath).Scan(&existing)
	if err == nil {
		return 0, fmt.Errorf("song with file path %s already exists: %w", song.FilePath, ErrConflict)
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	result, err := s.conn.Exec(`
		INSERT INTO songs (title, artist, album, genre, year, duration, file_path, file_type, file_size, image_path, owner_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		song.Title, song.Artist, song.Album, song.Genre, song.Year, song.Duration,
		song.FilePath, song.FileType, song.FileSize, song.ImagePath, song.OwnerID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("song with file path %s already exists: %w", song.FilePath, ErrConflict)
		}
		s.logger.WithError(err).WithField("file_path", song.FilePath).Error("Failed to insert song")
		return 0, err
	}

	return result.LastInsertId()
}

// ListSongs returns songs matching the filter, newest upload first.
func (s *Store) ListSongs(f SongFilter) ([]models.Song, error) {
	query := "SELECT " + songColumns + " FROM songs"
	var where []string
	var args []interface{}

	if f.Search != "" {
		like := "%" + f.Search + "%"
		where = append(where, "(title LIKE ? OR artist LIKE ? OR album LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.Artist != "" {
		where = append(where, "artist = ?")
		args = append(args, f.Artist)
	}
	if f.Genre != "" {
		where = append(where, "genre = ?")
		args = append(args, f.Genre)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY upload_date DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, f.Skip)

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list songs")
		return nil, err
	}
	defer rows.Close()
	return scanSongRows(rows)
}

// GetSongByID returns a single song, or ErrNotFound.
func (s *Store) GetSongByID(id int64) (*models.Song, error) {
	row := s.conn.QueryRow("SELECT "+songColumns+" FROM songs WHERE id = ?", id)
	song, err := scanSong(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("song %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return song, nil
}

// UpdateSong applies a partial metadata patch to a song. Only fields present
// in the patch are mutated.
func (s *Store) UpdateSong(id int64, patch models.SongPatch) (*models.Song, error) {
	if _, err := s.GetSongByID(id); err != nil {
		return nil, err
	}

	var sets []string
	var args []interface{}
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Artist != nil {
		sets = append(sets, "artist = ?")
		args = append(args, *patch.Artist)
	}
	if patch.Album != nil {
		sets = append(sets, "album = ?")
		args = append(args, *patch.Album)
	}
	if patch.Genre != nil {
		sets = append(sets, "genre = ?")
		args = append(args, *patch.Genre)
	}
	if patch.Year != nil {
		sets = append(sets, "year = ?")
		args = append(args, *patch.Year)
	}
	if patch.ImagePath != nil {
		sets = append(sets, "image_path = ?")
		args = append(args, *patch.ImagePath)
	}

	if len(sets) > 0 {
		args = append(args, id)
		query := "UPDATE songs SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := s.conn.Exec(query, args...); err != nil {
			s.logger.WithError(err).WithField("song_id", id).Error("Failed to update song")
			return nil, err
		}
	}

	return s.GetSongByID(id)
}

// DeleteSong removes a song row. Favorites and playlist entries referencing
// it are removed by the schema-level cascade.
func (s *Store) DeleteSong(id int64) error {
	result, err := s.conn.Exec("DELETE FROM songs WHERE id = ?", id)
	if err != nil {
		s.logger.WithError(err).WithField("song_id", id).Error("Failed to delete song")
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("song %d: %w", id, ErrNotFound)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSong(r rowScanner) (*models.Song, error) {
	var song models.Song
	var album, genre, imagePath sql.NullString
	var year sql.NullInt64
	var duration sql.NullFloat64
	var fileSize, ownerID sql.NullInt64

	err := r.Scan(&song.ID, &song.Title, &song.Artist, &album, &genre, &year,
		&duration, &song.FilePath, &song.FileType, &fileSize, &imagePath,
		&ownerID, &song.UploadDate)
	if err != nil {
		return nil, err
	}

	if album.Valid {
		song.Album = &album.String
	}
	if genre.Valid {
		song.Genre = &genre.String
	}
	if year.Valid {
		y := int(year.Int64)
		song.Year = &y
	}
	if duration.Valid {
		song.Duration = &duration.Float64
	}
	if fileSize.Valid {
		song.FileSize = &fileSize.Int64
	}
	if imagePath.Valid {
		song.ImagePath = &imagePath.String
	}
	if ownerID.Valid {
		song.OwnerID = &ownerID.Int64
	}
	return &song, nil
}

// scanSongRows scans standard song result sets into a slice. Callers must
// have already deferred rows.Close().
func scanSongRows(rows *sql.Rows) ([]models.Song, error) {
	songs := []models.Song{}
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, *song)
	}
	return songs, rows.Err()
}
