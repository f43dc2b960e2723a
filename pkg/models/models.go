package models

import "time"

// User owns songs, playlists and favorites. Username and email are unique.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Song represents an uploaded audio file plus its metadata. FilePath is the
// durable-storage key and is never exposed to clients.
type Song struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	Album      *string   `json:"album"`
	Genre      *string   `json:"genre"`
	Year       *int      `json:"year"`
	Duration   *float64  `json:"duration"` // seconds
	FilePath   string    `json:"-"`
	FileType   string    `json:"file_type"`
	FileSize   *int64    `json:"file_size"`
	ImagePath  *string   `json:"image_path"`
	OwnerID    *int64    `json:"owner_id,omitempty"`
	UploadDate time.Time `json:"upload_date"`
}

// Favorite links a user to a song. The (user, song) pair is unique.
type Favorite struct {
	ID      int64     `json:"id"`
	UserID  int64     `json:"user_id"`
	SongID  int64     `json:"song_id"`
	AddedAt time.Time `json:"added_at"`
}

// Playlist is owned by exactly one user.
type Playlist struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PlaylistEntry places a song at an ordinal position within a playlist.
// Positions within one playlist occupy a dense 0..n-1 range at rest.
type PlaylistEntry struct {
	ID         int64     `json:"id"`
	PlaylistID int64     `json:"playlist_id"`
	SongID     int64     `json:"song_id"`
	Position   int       `json:"position"`
	AddedAt    time.Time `json:"added_at"`
}

// PlaylistDetail is a playlist together with its songs in position order.
type PlaylistDetail struct {
	Playlist
	Songs []Song `json:"songs"`
}

// Patch structs carry partial updates. A nil field was absent from the
// request body and leaves the stored value untouched.

// UserPatch is a partial update of a user profile.
type UserPatch struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// SongPatch is a partial update of song metadata.
type SongPatch struct {
	Title     *string `json:"title"`
	Artist    *string `json:"artist"`
	Album     *string `json:"album"`
	Genre     *string `json:"genre"`
	Year      *int    `json:"year"`
	ImagePath *string `json:"image_path"`
}

// PlaylistPatch is a partial update of playlist details.
type PlaylistPatch struct {
	Name *string `json:"name"`
}
