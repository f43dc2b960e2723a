package store

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/gangstat197/ise-music-app/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"), 5, logger)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStoreAppliesConnectionLimit(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"), 3, logger)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if got := s.conn.Stats().MaxOpenConnections; got != 3 {
		t.Errorf("Expected max open connections 3, got %d", got)
	}
}

func mustCreateUser(t *testing.T, s *Store, username, email string) *models.User {
	t.Helper()
	user, err := s.CreateUser(username, email)
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return user
}

func mustInsertSong(t *testing.T, s *Store, title, artist, path string) *models.Song {
	t.Helper()
	id, err := s.InsertSong(&models.Song{
		Title:    title,
		Artist:   artist,
		FilePath: path,
		FileType: "mp3",
	})
	if err != nil {
		t.Fatalf("Failed to insert song %s: %v", title, err)
	}
	song, err := s.GetSongByID(id)
	if err != nil {
		t.Fatalf("Failed to fetch inserted song: %v", err)
	}
	return song
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)

	t.Run("CreateAndGet", func(t *testing.T) {
		user := mustCreateUser(t, s, "alice", "alice@example.com")
		if user.ID == 0 {
			t.Error("Expected a non-zero user ID")
		}

		got, err := s.GetUserByID(user.ID)
		if err != nil {
			t.Fatalf("Failed to get user: %v", err)
		}
		if got.Username != "alice" || got.Email != "alice@example.com" {
			t.Errorf("Unexpected user %+v", got)
		}
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		_, err := s.CreateUser("alice", "other@example.com")
		if !errors.Is(err, ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := s.CreateUser("alice2", "alice@example.com")
		if !errors.Is(err, ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := s.GetUserByID(9999)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("PartialUpdate", func(t *testing.T) {
		user := mustCreateUser(t, s, "bob", "bob@example.com")

		newName := "bobby"
		updated, err := s.UpdateUser(user.ID, models.UserPatch{Username: &newName})
		if err != nil {
			t.Fatalf("Failed to update user: %v", err)
		}
		if updated.Username != "bobby" {
			t.Errorf("Expected username bobby, got %s", updated.Username)
		}
		if updated.Email != "bob@example.com" {
			t.Errorf("Expected untouched email, got %s", updated.Email)
		}
	})

	t.Run("LoginCreatesOnFirstUse", func(t *testing.T) {
		user, err := s.LoginByEmail("carol@example.com", "")
		if err != nil {
			t.Fatalf("Failed to login: %v", err)
		}
		if user.Username != "carol" {
			t.Errorf("Expected username derived from email, got %s", user.Username)
		}

		again, err := s.LoginByEmail("carol@example.com", "ignored")
		if err != nil {
			t.Fatalf("Failed to login a second time: %v", err)
		}
		if again.ID != user.ID {
			t.Errorf("Expected the same user on repeat login, got %d and %d", user.ID, again.ID)
		}
	})
}

func TestSongs(t *testing.T) {
	s := newTestStore(t)

	t.Run("InsertAndGet", func(t *testing.T) {
		song := mustInsertSong(t, s, "First", "Band", "/tmp/first.mp3")
		if song.Title != "First" || song.Artist != "Band" {
			t.Errorf("Unexpected song %+v", song)
		}
		if song.Duration != nil {
			t.Error("Expected nil duration when none was set")
		}
	})

	t.Run("DuplicateFilePath", func(t *testing.T) {
		_, err := s.InsertSong(&models.Song{
			Title: "Copy", Artist: "Band", FilePath: "/tmp/first.mp3", FileType: "mp3",
		})
		if !errors.Is(err, ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}
	})

	t.Run("UnknownOwnerRejected", func(t *testing.T) {
		ownerID := int64(4242)
		_, err := s.InsertSong(&models.Song{
			Title: "Orphan", Artist: "Band", FilePath: "/tmp/orphan.mp3", FileType: "mp3",
			OwnerID: &ownerID,
		})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound for unknown owner, got %v", err)
		}
	})

	t.Run("ListAndFilter", func(t *testing.T) {
		mustInsertSong(t, s, "Blue Sky", "Band", "/tmp/blue.mp3")
		mustInsertSong(t, s, "Red Moon", "Other", "/tmp/red.mp3")

		all, err := s.ListSongs(SongFilter{})
		if err != nil {
			t.Fatalf("Failed to list songs: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("Expected 3 songs, got %d", len(all))
		}

		byArtist, err := s.ListSongs(SongFilter{Artist: "Other"})
		if err != nil {
			t.Fatalf("Failed to filter songs: %v", err)
		}
		if len(byArtist) != 1 || byArtist[0].Title != "Red Moon" {
			t.Errorf("Unexpected artist filter result %+v", byArtist)
		}

		bySearch, err := s.ListSongs(SongFilter{Search: "blue"})
		if err != nil {
			t.Fatalf("Failed to search songs: %v", err)
		}
		if len(bySearch) != 1 || bySearch[0].Title != "Blue Sky" {
			t.Errorf("Unexpected search result %+v", bySearch)
		}

		paged, err := s.ListSongs(SongFilter{Skip: 1, Limit: 1})
		if err != nil {
			t.Fatalf("Failed to page songs: %v", err)
		}
		if len(paged) != 1 {
			t.Errorf("Expected 1 paged song, got %d", len(paged))
		}
	})

	t.Run("PartialUpdate", func(t *testing.T) {
		song := mustInsertSong(t, s, "Patchable", "Band", "/tmp/patch.mp3")

		album := "Collected"
		updated, err := s.UpdateSong(song.ID, models.SongPatch{Album: &album})
		if err != nil {
			t.Fatalf("Failed to update song: %v", err)
		}
		if updated.Album == nil || *updated.Album != "Collected" {
			t.Errorf("Expected album Collected, got %v", updated.Album)
		}
		if updated.Title != "Patchable" {
			t.Errorf("Expected untouched title, got %s", updated.Title)
		}
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		if err := s.DeleteSong(9999); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestFavorites(t *testing.T) {
	s := newTestStore(t)
	user := mustCreateUser(t, s, "fan", "fan@example.com")
	song := mustInsertSong(t, s, "Hit", "Band", "/tmp/hit.mp3")

	t.Run("AddAndList", func(t *testing.T) {
		fav, err := s.AddFavorite(user.ID, song.ID)
		if err != nil {
			t.Fatalf("Failed to add favorite: %v", err)
		}
		if fav.UserID != user.ID || fav.SongID != song.ID {
			t.Errorf("Unexpected favorite %+v", fav)
		}

		songs, err := s.GetFavoriteSongs(user.ID)
		if err != nil {
			t.Fatalf("Failed to list favorites: %v", err)
		}
		if len(songs) != 1 || songs[0].ID != song.ID {
			t.Errorf("Unexpected favorites %+v", songs)
		}
	})

	t.Run("DuplicateRejected", func(t *testing.T) {
		_, err := s.AddFavorite(user.ID, song.ID)
		if !errors.Is(err, ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}
	})

	t.Run("UnknownSongRejected", func(t *testing.T) {
		_, err := s.AddFavorite(user.ID, 9999)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("RemoveAbsent", func(t *testing.T) {
		if err := s.RemoveFavorite(user.ID, 9999); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		if err := s.RemoveFavorite(user.ID, song.ID); err != nil {
			t.Fatalf("Failed to remove favorite: %v", err)
		}
		songs, err := s.GetFavoriteSongs(user.ID)
		if err != nil {
			t.Fatalf("Failed to list favorites: %v", err)
		}
		if len(songs) != 0 {
			t.Errorf("Expected no favorites, got %d", len(songs))
		}
	})
}

func TestPlaylistOrdering(t *testing.T) {
	s := newTestStore(t)
	user := mustCreateUser(t, s, "curator", "curator@example.com")

	playlist, err := s.CreatePlaylist(user.ID, "Morning")
	if err != nil {
		t.Fatalf("Failed to create playlist: %v", err)
	}

	var songs []*models.Song
	for _, title := range []string{"One", "Two", "Three"} {
		songs = append(songs, mustInsertSong(t, s, title, "Band", "/tmp/"+title+".mp3"))
	}

	t.Run("AppendAssignsDensePositions", func(t *testing.T) {
		for i, song := range songs {
			entry, err := s.AddSongToPlaylist(user.ID, playlist.ID, song.ID)
			if err != nil {
				t.Fatalf("Failed to append song %d: %v", i, err)
			}
			if entry.Position != i {
				t.Errorf("Expected position %d, got %d", i, entry.Position)
			}
		}
	})

	t.Run("DuplicateAppendRejected", func(t *testing.T) {
		_, err := s.AddSongToPlaylist(user.ID, playlist.ID, songs[0].ID)
		if !errors.Is(err, ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}
	})

	t.Run("DetailInPositionOrder", func(t *testing.T) {
		detail, err := s.GetPlaylistDetail(user.ID, playlist.ID)
		if err != nil {
			t.Fatalf("Failed to get playlist detail: %v", err)
		}
		if len(detail.Songs) != 3 {
			t.Fatalf("Expected 3 songs, got %d", len(detail.Songs))
		}
		for i, want := range []string{"One", "Two", "Three"} {
			if detail.Songs[i].Title != want {
				t.Errorf("Expected song %d to be %s, got %s", i, want, detail.Songs[i].Title)
			}
		}
	})

	t.Run("ReorderFollowsSubmittedList", func(t *testing.T) {
		order := []int64{songs[2].ID, songs[0].ID, songs[1].ID}
		if err := s.ReorderPlaylist(user.ID, playlist.ID, order); err != nil {
			t.Fatalf("Failed to reorder playlist: %v", err)
		}

		entries, err := s.PlaylistEntries(playlist.ID)
		if err != nil {
			t.Fatalf("Failed to fetch entries: %v", err)
		}
		for i, entry := range entries {
			if entry.SongID != order[i] {
				t.Errorf("Expected song %d at position %d, got %d", order[i], i, entry.SongID)
			}
			if entry.Position != i {
				t.Errorf("Expected dense position %d, got %d", i, entry.Position)
			}
		}
	})

	t.Run("ReorderSkipsUnknownIDs", func(t *testing.T) {
		order := []int64{songs[0].ID, 9999, songs[1].ID, songs[2].ID}
		if err := s.ReorderPlaylist(user.ID, playlist.ID, order); err != nil {
			t.Fatalf("Failed to reorder playlist: %v", err)
		}

		entries, err := s.PlaylistEntries(playlist.ID)
		if err != nil {
			t.Fatalf("Failed to fetch entries: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("Expected 3 entries, got %d", len(entries))
		}
		if entries[0].SongID != songs[0].ID {
			t.Errorf("Expected song %d first, got %d", songs[0].ID, entries[0].SongID)
		}
	})

	t.Run("RemoveThenReorderRedensifies", func(t *testing.T) {
		if err := s.ReorderPlaylist(user.ID, playlist.ID,
			[]int64{songs[0].ID, songs[1].ID, songs[2].ID}); err != nil {
			t.Fatalf("Failed to reset order: %v", err)
		}
		if err := s.RemoveSongFromPlaylist(user.ID, playlist.ID, songs[1].ID); err != nil {
			t.Fatalf("Failed to remove song: %v", err)
		}

		// Relative order survives removal even before re-densifying.
		entries, err := s.PlaylistEntries(playlist.ID)
		if err != nil {
			t.Fatalf("Failed to fetch entries: %v", err)
		}
		if len(entries) != 2 || entries[0].SongID != songs[0].ID || entries[1].SongID != songs[2].ID {
			t.Errorf("Unexpected entries after removal %+v", entries)
		}

		if err := s.ReorderPlaylist(user.ID, playlist.ID,
			[]int64{songs[0].ID, songs[2].ID}); err != nil {
			t.Fatalf("Failed to re-densify: %v", err)
		}
		entries, err = s.PlaylistEntries(playlist.ID)
		if err != nil {
			t.Fatalf("Failed to fetch entries: %v", err)
		}
		for i, entry := range entries {
			if entry.Position != i {
				t.Errorf("Expected dense position %d, got %d", i, entry.Position)
			}
		}
	})

	t.Run("RemoveAbsent", func(t *testing.T) {
		err := s.RemoveSongFromPlaylist(user.ID, playlist.ID, 9999)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("OwnerScoped", func(t *testing.T) {
		other := mustCreateUser(t, s, "stranger", "stranger@example.com")
		_, err := s.GetPlaylist(other.ID, playlist.ID)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound for foreign playlist, got %v", err)
		}
	})
}

func TestCascades(t *testing.T) {
	s := newTestStore(t)
	user := mustCreateUser(t, s, "owner", "owner@example.com")
	song := mustInsertSong(t, s, "Doomed", "Band", "/tmp/doomed.mp3")

	playlist, err := s.CreatePlaylist(user.ID, "Keep")
	if err != nil {
		t.Fatalf("Failed to create playlist: %v", err)
	}
	if _, err := s.AddFavorite(user.ID, song.ID); err != nil {
		t.Fatalf("Failed to add favorite: %v", err)
	}
	if _, err := s.AddSongToPlaylist(user.ID, playlist.ID, song.ID); err != nil {
		t.Fatalf("Failed to add song to playlist: %v", err)
	}

	t.Run("SongDeleteCascades", func(t *testing.T) {
		if err := s.DeleteSong(song.ID); err != nil {
			t.Fatalf("Failed to delete song: %v", err)
		}

		favorites, err := s.GetFavoriteSongs(user.ID)
		if err != nil {
			t.Fatalf("Failed to list favorites: %v", err)
		}
		if len(favorites) != 0 {
			t.Errorf("Expected favorites to cascade, got %d", len(favorites))
		}

		entries, err := s.PlaylistEntries(playlist.ID)
		if err != nil {
			t.Fatalf("Failed to fetch entries: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("Expected playlist entries to cascade, got %d", len(entries))
		}
	})

	t.Run("PlaylistDeleteCascades", func(t *testing.T) {
		second := mustInsertSong(t, s, "Survivor", "Band", "/tmp/survivor.mp3")
		if _, err := s.AddSongToPlaylist(user.ID, playlist.ID, second.ID); err != nil {
			t.Fatalf("Failed to add song to playlist: %v", err)
		}

		if err := s.DeletePlaylist(user.ID, playlist.ID); err != nil {
			t.Fatalf("Failed to delete playlist: %v", err)
		}
		entries, err := s.PlaylistEntries(playlist.ID)
		if err != nil {
			t.Fatalf("Failed to fetch entries: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("Expected entries gone with playlist, got %d", len(entries))
		}

		// The song itself is untouched by playlist deletion.
		if _, err := s.GetSongByID(second.ID); err != nil {
			t.Errorf("Expected song to survive playlist deletion, got %v", err)
		}
	})
}
