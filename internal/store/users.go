package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gangstat197/ise-music-app/pkg/models"
)

// CreateUser inserts a new user. Returns ErrConflict when the username or
// email is already registered.
func (s *Store) CreateUser(username, email string) (*models.User, error) {
	var existing int64
	err := s.conn.QueryRow("SELECT id FROM users WHERE username = ? OR email = ?", username, email).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("username or email already registered: %w", ErrConflict)
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	result, err := s.conn.Exec("INSERT INTO users (username, email) VALUES (?, ?)", username, email)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("username or email already registered: %w", ErrConflict)
		}
		s.logger.WithError(err).WithField("username", username).Error("Failed to insert user")
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetUserByID(id)
}

// GetUserByID returns a single user, or ErrNotFound.
func (s *Store) GetUserByID(id int64) (*models.User, error) {
	var user models.User
	err := s.conn.QueryRow(`
		SELECT id, username, email, created_at FROM users WHERE id = ?`, id).
		Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail returns the user registered under email, or ErrNotFound.
func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.conn.QueryRow(`
		SELECT id, username, email, created_at FROM users WHERE email = ?`, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user with email %s: %w", email, ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUser applies a partial patch to a user profile. Only fields present
// in the patch are mutated; absent fields retain their prior values.
func (s *Store) UpdateUser(id int64, patch models.UserPatch) (*models.User, error) {
	if _, err := s.GetUserByID(id); err != nil {
		return nil, err
	}

	var sets []string
	var args []interface{}
	if patch.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *patch.Username)
	}
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}

	if len(sets) > 0 {
		args = append(args, id)
		query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := s.conn.Exec(query, args...); err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("username or email already registered: %w", ErrConflict)
			}
			s.logger.WithError(err).WithField("user_id", id).Error("Failed to update user")
			return nil, err
		}
	}

	return s.GetUserByID(id)
}

// LoginByEmail returns the user registered under email, creating one on the
// fly when none exists. This is a stub login with no credential check; a real
// deployment plugs an auth strategy in front of it.
func (s *Store) LoginByEmail(email, username string) (*models.User, error) {
	user, err := s.GetUserByEmail(email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if username == "" {
		// Derive a username from the mailbox name.
		if at := strings.Index(email, "@"); at > 0 {
			username = email[:at]
		} else {
			username = email
		}
	}

	return s.CreateUser(username, email)
}
