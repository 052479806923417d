package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/rodionaltshuler/smart-reminder-server/internal/apperror"
	"github.com/rodionaltshuler/smart-reminder-server/internal/model"
	"github.com/rodionaltshuler/smart-reminder-server/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, name, COALESCE(email, ''), oauth, picture, device_id`

// UpsertFromProfile inserts the user or overwrites the provider fields of
// the existing row in one statement.
//
// The email conflict target is tried first, so a person who is already
// known by email keeps their row and takes the new provider subject.
// Without an email (stored as NULL, which never conflicts) the oauth target
// decides and a new email replaces the old one. The caller's ID is only
// used for a fresh insert.
//
// Taking over a subject that another row already holds is a Conflict.
func (db *DB) UpsertFromProfile(ctx context.Context, user *model.User) (*model.User, error) {
	id := user.ID
	if id == "" {
		id = xid.New().String()
	}

	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO users (id, name, email, oauth, picture)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
			oauth = excluded.oauth,
			name = excluded.name,
			picture = excluded.picture
		 ON CONFLICT(oauth) DO UPDATE SET
			name = excluded.name,
			email = COALESCE(excluded.email, users.email),
			picture = excluded.picture
		 RETURNING `+userColumns,
		id,
		user.Name,
		nullIfEmpty(user.Email),
		user.OAuth,
		user.Picture,
	)

	u, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("Another user is already linked to this Facebook account")
		}
		return nil, fmt.Errorf("sqlite: upserting user (oauth=%s): %w", user.OAuth, err)
	}
	return u, nil
}

// GetUserByID retrieves a user by id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// SearchUsers returns up to limit users whose name contains query
// (case-insensitive for ASCII) or whose email equals it. An empty query
// matches everyone.
func (db *DB) SearchUsers(ctx context.Context, query string, limit int) ([]model.User, error) {
	if limit <= 0 {
		limit = 3
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE ? = '' OR name LIKE ? ESCAPE '\' OR email = ?
		 ORDER BY name, id
		 LIMIT ?`,
		query,
		"%"+escapeLike(query)+"%",
		strings.ToLower(query),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

// SetDeviceID stores the push device id of a user.
func (db *DB) SetDeviceID(ctx context.Context, userID, deviceID string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`UPDATE users SET device_id = ? WHERE id = ? RETURNING `+userColumns,
		deviceID, userID,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User", userID)
		}
		return nil, fmt.Errorf("sqlite: setting device id of user %s: %w", userID, err)
	}
	return u, nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.OAuth, &u.Picture, &u.DeviceID); err != nil {
		return nil, err
	}
	return &u, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
