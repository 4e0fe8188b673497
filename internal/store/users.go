package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mlenko/lagerdb/internal/model"
)

// CreateUser creates a new user with an already-hashed password.
func CreateUser(ctx context.Context, q Querier, username, passwordHash, role string) (*model.User, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
		username, passwordHash, role,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, q, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, q Querier, id int64) (*model.User, error) {
	u := &model.User{}
	err := q.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at, deleted_at
		 FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns an active user by username.
func GetUserByUsername(ctx context.Context, q Querier, username string) (*model.User, error) {
	u := &model.User{}
	err := q.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at, deleted_at
		 FROM users WHERE username = ? AND deleted_at IS NULL`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, q Querier) ([]model.User, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, username, password_hash, role, created_at, deleted_at
		 FROM users WHERE deleted_at IS NULL ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetUserPassword replaces a user's password hash.
func SetUserPassword(ctx context.Context, q Querier, id int64, passwordHash string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id)
	if err != nil {
		return fmt.Errorf("setting user password: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, q Querier, id int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

// SetAllowedOverviews replaces the user's explicit overview allow-list.
// Access is strictly opt-in: an empty list means no dashboard access.
func SetAllowedOverviews(ctx context.Context, q Querier, userID int64, overviewIDs []int64) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM user_overviews WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clearing allowed overviews: %w", err)
	}
	for _, ovID := range overviewIDs {
		_, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_overviews (user_id, overview_id) VALUES (?, ?)`,
			userID, ovID)
		if err != nil {
			return fmt.Errorf("setting allowed overview: %w", err)
		}
	}
	return nil
}

// GetAllowedOverviewIDs returns the user's explicit allow-list.
func GetAllowedOverviewIDs(ctx context.Context, q Querier, userID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT overview_id FROM user_overviews WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("getting allowed overviews: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning allowed overview: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
