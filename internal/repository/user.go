package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"familycalls/internal/model"
)

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user into the database. The ID is generated here so
// channel names derived from id pairs stay stable strings.
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	query := `
		INSERT INTO users (id, name, phone, device_id, avatar_url, registered_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING registered_at
	`

	row := r.db.QueryRowxContext(ctx, query, u.ID, u.Name, u.Phone, u.DeviceID, u.AvatarURL)
	if err := row.Scan(&u.RegisteredAt); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := `
		SELECT id, name, phone, device_id, avatar_url, registered_at
		FROM users
		WHERE id = $1
	`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &u, nil
}

// GetByDeviceID retrieves a user by their device identifier. Uniqueness of
// the device id is checked at registration, not enforced by the schema, so
// the newest match wins if duplicates slipped in.
func (r *userRepository) GetByDeviceID(ctx context.Context, deviceID string) (*model.User, error) {
	query := `
		SELECT id, name, phone, device_id, avatar_url, registered_at
		FROM users
		WHERE device_id = $1
		ORDER BY registered_at DESC
		LIMIT 1
	`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by device id: %w", err)
	}

	return &u, nil
}

// Count returns the roster size.
func (r *userRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// List returns all registered users, oldest first.
func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	query := `
		SELECT id, name, phone, device_id, avatar_url, registered_at
		FROM users
		ORDER BY registered_at ASC
	`

	var users []model.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// SetAvatar updates a user's avatar URL.
func (r *userRepository) SetAvatar(ctx context.Context, userID, avatarURL string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET avatar_url = $2 WHERE id = $1`, userID, avatarURL)
	if err != nil {
		return fmt.Errorf("failed to set avatar: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrUserNotFound
	}
	return nil
}
