package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"familycalls/internal/model"
)

type messageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create inserts a message record. Messages are immutable after this point.
func (r *messageRepository) Create(ctx context.Context, m *model.Message) error {
	if !m.Type.Valid() {
		return model.ErrInvalidMessageType
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	query := `
		INSERT INTO messages (id, sender_id, receiver_id, type, text, image_url, video_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`

	row := r.db.QueryRowxContext(ctx, query,
		m.ID, m.SenderID, m.ReceiverID, m.Type, m.Text, m.ImageURL, m.VideoURL)
	if err := row.Scan(&m.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, type, text, image_url, video_url, created_at
		FROM messages
		WHERE id = $1
	`

	var m model.Message
	err := r.db.GetContext(ctx, &m, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message by id: %w", err)
	}
	return &m, nil
}

// ListBetween returns the conversation between two users, ascending by
// timestamp. One ordered query over a composite index on
// (sender_id, receiver_id, created_at); the directed-pair filter covers
// both directions.
func (r *messageRepository) ListBetween(ctx context.Context, userA, userB string) ([]model.Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, type, text, image_url, video_url, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC
	`

	var messages []model.Message
	if err := r.db.SelectContext(ctx, &messages, query, userA, userB); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}
