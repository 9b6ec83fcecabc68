package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"familycalls/internal/model"
)

type callRepository struct {
	db *sqlx.DB
}

func NewCallRepository(db *sqlx.DB) CallRepository {
	return &callRepository{db: db}
}

// Create inserts a new call record. Rejects anything that is not a valid
// status so ad hoc strings never reach storage.
func (r *callRepository) Create(ctx context.Context, c *model.Call) error {
	if !c.Status.Valid() {
		return fmt.Errorf("call status %q: not a known status", c.Status)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	query := `
		INSERT INTO calls (id, caller_id, receiver_id, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`

	row := r.db.QueryRowxContext(ctx, query, c.ID, c.CallerID, c.ReceiverID, c.Status)
	if err := row.Scan(&c.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert call: %w", err)
	}
	return nil
}

func (r *callRepository) GetByID(ctx context.Context, id string) (*model.Call, error) {
	query := `
		SELECT id, caller_id, receiver_id, status, created_at
		FROM calls
		WHERE id = $1
	`

	var c model.Call
	err := r.db.GetContext(ctx, &c, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrCallNotFound
		}
		return nil, fmt.Errorf("failed to get call by id: %w", err)
	}
	return &c, nil
}

// LatestRinging finds the newest ringing record for the caller/receiver pair.
func (r *callRepository) LatestRinging(ctx context.Context, callerID, receiverID string) (*model.Call, error) {
	query := `
		SELECT id, caller_id, receiver_id, status, created_at
		FROM calls
		WHERE caller_id = $1 AND receiver_id = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	var c model.Call
	err := r.db.GetContext(ctx, &c, query, callerID, receiverID, model.CallStatusRinging)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrCallNotFound
		}
		return nil, fmt.Errorf("failed to get latest ringing call: %w", err)
	}
	return &c, nil
}

// UpdateStatus transitions a call atomically: the UPDATE only matches when
// the record is still in `from`, so two near-simultaneous accept/reject
// attempts cannot both win.
func (r *callRepository) UpdateStatus(ctx context.Context, id string, from, to model.CallStatus) (bool, error) {
	if !from.Valid() || !to.Valid() {
		return false, fmt.Errorf("call status transition %q -> %q: not a known status", from, to)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE calls SET status = $3 WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update call status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// ListForUser scans all records where the user is caller or receiver.
// History is rebuilt from this scan on every read; nothing is archived.
func (r *callRepository) ListForUser(ctx context.Context, userID string) ([]model.Call, error) {
	query := `
		SELECT id, caller_id, receiver_id, status, created_at
		FROM calls
		WHERE caller_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC
	`

	var calls []model.Call
	if err := r.db.SelectContext(ctx, &calls, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list calls for user: %w", err)
	}
	return calls, nil
}

// ListRingingForReceiver returns calls currently ringing for the user,
// newest first. Several callers can ring the same receiver at once; all of
// them surface here independently.
func (r *callRepository) ListRingingForReceiver(ctx context.Context, receiverID string) ([]model.Call, error) {
	query := `
		SELECT id, caller_id, receiver_id, status, created_at
		FROM calls
		WHERE receiver_id = $1 AND status = $2
		ORDER BY created_at DESC
	`

	var calls []model.Call
	if err := r.db.SelectContext(ctx, &calls, query, receiverID, model.CallStatusRinging); err != nil {
		return nil, fmt.Errorf("failed to list ringing calls: %w", err)
	}
	return calls, nil
}
