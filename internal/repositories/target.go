package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mindx/internal/models"
	"github.com/desertthunder/mindx/internal/shared"
)

// TargetRepository persists [models.TargetRecord] rows.
type TargetRepository struct {
	db *sql.DB
}

// NewTargetRepository creates a new [TargetRepository] with the given database connection
func NewTargetRepository(db *sql.DB) *TargetRepository {
	return &TargetRepository{db: db}
}

// Create inserts a target with a sequence number. An empty ID is filled with a generated one.
func (r *TargetRepository) Create(ctx context.Context, target *models.TargetRecord) error {
	if err := target.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, models.TableTargets)
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if target.ID == "" {
		target.ID = shared.GenerateID()
	}
	if target.CreatedAt.IsZero() {
		target.CreatedAt = time.Now().UTC()
	}
	target.Sequence = sequence

	query := `
		INSERT INTO targets (id, sequence, user_id, image_url, video_url, mind_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		target.ID, sequence, nullable(target.UserID),
		target.ImageURL, target.VideoURL, target.DescriptorURL, target.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert target: %w", err)
	}

	return nil
}

// Get retrieves a target by ID
func (r *TargetRepository) Get(ctx context.Context, id string) (*models.TargetRecord, error) {
	query := `
		SELECT id, sequence, user_id, image_url, video_url, mind_url, created_at
		FROM targets
		WHERE id = ?
	`

	target, err := scanTarget(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("target not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query target: %w", err)
	}
	return target, nil
}

// List returns the most recent targets, newest first. A non-positive limit returns all rows.
func (r *TargetRepository) List(ctx context.Context, limit int) ([]*models.TargetRecord, error) {
	query := `
		SELECT id, sequence, user_id, image_url, video_url, mind_url, created_at
		FROM targets
		ORDER BY sequence DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query targets: %w", err)
	}
	defer rows.Close()

	var targets []*models.TargetRecord
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return targets, nil
}

// DeleteByUser removes all targets owned by userID.
func (r *TargetRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	return DeleteByUser(ctx, r.db, models.TableTargets, userID)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTarget(s scanner) (*models.TargetRecord, error) {
	var (
		target models.TargetRecord
		userID sql.NullString
	)
	err := s.Scan(&target.ID, &target.Sequence, &userID,
		&target.ImageURL, &target.VideoURL, &target.DescriptorURL, &target.CreatedAt)
	if err != nil {
		return nil, err
	}
	target.UserID = userID.String
	return &target, nil
}
