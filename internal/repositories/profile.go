package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mindx/internal/models"
)

// ProfileRepository persists [models.ProfileRecord] rows, one per user.
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new [ProfileRepository] with the given database connection
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Upsert creates or replaces the profile of profile.UserID.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.ProfileRecord) error {
	if profile.UserID == "" {
		return fmt.Errorf("validation failed: user id is required")
	}

	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	query := `
		INSERT INTO profiles (user_id, display_name, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET display_name = excluded.display_name, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, profile.UserID, profile.DisplayName, profile.CreatedAt, profile.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// Get retrieves the profile of userID
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*models.ProfileRecord, error) {
	var profile models.ProfileRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT user_id, display_name, created_at, updated_at FROM profiles WHERE user_id = ?", userID,
	).Scan(&profile.UserID, &profile.DisplayName, &profile.CreatedAt, &profile.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile not found: %s", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	return &profile, nil
}

// DeleteByUser removes the profile of userID and reports how many rows were removed.
func (r *ProfileRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	return DeleteByUser(ctx, r.db, models.TableProfiles, userID)
}
