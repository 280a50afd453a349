package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/mindx/internal/models"
)

// AdminRepository persists [models.AdminEntry] rows. The user_id primary key allows at most one entry per identity.
type AdminRepository struct {
	db *sql.DB
}

// NewAdminRepository creates a new [AdminRepository] with the given database connection
func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Exists reports whether userID has an admin entry. A missing entry is not an error.
func (r *AdminRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM admins WHERE user_id = ?)", userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query admins: %w", err)
	}
	return exists, nil
}

// Grant adds an admin entry; granting twice is a no-op.
func (r *AdminRepository) Grant(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if _, err := r.db.ExecContext(ctx, "INSERT OR IGNORE INTO admins (user_id) VALUES (?)", userID); err != nil {
		return fmt.Errorf("failed to grant admin: %w", err)
	}
	return nil
}

// DeleteByUser removes the admin entry of userID and reports how many rows were removed.
func (r *AdminRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	return DeleteByUser(ctx, r.db, models.TableAdmins, userID)
}

// List returns every admin entry ordered by creation time.
func (r *AdminRepository) List(ctx context.Context) ([]models.AdminEntry, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT user_id, created_at FROM admins ORDER BY created_at, user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query admins: %w", err)
	}
	defer rows.Close()

	var entries []models.AdminEntry
	for rows.Next() {
		var entry models.AdminEntry
		if err := rows.Scan(&entry.UserID, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
