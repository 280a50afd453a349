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

// AccountRepository persists [models.Account] rows for the local identity backend.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new [AccountRepository] with the given database connection
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account with a generated ID
func (r *AccountRepository) Create(ctx context.Context, email string) (*models.Account, error) {
	if email == "" {
		return nil, fmt.Errorf("validation failed: email is required")
	}

	account := &models.Account{ID: shared.GenerateID(), Email: email, CreatedAt: time.Now().UTC()}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO accounts (id, email, created_at) VALUES (?, ?, ?)",
		account.ID, account.Email, account.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}
	return account, nil
}

// Get retrieves an account by ID, wrapping [shared.ErrAccountNotFound] when it does not exist.
func (r *AccountRepository) Get(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	err := r.db.QueryRowContext(ctx,
		"SELECT id, email, created_at FROM accounts WHERE id = ?", id,
	).Scan(&account.ID, &account.Email, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &account, nil
}

// Delete hard-deletes an account, wrapping [shared.ErrAccountNotFound] when nothing matched.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrAccountNotFound, id)
	}
	return nil
}
