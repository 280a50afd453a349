package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/mindx/internal/models"
	"github.com/desertthunder/mindx/internal/platform"
	"github.com/desertthunder/mindx/internal/shared"
)

// platformTarget is the row shape of the hosted targets table.
type platformTarget struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"user_id,omitempty"`
	ImageURL  string    `json:"imageUrl"`
	VideoURL  string    `json:"videoUrl"`
	MindURL   string    `json:"mindUrl"`
	CreatedAt time.Time `json:"created_at"`
}

// PlatformCatalog implements [Catalog] with the managed row API.
type PlatformCatalog struct {
	client *platform.Client
}

// NewPlatformCatalog creates a catalog backed by client.
func NewPlatformCatalog(client *platform.Client) *PlatformCatalog {
	return &PlatformCatalog{client: client}
}

// InsertTarget writes target to the targets table and returns the id the platform stored.
func (p *PlatformCatalog) InsertTarget(ctx context.Context, target *models.TargetRecord) (string, error) {
	if err := target.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if target.ID == "" {
		target.ID = shared.GenerateID()
	}
	if target.CreatedAt.IsZero() {
		target.CreatedAt = time.Now().UTC()
	}

	row := platformTarget{
		ID:        target.ID,
		ImageURL:  target.ImageURL,
		VideoURL:  target.VideoURL,
		MindURL:   target.DescriptorURL,
		CreatedAt: target.CreatedAt,
	}
	if target.UserID != "" {
		row.UserID = &target.UserID
	}

	raw, err := p.client.Insert(ctx, models.TableTargets, row)
	if err != nil {
		return "", fmt.Errorf("%w: insert target: %v", shared.ErrInternal, err)
	}

	var stored platformTarget
	if err := json.Unmarshal(raw, &stored); err == nil && stored.ID != "" {
		target.ID = stored.ID
	}
	return target.ID, nil
}

// DeleteByUser removes every row of table owned by userID and returns how many were deleted.
func (p *PlatformCatalog) DeleteByUser(ctx context.Context, table, userID string) (int, error) {
	count, err := p.client.DeleteWhere(ctx, table, "user_id", userID)
	if err != nil {
		return 0, fmt.Errorf("%w: delete from %s: %v", shared.ErrInternal, table, err)
	}
	return count, nil
}

// ListTargets returns up to limit targets, newest first. A limit of zero lists all of them.
func (p *PlatformCatalog) ListTargets(ctx context.Context, limit int) ([]*models.TargetRecord, error) {
	filter := url.Values{"select": {"*"}, "order": {"created_at.desc"}}
	if limit > 0 {
		filter.Set("limit", strconv.Itoa(limit))
	}

	var rows []platformTarget
	if err := p.client.Select(ctx, models.TableTargets, filter, &rows); err != nil {
		return nil, fmt.Errorf("%w: list targets: %v", shared.ErrInternal, err)
	}

	targets := make([]*models.TargetRecord, 0, len(rows))
	for _, row := range rows {
		target := &models.TargetRecord{
			ID:            row.ID,
			ImageURL:      row.ImageURL,
			VideoURL:      row.VideoURL,
			DescriptorURL: row.MindURL,
			CreatedAt:     row.CreatedAt,
		}
		if row.UserID != nil {
			target.UserID = *row.UserID
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// TargetStore is satisfied by [repositories.TargetRepository].
type TargetStore interface {
	Create(ctx context.Context, target *models.TargetRecord) error
	List(ctx context.Context, limit int) ([]*models.TargetRecord, error)
}

// UserRowDeleter is satisfied by every repository with user-owned rows.
type UserRowDeleter interface {
	DeleteByUser(ctx context.Context, userID string) (int, error)
}

// LocalCatalog implements [Catalog] over the sqlite repositories.
type LocalCatalog struct {
	targets TargetStore
	tables  map[string]UserRowDeleter
}

// NewLocalCatalog creates a catalog. tables maps each domain table name to the repository owning it.
func NewLocalCatalog(targets TargetStore, tables map[string]UserRowDeleter) *LocalCatalog {
	return &LocalCatalog{targets: targets, tables: tables}
}

// InsertTarget creates target in sqlite and returns its id.
func (l *LocalCatalog) InsertTarget(ctx context.Context, target *models.TargetRecord) (string, error) {
	if err := l.targets.Create(ctx, target); err != nil {
		return "", fmt.Errorf("%w: insert target: %v", shared.ErrInternal, err)
	}
	return target.ID, nil
}

// DeleteByUser delegates to the repository registered for table.
func (l *LocalCatalog) DeleteByUser(ctx context.Context, table, userID string) (int, error) {
	repo, ok := l.tables[table]
	if !ok {
		return 0, fmt.Errorf("%w: unknown table %q", shared.ErrInternal, table)
	}

	count, err := repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrInternal, err)
	}
	return count, nil
}

// ListTargets returns up to limit targets, newest first.
func (l *LocalCatalog) ListTargets(ctx context.Context, limit int) ([]*models.TargetRecord, error) {
	targets, err := l.targets.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInternal, err)
	}
	return targets, nil
}
