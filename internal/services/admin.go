package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/desertthunder/mindx/internal/platform"
	"github.com/desertthunder/mindx/internal/shared"
)

// PlatformAdmins implements [AdminRegistry] with a row lookup on the admins table.
type PlatformAdmins struct {
	client *platform.Client
}

// NewPlatformAdmins creates a registry backed by client.
func NewPlatformAdmins(client *platform.Client) *PlatformAdmins {
	return &PlatformAdmins{client: client}
}

// IsAdmin reports whether userID has a row in the admins table. Lookup failures wrap [shared.ErrAdminCheckFailed].
func (p *PlatformAdmins) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var rows []struct {
		UserID string `json:"user_id"`
	}
	filter := url.Values{
		"select":  {"user_id"},
		"user_id": {"eq." + userID},
		"limit":   {"1"},
	}
	if err := p.client.Select(ctx, "admins", filter, &rows); err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrAdminCheckFailed, err)
	}
	return len(rows) > 0, nil
}

// AdminLookup is satisfied by [repositories.AdminRepository].
type AdminLookup interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// LocalAdmins implements [AdminRegistry] over the sqlite admins table.
type LocalAdmins struct {
	lookup AdminLookup
}

// NewLocalAdmins creates a registry backed by lookup.
func NewLocalAdmins(lookup AdminLookup) *LocalAdmins {
	return &LocalAdmins{lookup: lookup}
}

// IsAdmin reports whether userID is a local admin. Lookup failures wrap [shared.ErrAdminCheckFailed].
func (l *LocalAdmins) IsAdmin(ctx context.Context, userID string) (bool, error) {
	ok, err := l.lookup.Exists(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrAdminCheckFailed, err)
	}
	return ok, nil
}
