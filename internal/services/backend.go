package services

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/mindx/internal/models"
	"github.com/desertthunder/mindx/internal/platform"
	"github.com/desertthunder/mindx/internal/repositories"
	"github.com/desertthunder/mindx/internal/shared"
)

// NewPlatformBackend wires every capability to the managed backend behind client.
func NewPlatformBackend(client *platform.Client) *Backend {
	return &Backend{
		Identity:  NewPlatformIdentity(client),
		Admins:    NewPlatformAdmins(client),
		Artifacts: NewPlatformArtifacts(client),
		Catalog:   NewPlatformCatalog(client),
	}
}

// NewLocalBackend wires every capability to sqlite and the filesystem.
func NewLocalBackend(cfg *shared.Config, db *sql.DB) *Backend {
	targets := repositories.NewTargetRepository(db)
	admins := repositories.NewAdminRepository(db)
	profiles := repositories.NewProfileRepository(db)
	accounts := repositories.NewAccountRepository(db)

	tables := map[string]UserRowDeleter{
		models.TableTargets:  targets,
		models.TableAdmins:   admins,
		models.TableProfiles: profiles,
	}

	return &Backend{
		Identity:  NewJWTIdentity(cfg.Platform.JWTSecret, accounts),
		Admins:    NewLocalAdmins(admins),
		Artifacts: NewFileArtifacts(cfg.Storage.Dir, cfg.Storage.PublicBaseURL),
		Catalog:   NewLocalCatalog(targets, tables),
	}
}

// NewBackend selects the backend named by cfg.Backend. db is only used by the local backend.
func NewBackend(cfg *shared.Config, db *sql.DB) (*Backend, error) {
	switch cfg.Backend {
	case shared.BackendPlatform:
		return NewPlatformBackend(platform.NewClient(cfg.Platform.URL, cfg.Platform.ServiceKey, nil)), nil
	case shared.BackendLocal:
		if db == nil {
			return nil, fmt.Errorf("%w: local backend needs a database", shared.ErrInvalidConfig)
		}
		return NewLocalBackend(cfg, db), nil
	default:
		return nil, fmt.Errorf("%w %q", shared.ErrUnknownBackend, cfg.Backend)
	}
}
