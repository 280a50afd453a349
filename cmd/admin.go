package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/mindx/internal/models"
	"github.com/desertthunder/mindx/internal/platform"
	"github.com/desertthunder/mindx/internal/repositories"
	"github.com/desertthunder/mindx/internal/shared"
	"github.com/desertthunder/mindx/internal/tasks"
	"github.com/desertthunder/mindx/internal/ui"
	"github.com/urfave/cli/v3"
)

// adminDirectory edits the admin registry.
type adminDirectory interface {
	Grant(ctx context.Context, userID string) error
	Revoke(ctx context.Context, userID string) (int, error)
	List(ctx context.Context) ([]models.AdminEntry, error)
}

type localAdminDirectory struct {
	repo *repositories.AdminRepository
}

func (l localAdminDirectory) Grant(ctx context.Context, userID string) error {
	return l.repo.Grant(ctx, userID)
}

func (l localAdminDirectory) Revoke(ctx context.Context, userID string) (int, error) {
	return l.repo.DeleteByUser(ctx, userID)
}

func (l localAdminDirectory) List(ctx context.Context) ([]models.AdminEntry, error) {
	return l.repo.List(ctx)
}

type platformAdminDirectory struct {
	client *platform.Client
}

func (p platformAdminDirectory) Grant(ctx context.Context, userID string) error {
	_, err := p.client.Insert(ctx, models.TableAdmins, map[string]string{"user_id": userID})
	return err
}

func (p platformAdminDirectory) Revoke(ctx context.Context, userID string) (int, error) {
	return p.client.DeleteWhere(ctx, models.TableAdmins, "user_id", userID)
}

func (p platformAdminDirectory) List(ctx context.Context) ([]models.AdminEntry, error) {
	var entries []models.AdminEntry
	filter := url.Values{"select": {"user_id,created_at"}, "order": {"created_at.asc"}}
	if err := p.client.Select(ctx, models.TableAdmins, filter, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// openAdminDirectory returns the directory of the configured backend.
func (r *Runner) openAdminDirectory() (adminDirectory, func(), error) {
	if err := r.config.Validate(); err != nil {
		return nil, nil, err
	}

	switch r.config.Backend {
	case shared.BackendLocal:
		db, err := shared.OpenAndMigrate(r.config.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return localAdminDirectory{repo: repositories.NewAdminRepository(db)}, func() { db.Close() }, nil
	default:
		client := platform.NewClient(r.config.Platform.URL, r.config.Platform.ServiceKey, r.httpClient)
		return platformAdminDirectory{client: client}, func() {}, nil
	}
}

func userIDArg(cmd *cli.Command) (string, error) {
	userID := strings.TrimSpace(cmd.StringArg("user_id"))
	if userID == "" {
		return "", fmt.Errorf("%w: user_id", shared.ErrMissingArgument)
	}
	return userID, nil
}

// AdminGrant adds a user to the admin registry.
func (r *Runner) AdminGrant(ctx context.Context, cmd *cli.Command) error {
	userID, err := userIDArg(cmd)
	if err != nil {
		return err
	}

	dir, closeFn, err := r.openAdminDirectory()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := dir.Grant(ctx, userID); err != nil {
		return fmt.Errorf("failed to grant admin: %w", err)
	}
	r.logger.Info("admin granted", "user_id", userID)
	return r.writeRendered(ui.Success("%s is now an admin", userID))
}

// AdminRevoke removes a user from the admin registry.
func (r *Runner) AdminRevoke(ctx context.Context, cmd *cli.Command) error {
	userID, err := userIDArg(cmd)
	if err != nil {
		return err
	}

	dir, closeFn, err := r.openAdminDirectory()
	if err != nil {
		return err
	}
	defer closeFn()

	count, err := dir.Revoke(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke admin: %w", err)
	}
	if count == 0 {
		return r.writeRendered(ui.Warning("%s was not an admin", userID))
	}
	r.logger.Info("admin revoked", "user_id", userID)
	return r.writeRendered(ui.Success("%s is no longer an admin", userID))
}

// AdminList prints the admin registry.
func (r *Runner) AdminList(ctx context.Context, cmd *cli.Command) error {
	dir, closeFn, err := r.openAdminDirectory()
	if err != nil {
		return err
	}
	defer closeFn()

	entries, err := dir.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list admins: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}
	if len(entries) == 0 {
		return r.writeRendered(ui.Hint("No admins."))
	}
	for _, e := range entries {
		r.writePlain("%s\t%s\n", e.UserID, e.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// AdminDeleteUser runs the cascading deletion with operator credentials, skipping the caller checks.
func (r *Runner) AdminDeleteUser(ctx context.Context, cmd *cli.Command) error {
	userID, err := userIDArg(cmd)
	if err != nil {
		return err
	}

	backend, closeFn, err := r.openBackend()
	if err != nil {
		return err
	}
	defer closeFn()

	deleter := tasks.NewCascadingDeleter(backend.Identity, backend.Admins, backend.Catalog, shared.WithLogger(r.logger, "component", "delete"))
	result, err := deleter.Purge(ctx, userID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if err := r.writeJSON(result, true); err != nil {
			return err
		}
	} else if err := r.writeRendered(ui.DeleteResult(userID, result)); err != nil {
		return err
	}

	if result.Status == tasks.StatusDomainOnly {
		return fmt.Errorf("%s: %s", result.Warning, result.Detail)
	}
	return nil
}
