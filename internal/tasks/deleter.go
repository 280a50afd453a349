package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mindx/internal/models"
	"github.com/desertthunder/mindx/internal/services"
	"github.com/desertthunder/mindx/internal/shared"
)

const (
	StatusDeleted    = "deleted"
	StatusDomainOnly = "domain_only"

	WarningAuthDeleteFailed = "Auth delete failed"
	WarningDomainIncomplete = "Domain cleanup incomplete"
)

// DeleteResult is the outcome of a cascading deletion that reached the identity step.
type DeleteResult struct {
	Status  string         `json:"status"`
	Deleted map[string]int `json:"deleted,omitempty"`
	Warning string         `json:"warning,omitempty"`
	Detail  string         `json:"detail,omitempty"`
}

// CascadingDeleter removes a user's domain rows and then their identity account on behalf of an admin.
type CascadingDeleter struct {
	identity services.IdentityGateway
	admins   services.AdminRegistry
	catalog  services.Catalog
	tables   []string
	logger   *log.Logger
}

// NewCascadingDeleter creates a deleter visiting [models.DomainTables].
func NewCascadingDeleter(identity services.IdentityGateway, admins services.AdminRegistry, catalog services.Catalog, logger *log.Logger) *CascadingDeleter {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &CascadingDeleter{
		identity: identity,
		admins:   admins,
		catalog:  catalog,
		tables:   models.DomainTables,
		logger:   logger,
	}
}

// Run deletes targetID on behalf of callerID.
//
// Validation and authorization failures return a [StageError] before anything is mutated.
// Once domain deletion starts Run always returns a result: domain failures are collected and
// reported alongside the identity step, and an identity failure degrades to [StatusDomainOnly].
func (d *CascadingDeleter) Run(ctx context.Context, callerID, targetID string) (*DeleteResult, error) {
	if callerID == "" {
		return nil, fail(StageCheckingSelf, fmt.Errorf("%w: caller is unknown", shared.ErrUnauthenticated))
	}

	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, fail(StageCheckingSelf, fmt.Errorf("%w: user_id required", shared.ErrValidation))
	}
	if targetID == callerID {
		return nil, fail(StageCheckingSelf, fmt.Errorf("%w: Admins cannot delete their own account", shared.ErrValidation))
	}

	logger := shared.WithLogger(d.logger, "caller", callerID, "user_id", targetID)

	ok, err := d.admins.IsAdmin(ctx, callerID)
	if err != nil {
		logger.Error("admin check failed", "err", err)
		return nil, fail(StageCheckingAdmin, fmt.Errorf("%w: %w", shared.ErrInternal, err))
	}
	if !ok {
		logger.Warn("non-admin attempted account deletion")
		return nil, fail(StageCheckingAdmin, shared.ErrForbidden)
	}

	return d.purge(ctx, logger, targetID), nil
}

// Purge runs the domain and identity deletion stages for targetID without the caller checks.
// It backs operator tooling that already holds the service credential.
func (d *CascadingDeleter) Purge(ctx context.Context, targetID string) (*DeleteResult, error) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, fail(StageCheckingSelf, fmt.Errorf("%w: user_id required", shared.ErrValidation))
	}
	return d.purge(ctx, shared.WithLogger(d.logger, "user_id", targetID), targetID), nil
}

func (d *CascadingDeleter) purge(ctx context.Context, logger *log.Logger, targetID string) *DeleteResult {
	result := &DeleteResult{Deleted: make(map[string]int, len(d.tables))}

	var domainErrs []error
	for _, table := range d.tables {
		count, err := d.catalog.DeleteByUser(ctx, table, targetID)
		if err != nil {
			logger.Error("domain delete failed", "stage", StageDeletingDomain, "table", table, "err", err)
			domainErrs = append(domainErrs, fmt.Errorf("%s: %w", table, err))
			continue
		}
		result.Deleted[table] = count
		logger.Debug("domain rows deleted", "table", table, "count", count)
	}
	domainErr := errors.Join(domainErrs...)

	if err := d.identity.DeleteAccount(ctx, targetID); err != nil {
		logger.Error("identity delete failed", "stage", StageDeletingIdentity, "err", err)
		result.Status = StatusDomainOnly
		result.Warning = WarningAuthDeleteFailed
		result.Detail = joinDetail(err, domainErr)
		return result
	}

	result.Status = StatusDeleted
	if domainErr != nil {
		result.Warning = WarningDomainIncomplete
		result.Detail = joinDetail(domainErr)
	}

	logger.Info("user deleted", "status", result.Status, "deleted", result.Deleted)
	return result
}

func joinDetail(errs ...error) string {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			parts = append(parts, strings.ReplaceAll(err.Error(), "\n", "; "))
		}
	}
	return strings.Join(parts, "; ")
}
