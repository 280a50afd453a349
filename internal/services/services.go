// package services defines capability interfaces over the identity provider, datastore and blob storage
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/mindx/internal/models"
	"github.com/desertthunder/mindx/internal/shared"
)

// IdentityGateway resolves callers and removes identity accounts.
type IdentityGateway interface {
	// Resolve maps an Authorization header to the caller. Empty or malformed headers fail
	// with [shared.ErrUnauthenticated] without contacting the provider.
	Resolve(ctx context.Context, authHeader string) (*models.Identity, error)

	// DeleteAccount removes the login for userID. Deleting a missing account succeeds.
	DeleteAccount(ctx context.Context, userID string) error
}

// AdminRegistry answers "is this identity privileged?".
type AdminRegistry interface {
	// IsAdmin returns false, nil when no entry exists; errors are reserved for lookup failures.
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// ArtifactStore is a content-path blob store.
type ArtifactStore interface {
	// Put stores data at bucket/path and returns its public URL. Putting the same path twice overwrites.
	Put(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, bucket, path string) error
	// PublicURL depends only on bucket and path.
	PublicURL(bucket, path string) string
}

// DescriptorCompiler turns reference image bytes into descriptor bytes.
//
// The same image may compile to different bytes across compiler versions.
type DescriptorCompiler interface {
	Compile(ctx context.Context, image []byte) ([]byte, error)
}

// Catalog stores target rows and deletes user-owned rows across domain tables.
type Catalog interface {
	InsertTarget(ctx context.Context, target *models.TargetRecord) (string, error)
	// DeleteByUser removes rows of table matching userID; no match returns 0, nil.
	DeleteByUser(ctx context.Context, table, userID string) (int, error)
	ListTargets(ctx context.Context, limit int) ([]*models.TargetRecord, error)
}

// Backend bundles one implementation of every capability.
type Backend struct {
	Identity  IdentityGateway
	Admins    AdminRegistry
	Artifacts ArtifactStore
	Catalog   Catalog
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
//
// The raw header is never included in the returned error.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", shared.ErrUnauthenticated)
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", fmt.Errorf("%w: malformed authorization header", shared.ErrUnauthenticated)
	}

	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", fmt.Errorf("%w: malformed authorization header", shared.ErrUnauthenticated)
	}
	return token, nil
}
