package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mindx/internal/models"
	"github.com/desertthunder/mindx/internal/platform"
	"github.com/desertthunder/mindx/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

// PlatformIdentity implements [IdentityGateway] against the managed auth service.
type PlatformIdentity struct {
	client *platform.Client
}

// NewPlatformIdentity creates a gateway backed by client.
func NewPlatformIdentity(client *platform.Client) *PlatformIdentity {
	return &PlatformIdentity{client: client}
}

// Resolve asks the auth service who owns the bearer token. Provider outages wrap [shared.ErrInternal].
func (p *PlatformIdentity) Resolve(ctx context.Context, authHeader string) (*models.Identity, error) {
	token, err := BearerToken(authHeader)
	if err != nil {
		return nil, err
	}

	identity, err := p.client.GetUser(ctx, "Bearer "+token)
	if err != nil {
		if errors.Is(err, shared.ErrUnauthenticated) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: identity lookup: %v", shared.ErrInternal, err)
	}
	return identity, nil
}

// DeleteAccount removes the account with the service credential.
func (p *PlatformIdentity) DeleteAccount(ctx context.Context, userID string) error {
	err := p.client.DeleteUser(ctx, userID)
	if errors.Is(err, shared.ErrAccountNotFound) {
		return nil
	}
	return err
}

// AccountStore is the persistence the local gateway needs.
type AccountStore interface {
	Get(ctx context.Context, id string) (*models.Account, error)
	Delete(ctx context.Context, id string) error
}

// TokenClaims are the claims carried by locally verified access tokens.
type TokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// JWTIdentity implements [IdentityGateway] by verifying HS256 access tokens and checking the account still exists.
type JWTIdentity struct {
	secret   []byte
	accounts AccountStore
	now      func() time.Time
}

// NewJWTIdentity creates a gateway verifying tokens signed with secret.
func NewJWTIdentity(secret string, accounts AccountStore) *JWTIdentity {
	return &JWTIdentity{secret: []byte(secret), accounts: accounts, now: time.Now}
}

// Resolve verifies the token signature and expiry, then confirms the subject's account exists.
func (j *JWTIdentity) Resolve(ctx context.Context, authHeader string) (*models.Identity, error) {
	raw, err := BearerToken(authHeader)
	if err != nil {
		return nil, err
	}

	var claims TokenClaims
	_, err = jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnauthenticated, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", shared.ErrUnauthenticated)
	}

	account, err := j.accounts.Get(ctx, claims.Subject)
	if errors.Is(err, shared.ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: account no longer exists", shared.ErrUnauthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: identity lookup: %v", shared.ErrInternal, err)
	}

	return &models.Identity{ID: account.ID, Email: account.Email}, nil
}

// DeleteAccount removes the local account row.
func (j *JWTIdentity) DeleteAccount(ctx context.Context, userID string) error {
	err := j.accounts.Delete(ctx, userID)
	if errors.Is(err, shared.ErrAccountNotFound) {
		return nil
	}
	return err
}

// IssueToken signs an HS256 access token for subject valid for ttl.
func IssueToken(secret, subject, email string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: token secret is empty", shared.ErrMissingCredentials)
	}

	now := time.Now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}
