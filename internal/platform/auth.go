package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/mindx/internal/models"
	"github.com/desertthunder/mindx/internal/shared"
)

// GetUser resolves the caller's Authorization header to an identity.
//
// Rejections by the auth service wrap [shared.ErrUnauthenticated].
func (c *Client) GetUser(ctx context.Context, authHeader string) (*models.Identity, error) {
	resp, err := c.do(ctx, c.caller, request{
		method:  http.MethodGet,
		path:    "/auth/v1/user",
		headers: map[string]string{"Authorization": authHeader},
	})
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", shared.ErrUnauthenticated, newAPIError(resp).Message)
	case !resp.OK():
		return nil, newAPIError(resp)
	}

	var identity models.Identity
	if err := json.Unmarshal(resp.Body, &identity); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	if identity.ID == "" {
		return nil, fmt.Errorf("%w: user has no id", shared.ErrUnauthenticated)
	}
	return &identity, nil
}

// DeleteUser removes an identity account with the service credential.
//
// A missing account wraps [shared.ErrAccountNotFound].
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	resp, err := c.do(ctx, c.service, request{
		method: http.MethodDelete,
		path:   "/auth/v1/admin/users/" + url.PathEscape(userID),
	})
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrAccountNotFound, userID)
	case !resp.OK():
		return newAPIError(resp)
	}
	return nil
}
