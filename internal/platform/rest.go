package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Select fetches rows of table matching filter (row API syntax, e.g. "user_id" -> "eq.123") into out.
func (c *Client) Select(ctx context.Context, table string, filter url.Values, out any) error {
	resp, err := c.do(ctx, c.service, request{
		method:  http.MethodGet,
		path:    "/rest/v1/" + url.PathEscape(table),
		query:   filter,
		headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return newAPIError(resp)
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode %s rows: %w", table, err)
	}
	return nil
}

// Insert writes one row into table and returns the stored representation.
func (c *Client) Insert(ctx context.Context, table string, row any) (json.RawMessage, error) {
	body, err := json.Marshal([]any{row})
	if err != nil {
		return nil, fmt.Errorf("failed to encode row: %w", err)
	}

	resp, err := c.do(ctx, c.service, request{
		method: http.MethodPost,
		path:   "/rest/v1/" + url.PathEscape(table),
		body:   body,
		headers: map[string]string{
			"Content-Type": "application/json",
			"Prefer":       "return=representation",
		},
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, newAPIError(resp)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(resp.Body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode inserted row: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert into %s returned no rows", table)
	}
	return rows[0], nil
}

// DeleteWhere removes every row of table whose column equals value and returns how many were removed.
func (c *Client) DeleteWhere(ctx context.Context, table, column, value string) (int, error) {
	resp, err := c.do(ctx, c.service, request{
		method:  http.MethodDelete,
		path:    "/rest/v1/" + url.PathEscape(table),
		query:   url.Values{column: []string{"eq." + value}},
		headers: map[string]string{"Prefer": "return=representation"},
	})
	if err != nil {
		return 0, err
	}
	if !resp.OK() {
		return 0, newAPIError(resp)
	}

	if len(resp.Body) == 0 {
		return 0, nil
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(resp.Body, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode deleted rows: %w", err)
	}
	return len(rows), nil
}
