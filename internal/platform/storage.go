package platform

import (
	"context"
	"net/http"
	"net/url"
)

// Upload stores data at bucket/path, overwriting any previous object.
func (c *Client) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp, err := c.do(ctx, c.service, request{
		method: http.MethodPost,
		path:   "/storage/v1/object/" + url.PathEscape(bucket) + "/" + escapePath(path),
		body:   data,
		headers: map[string]string{
			"Content-Type": contentType,
			"x-upsert":     "true",
		},
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return newAPIError(resp)
	}
	return nil
}

// Remove deletes the object at bucket/path. Removing a missing object is not an error.
func (c *Client) Remove(ctx context.Context, bucket, path string) error {
	resp, err := c.do(ctx, c.service, request{
		method: http.MethodDelete,
		path:   "/storage/v1/object/" + url.PathEscape(bucket) + "/" + escapePath(path),
	})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if !resp.OK() {
		return newAPIError(resp)
	}
	return nil
}

// PublicURL is the browser-accessible address of bucket/path. It depends only on its arguments.
func (c *Client) PublicURL(bucket, path string) string {
	return c.baseURL + "/storage/v1/object/public/" + url.PathEscape(bucket) + "/" + escapePath(path)
}
