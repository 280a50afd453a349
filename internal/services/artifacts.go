package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/desertthunder/mindx/internal/platform"
	"github.com/desertthunder/mindx/internal/shared"
)

// PlatformArtifacts implements [ArtifactStore] on the managed object storage.
type PlatformArtifacts struct {
	client *platform.Client
}

// NewPlatformArtifacts creates a store backed by client.
func NewPlatformArtifacts(client *platform.Client) *PlatformArtifacts {
	return &PlatformArtifacts{client: client}
}

// Put uploads data, overwriting any object at the same path, and returns its public URL.
func (p *PlatformArtifacts) Put(ctx context.Context, bucket, objectPath string, data []byte, contentType string) (string, error) {
	if err := p.client.Upload(ctx, bucket, objectPath, data, contentType); err != nil {
		return "", fmt.Errorf("%w: upload %s/%s: %v", shared.ErrInternal, bucket, objectPath, err)
	}
	return p.client.PublicURL(bucket, objectPath), nil
}

// Delete removes the object at bucket/objectPath.
func (p *PlatformArtifacts) Delete(ctx context.Context, bucket, objectPath string) error {
	if err := p.client.Remove(ctx, bucket, objectPath); err != nil {
		return fmt.Errorf("%w: remove %s/%s: %v", shared.ErrInternal, bucket, objectPath, err)
	}
	return nil
}

// PublicURL returns the platform URL serving bucket/objectPath.
func (p *PlatformArtifacts) PublicURL(bucket, objectPath string) string {
	return p.client.PublicURL(bucket, objectPath)
}

// FileArtifacts implements [ArtifactStore] on a local directory laid out as <dir>/<bucket>/<path>.
//
// Public URLs are <baseURL>/<bucket>/<path>; the HTTP server serves dir under that prefix.
type FileArtifacts struct {
	dir     string
	baseURL string
}

// NewFileArtifacts creates a store rooted at dir.
func NewFileArtifacts(dir, baseURL string) *FileArtifacts {
	return &FileArtifacts{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Dir returns the root directory.
func (f *FileArtifacts) Dir() string {
	return f.dir
}

// Put writes data atomically through a temp file in the target directory and returns its public URL.
func (f *FileArtifacts) Put(ctx context.Context, bucket, objectPath string, data []byte, contentType string) (string, error) {
	target, err := f.resolve(bucket, objectPath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create directory: %v", shared.ErrInternal, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: failed to create temp file: %v", shared.ErrInternal, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: failed to write artifact: %v", shared.ErrInternal, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: failed to write artifact: %v", shared.ErrInternal, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("%w: failed to store artifact: %v", shared.ErrInternal, err)
	}

	return f.PublicURL(bucket, objectPath), nil
}

// Delete removes the file. A missing file is not an error.
func (f *FileArtifacts) Delete(ctx context.Context, bucket, objectPath string) error {
	target, err := f.resolve(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: failed to remove artifact: %v", shared.ErrInternal, err)
	}
	return nil
}

// PublicURL joins the escaped bucket and path onto the base URL.
func (f *FileArtifacts) PublicURL(bucket, objectPath string) string {
	segments := strings.Split(path.Join(bucket, objectPath), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return f.baseURL + "/" + strings.Join(segments, "/")
}

// resolve maps bucket/path to a file below dir, rejecting anything that escapes it.
func (f *FileArtifacts) resolve(bucket, objectPath string) (string, error) {
	if !fs.ValidPath(bucket) || !fs.ValidPath(objectPath) || bucket == "." || objectPath == "." || strings.Contains(bucket, "/") {
		return "", fmt.Errorf("%w: invalid artifact path %q", shared.ErrValidation, bucket+"/"+objectPath)
	}
	return filepath.Join(f.dir, bucket, filepath.FromSlash(objectPath)), nil
}
