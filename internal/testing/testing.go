// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/mindx/internal/models"
	"github.com/desertthunder/mindx/internal/shared"
)

// FakeArtifactStore is an in-memory [services.ArtifactStore].
//
// FailOn makes Put fail for the listed paths.
type FakeArtifactStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []string
	FailOn  map[string]error
	BaseURL string
}

func NewFakeArtifactStore() *FakeArtifactStore {
	return &FakeArtifactStore{
		objects: make(map[string][]byte),
		FailOn:  make(map[string]error),
		BaseURL: "https://cdn.example.com",
	}
}

func (f *FakeArtifactStore) Put(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.puts = append(f.puts, path)
	if err, ok := f.FailOn[path]; ok {
		return "", err
	}
	f.objects[bucket+"/"+path] = bytes.Clone(data)
	return f.BaseURL + "/" + bucket + "/" + path, nil
}

func (f *FakeArtifactStore) Delete(ctx context.Context, bucket, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, bucket+"/"+path)
	return nil
}

func (f *FakeArtifactStore) PublicURL(bucket, path string) string {
	return f.BaseURL + "/" + bucket + "/" + path
}

// Object returns the stored bytes at bucket/path.
func (f *FakeArtifactStore) Object(bucket, path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[bucket+"/"+path]
	return data, ok
}

// Puts returns every path passed to Put, including failed attempts.
func (f *FakeArtifactStore) Puts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.puts...)
}

// Len returns the number of stored objects.
func (f *FakeArtifactStore) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// FakeCompiler returns Output (or the input when Output is nil) unless Err is set.
type FakeCompiler struct {
	mu     sync.Mutex
	calls  int
	Output []byte
	Err    error
}

func (f *FakeCompiler) Compile(ctx context.Context, image []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Output != nil {
		return bytes.Clone(f.Output), nil
	}
	return bytes.Clone(image), nil
}

func (f *FakeCompiler) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakeCatalog is an in-memory [services.Catalog].
//
// Rows maps table names to the user ids owning one row each. DeleteErr fails DeleteByUser per table.
type FakeCatalog struct {
	mu        sync.Mutex
	targets   []models.TargetRecord
	deletes   []string
	Rows      map[string][]string
	InsertErr error
	DeleteErr map[string]error
}

func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		Rows:      make(map[string][]string),
		DeleteErr: make(map[string]error),
	}
}

func (f *FakeCatalog) InsertTarget(ctx context.Context, target *models.TargetRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InsertErr != nil {
		return "", f.InsertErr
	}
	f.targets = append(f.targets, *target)
	if target.UserID != "" {
		f.Rows[models.TableTargets] = append(f.Rows[models.TableTargets], target.UserID)
	}
	return target.ID, nil
}

func (f *FakeCatalog) DeleteByUser(ctx context.Context, table, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deletes = append(f.deletes, table)
	if err, ok := f.DeleteErr[table]; ok {
		return 0, err
	}

	kept := f.Rows[table][:0]
	count := 0
	for _, owner := range f.Rows[table] {
		if owner == userID {
			count++
			continue
		}
		kept = append(kept, owner)
	}
	f.Rows[table] = kept
	return count, nil
}

func (f *FakeCatalog) ListTargets(ctx context.Context, limit int) ([]*models.TargetRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.TargetRecord
	for i := len(f.targets) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		t := f.targets[i]
		out = append(out, &t)
	}
	return out, nil
}

// Targets returns a copy of every inserted record in insertion order.
func (f *FakeCatalog) Targets() []models.TargetRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.TargetRecord(nil), f.targets...)
}

// Deletes returns the tables passed to DeleteByUser in call order.
func (f *FakeCatalog) Deletes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletes...)
}

// FakeIdentity maps raw Authorization header values to identities.
type FakeIdentity struct {
	mu        sync.Mutex
	deleted   []string
	Tokens    map[string]*models.Identity
	ResolveFn func(header string) (*models.Identity, error)
	DeleteErr error
}

func NewFakeIdentity() *FakeIdentity {
	return &FakeIdentity{Tokens: make(map[string]*models.Identity)}
}

func (f *FakeIdentity) Resolve(ctx context.Context, authHeader string) (*models.Identity, error) {
	if f.ResolveFn != nil {
		return f.ResolveFn(authHeader)
	}
	if identity, ok := f.Tokens[authHeader]; ok {
		return identity, nil
	}
	return nil, fmt.Errorf("%w: unknown token", shared.ErrUnauthenticated)
}

func (f *FakeIdentity) DeleteAccount(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.deleted = append(f.deleted, userID)
	return nil
}

// Deleted returns the ids passed to successful DeleteAccount calls.
func (f *FakeIdentity) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// FakeAdmins is a set-backed [services.AdminRegistry] that counts lookups.
type FakeAdmins struct {
	mu      sync.Mutex
	lookups int
	IDs     map[string]bool
	Err     error
}

func NewFakeAdmins(ids ...string) *FakeAdmins {
	f := &FakeAdmins{IDs: make(map[string]bool)}
	for _, id := range ids {
		f.IDs[id] = true
	}
	return f
}

func (f *FakeAdmins) IsAdmin(ctx context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.Err != nil {
		return false, f.Err
	}
	return f.IDs[userID], nil
}

func (f *FakeAdmins) Lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
