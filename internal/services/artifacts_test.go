package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/mindx/internal/shared"
)

func TestFileArtifacts(t *testing.T) {
	ctx := context.Background()

	t.Run("Put Writes File And Returns Public URL", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileArtifacts(dir, "http://localhost:8080/artifacts/")

		url, err := store.Put(ctx, "mindar-targets", "targets/abc.png", []byte("IMG"), "image/png")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if url != "http://localhost:8080/artifacts/mindar-targets/targets/abc.png" {
			t.Errorf("unexpected url %s", url)
		}

		data, err := os.ReadFile(filepath.Join(dir, "mindar-targets", "targets", "abc.png"))
		if err != nil || string(data) != "IMG" {
			t.Errorf("unexpected file contents %q (err %v)", data, err)
		}
	})

	t.Run("Put Overwrites", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileArtifacts(dir, "http://h")

		store.Put(ctx, "b", "minds/x.mind", []byte("one"), "")
		if _, err := store.Put(ctx, "b", "minds/x.mind", []byte("two"), ""); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		data, _ := os.ReadFile(filepath.Join(dir, "b", "minds", "x.mind"))
		if string(data) != "two" {
			t.Errorf("expected overwrite, got %q", data)
		}
	})

	t.Run("Rejects Traversal", func(t *testing.T) {
		store := NewFileArtifacts(t.TempDir(), "http://h")

		for _, p := range []string{"../escape.png", "targets/../../escape.png", "/abs.png", ""} {
			if _, err := store.Put(ctx, "b", p, []byte("x"), ""); !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation for %q, got %v", p, err)
			}
		}
		if _, err := store.Put(ctx, "a/b", "x.png", []byte("x"), ""); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation for nested bucket, got %v", err)
		}
	})

	t.Run("Delete Missing Is Success", func(t *testing.T) {
		store := NewFileArtifacts(t.TempDir(), "http://h")
		if err := store.Delete(ctx, "b", "minds/none.mind"); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("PublicURL Is Deterministic", func(t *testing.T) {
		store := NewFileArtifacts(t.TempDir(), "http://h/artifacts")
		a := store.PublicURL("b", "targets/x y.png")
		if a != store.PublicURL("b", "targets/x y.png") {
			t.Error("expected identical urls")
		}
		if a != "http://h/artifacts/b/targets/x%20y.png" {
			t.Errorf("unexpected url %s", a)
		}
	})
}

func TestPlatformArtifacts(t *testing.T) {
	t.Run("Put Uploads And Returns Public URL", func(t *testing.T) {
		var body []byte
		client := newPlatformClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/storage/v1/object/mindar-targets/minds/a.mind" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			body, _ = io.ReadAll(r.Body)
			w.Write([]byte(`{}`))
		})

		store := NewPlatformArtifacts(client)
		url, err := store.Put(context.Background(), "mindar-targets", "minds/a.mind", []byte("DESC"), "application/octet-stream")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(body) != "DESC" {
			t.Errorf("unexpected body %q", body)
		}
		if url != store.PublicURL("mindar-targets", "minds/a.mind") {
			t.Errorf("expected public url, got %s", url)
		}
	})

	t.Run("Put Failure", func(t *testing.T) {
		client := newPlatformClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})

		_, err := NewPlatformArtifacts(client).Put(context.Background(), "b", "p", []byte("x"), "")
		if !errors.Is(err, shared.ErrInternal) {
			t.Errorf("expected ErrInternal, got %v", err)
		}
	})
}
