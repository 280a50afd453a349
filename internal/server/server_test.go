package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mindx/internal/models"
	"github.com/desertthunder/mindx/internal/services"
	"github.com/desertthunder/mindx/internal/shared"
	tu "github.com/desertthunder/mindx/internal/testing"
	"golang.org/x/time/rate"
)

type fixture struct {
	identity *tu.FakeIdentity
	admins   *tu.FakeAdmins
	store    *tu.FakeArtifactStore
	catalog  *tu.FakeCatalog
	compiler *tu.FakeCompiler
	config   *shared.Config
}

func newFixture() *fixture {
	f := &fixture{
		identity: tu.NewFakeIdentity(),
		admins:   tu.NewFakeAdmins("admin-1"),
		store:    tu.NewFakeArtifactStore(),
		catalog:  tu.NewFakeCatalog(),
		compiler: &tu.FakeCompiler{Output: []byte("MIND")},
		config:   shared.DefaultConfig(),
	}
	f.identity.Tokens["Bearer admin-token"] = &models.Identity{ID: "admin-1"}
	f.identity.Tokens["Bearer user-token"] = &models.Identity{ID: "user-1"}
	f.catalog.Rows[models.TableTargets] = []string{"victim"}
	f.catalog.Rows[models.TableProfiles] = []string{"victim"}
	return f
}

func (f *fixture) handler(t *testing.T, artifacts services.ArtifactStore) http.Handler {
	t.Helper()
	if artifacts == nil {
		artifacts = f.store
	}
	srv, err := New(Options{
		Config: f.config,
		Backend: &services.Backend{
			Identity:  f.identity,
			Admins:    f.admins,
			Artifacts: artifacts,
			Catalog:   f.catalog,
		},
		Compiler: f.compiler,
		Logger:   shared.NewLogger(io.Discard),
	})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv.Handler()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON response, got %q (%s)", ct, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func multipartRequest(t *testing.T, fields map[string]string, filename string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		fw.Write(file)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/generate-mind", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type brokenStore struct {
	*tu.FakeArtifactStore
}

func (b brokenStore) Put(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	return "", errors.New("bucket unavailable")
}

func TestNew(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, shared.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestStatusFor(t *testing.T) {
	tc := []struct {
		err  error
		want int
	}{
		{err: nil, want: http.StatusOK},
		{err: fmt.Errorf("%w: x", shared.ErrValidation), want: http.StatusBadRequest},
		{err: shared.ErrInvalidArgument, want: http.StatusBadRequest},
		{err: fmt.Errorf("wrapped: %w", shared.ErrUnauthenticated), want: http.StatusUnauthorized},
		{err: shared.ErrForbidden, want: http.StatusForbidden},
		{err: shared.ErrInternal, want: http.StatusInternalServerError},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tc {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}

	t.Run("Validation Message", func(t *testing.T) {
		err := fmt.Errorf("validating: %w", fmt.Errorf("%w: user_id required", shared.ErrValidation))
		if got := publicMessage(err); got != "user_id required" {
			t.Errorf("unexpected message %q", got)
		}
	})
}

func TestRouter(t *testing.T) {
	t.Run("Method Mismatch Returns JSON 405", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodPost, "/thing", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not run")
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/thing", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
		if rec.Header().Get("Allow") != http.MethodPost {
			t.Errorf("expected Allow header, got %q", rec.Header().Get("Allow"))
		}
		if body := decodeBody(t, rec); body["error"] != "Only POST requests allowed" {
			t.Errorf("unexpected body %v", body)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("first"), mark("second"))
		r.Handle(http.MethodGet, "/x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("CORS", func(t *testing.T) {
		tc := []struct {
			name       string
			allowed    []string
			origin     string
			method     string
			wantStatus int
			wantHeader string
		}{
			{name: "no origin", allowed: []string{"https://app.example.com"}, method: http.MethodPost, wantStatus: http.StatusOK},
			{name: "wildcard", allowed: []string{"*"}, origin: "https://evil.example.com", method: http.MethodPost, wantStatus: http.StatusOK, wantHeader: "*"},
			{name: "padded wildcard", allowed: []string{" * "}, origin: "https://evil.example.com", method: http.MethodPost, wantStatus: http.StatusOK, wantHeader: "*"},
			{name: "listed origin", allowed: []string{" https://app.example.com "}, origin: "https://app.example.com", method: http.MethodPost, wantStatus: http.StatusOK, wantHeader: "https://app.example.com"},
			{name: "unlisted origin", allowed: []string{"https://app.example.com"}, origin: "https://evil.example.com", method: http.MethodPost, wantStatus: http.StatusForbidden},
			{name: "preflight", allowed: []string{"https://app.example.com"}, origin: "https://app.example.com", method: http.MethodOptions, wantStatus: http.StatusNoContent, wantHeader: "https://app.example.com"},
			{name: "unlisted preflight", allowed: []string{"https://app.example.com"}, origin: "https://evil.example.com", method: http.MethodOptions, wantStatus: http.StatusForbidden},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				req := httptest.NewRequest(tt.method, "/", nil)
				if tt.origin != "" {
					req.Header.Set("Origin", tt.origin)
				}
				rec := httptest.NewRecorder()
				CORS(shared.ServerConfig{AllowedOrigins: tt.allowed})(ok).ServeHTTP(rec, req)

				if rec.Code != tt.wantStatus {
					t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
				}
				if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantHeader {
					t.Errorf("expected allow-origin %q, got %q", tt.wantHeader, got)
				}
			})
		}
	})

	t.Run("RateLimit", func(t *testing.T) {
		h := RateLimit(rate.NewLimiter(rate.Every(time.Hour), 1))(ok)

		first := httptest.NewRecorder()
		h.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/", nil))
		second := httptest.NewRecorder()
		h.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/", nil))

		if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
			t.Errorf("expected 200 then 429, got %d then %d", first.Code, second.Code)
		}
	})

	t.Run("Disabled Limiter", func(t *testing.T) {
		h := RateLimit(NewIngestLimiter(0, 0))(ok)
		for range 20 {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("expected unlimited requests, got %d", rec.Code)
			}
		}
	})

	t.Run("Recover", func(t *testing.T) {
		panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("kaboom")
		})
		rec := httptest.NewRecorder()
		Recover(shared.NewLogger(io.Discard))(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if body := decodeBody(t, rec); strings.Contains(fmt.Sprint(body), "kaboom") {
			t.Errorf("panic value leaked into body %v", body)
		}
	})

	t.Run("Logging Omits Authorization", func(t *testing.T) {
		var buf bytes.Buffer
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Authorization", "Bearer secret-token")
		rec := httptest.NewRecorder()

		Logging(shared.NewLogger(&buf))(ok).ServeHTTP(rec, req)

		if strings.Contains(buf.String(), "secret-token") {
			t.Errorf("log line contains credential: %s", buf.String())
		}
		if !strings.Contains(buf.String(), "/health") {
			t.Errorf("expected path in log line: %s", buf.String())
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("expected request id header")
		}
	})
}

func TestHealth(t *testing.T) {
	h := newFixture().handler(t, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK || decodeBody(t, rec)["ok"] != true {
		t.Errorf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteUser(t *testing.T) {
	tc := []struct {
		name       string
		method     string
		auth       string
		body       string
		setup      func(f *fixture)
		wantStatus int
		wantError  string
		wantResult string
	}{
		{name: "wrong method", method: http.MethodGet, auth: "Bearer admin-token", wantStatus: http.StatusMethodNotAllowed, wantError: "Only POST requests allowed"},
		{name: "no credential", body: `{"user_id":"victim"}`, wantStatus: http.StatusUnauthorized, wantError: "Not authenticated"},
		{name: "bad credential", auth: "Bearer nope", body: `{"user_id":"victim"}`, wantStatus: http.StatusUnauthorized, wantError: "Not authenticated"},
		{name: "missing user id", auth: "Bearer admin-token", body: `{}`, wantStatus: http.StatusBadRequest, wantError: "user_id required"},
		{name: "empty body", auth: "Bearer admin-token", wantStatus: http.StatusBadRequest, wantError: "user_id required"},
		{name: "malformed body", auth: "Bearer admin-token", body: `{`, wantStatus: http.StatusBadRequest, wantError: "Invalid JSON body"},
		{name: "self deletion", auth: "Bearer admin-token", body: `{"user_id":"admin-1"}`, wantStatus: http.StatusBadRequest, wantError: "Admins cannot delete their own account"},
		{name: "non-admin", auth: "Bearer user-token", body: `{"user_id":"victim"}`, wantStatus: http.StatusForbidden, wantError: "Forbidden: admin only"},
		{
			name: "admin check failure", auth: "Bearer admin-token", body: `{"user_id":"victim"}`,
			setup:      func(f *fixture) { f.admins.Err = errors.New("registry down") },
			wantStatus: http.StatusInternalServerError, wantError: "Admin check failed",
		},
		{name: "deleted", auth: "Bearer admin-token", body: `{"user_id":"victim"}`, wantStatus: http.StatusOK, wantResult: "deleted"},
		{
			name: "identity failure", auth: "Bearer admin-token", body: `{"user_id":"victim"}`,
			setup:      func(f *fixture) { f.identity.DeleteErr = errors.New("auth api down") },
			wantStatus: http.StatusOK, wantResult: "domain_only",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setup != nil {
				tt.setup(f)
			}
			method := tt.method
			if method == "" {
				method = http.MethodPost
			}

			req := httptest.NewRequest(method, "/admin-delete-user", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			f.handler(t, nil).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d (%s)", tt.wantStatus, rec.Code, rec.Body.String())
			}
			body := decodeBody(t, rec)
			if tt.wantError != "" && body["error"] != tt.wantError {
				t.Errorf("expected error %q, got %v", tt.wantError, body["error"])
			}
			if tt.wantResult != "" && body["status"] != tt.wantResult {
				t.Errorf("expected status %q, got %v", tt.wantResult, body["status"])
			}
			if tt.wantStatus != http.StatusOK && len(f.catalog.Deletes()) != 0 {
				t.Errorf("expected no deletes on failure, got %v", f.catalog.Deletes())
			}
		})
	}

	t.Run("Domain Only Carries Warning", func(t *testing.T) {
		f := newFixture()
		f.identity.DeleteErr = errors.New("auth api down")

		req := httptest.NewRequest(http.MethodPost, "/admin-delete-user", strings.NewReader(`{"user_id":"victim"}`))
		req.Header.Set("Authorization", "Bearer admin-token")
		rec := httptest.NewRecorder()
		f.handler(t, nil).ServeHTTP(rec, req)

		body := decodeBody(t, rec)
		if body["warning"] != "Auth delete failed" || !strings.Contains(fmt.Sprint(body["detail"]), "auth api down") {
			t.Errorf("unexpected body %v", body)
		}
	})
}

func TestGenerateMind(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nimage-bytes")

	t.Run("Wrong Method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newFixture().handler(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/generate-mind", nil))

		if rec.Code != http.StatusMethodNotAllowed || decodeBody(t, rec)["error"] != "Only POST requests allowed" {
			t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/generate-mind", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		newFixture().handler(t, nil).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("Unsupported Content Type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/generate-mind", strings.NewReader("hi"))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		newFixture().handler(t, nil).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest || decodeBody(t, rec)["error"] != "Expected multipart/form-data" {
			t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Validation", func(t *testing.T) {
		tc := []struct {
			name   string
			fields map[string]string
			file   []byte
			want   string
		}{
			{name: "missing file", fields: map[string]string{"videoUrl": "https://v.example.com/a.mp4"}, want: "Missing image file"},
			{name: "missing video", file: png, want: "Missing video URL"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture()
				rec := httptest.NewRecorder()
				f.handler(t, nil).ServeHTTP(rec, multipartRequest(t, tt.fields, "a.png", tt.file))

				if rec.Code != http.StatusBadRequest || decodeBody(t, rec)["error"] != tt.want {
					t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
				}
				if f.store.Len() != 0 || len(f.catalog.Targets()) != 0 {
					t.Error("validation failure must not write anything")
				}
			})
		}
	})

	t.Run("Success", func(t *testing.T) {
		f := newFixture()
		rec := httptest.NewRecorder()
		req := multipartRequest(t, map[string]string{"videoUrl": "https://v.example.com/a.mp4"}, "ref.PNG", png)
		f.handler(t, nil).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["success"] != true || body["message"] != "Target successfully uploaded and converted" {
			t.Errorf("unexpected body %v", body)
		}

		targets := f.catalog.Targets()
		if len(targets) != 1 {
			t.Fatalf("expected one record, got %d", len(targets))
		}
		rec0 := targets[0]
		if body["mindUrl"] != rec0.DescriptorURL || body["imageUrl"] != rec0.ImageURL {
			t.Errorf("response urls do not match record: %v vs %+v", body, rec0)
		}
		if !strings.HasSuffix(rec0.ImageURL, "/targets/"+rec0.ID+".png") || !strings.HasSuffix(rec0.DescriptorURL, "/minds/"+rec0.ID+".mind") {
			t.Errorf("unexpected layout %s %s", rec0.ImageURL, rec0.DescriptorURL)
		}
		if rec0.UserID != "" {
			t.Errorf("anonymous upload should have no owner, got %q", rec0.UserID)
		}
	})

	t.Run("Authenticated Owner", func(t *testing.T) {
		f := newFixture()
		req := multipartRequest(t, map[string]string{"videoUrl": "https://v.example.com/a.mp4"}, "a.jpg", png)
		req.Header.Set("Authorization", "Bearer user-token")
		rec := httptest.NewRecorder()
		f.handler(t, nil).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if targets := f.catalog.Targets(); targets[0].UserID != "user-1" {
			t.Errorf("expected owner user-1, got %q", targets[0].UserID)
		}
	})

	t.Run("Invalid Credential", func(t *testing.T) {
		f := newFixture()
		req := multipartRequest(t, map[string]string{"videoUrl": "https://v.example.com/a.mp4"}, "a.jpg", png)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		f.handler(t, nil).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized || f.store.Len() != 0 {
			t.Errorf("expected 401 without writes, got %d", rec.Code)
		}
	})

	t.Run("Stage Failures", func(t *testing.T) {
		tc := []struct {
			name  string
			setup func(f *fixture) services.ArtifactStore
			want  string
		}{
			{
				name: "image upload",
				setup: func(f *fixture) services.ArtifactStore {
					return brokenStore{f.store}
				},
				want: "Failed to upload image",
			},
			{
				name: "compile",
				setup: func(f *fixture) services.ArtifactStore {
					f.compiler.Err = shared.ErrCompilationFailed
					return nil
				},
				want: "Failed to compile .mind file",
			},
			{
				name: "record",
				setup: func(f *fixture) services.ArtifactStore {
					f.catalog.InsertErr = errors.New("constraint violation")
					return nil
				},
				want: "Database insert failed",
			},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture()
				store := tt.setup(f)
				rec := httptest.NewRecorder()
				req := multipartRequest(t, map[string]string{"videoUrl": "https://v.example.com/a.mp4"}, "a.png", png)
				f.handler(t, store).ServeHTTP(rec, req)

				if rec.Code != http.StatusInternalServerError {
					t.Fatalf("expected 500, got %d", rec.Code)
				}
				body := decodeBody(t, rec)
				if body["error"] != tt.want || body["detail"] == "" {
					t.Errorf("unexpected body %v", body)
				}
				if len(f.catalog.Targets()) != 0 {
					t.Error("failed ingestion must not leave a record")
				}
			})
		}
	})

	t.Run("Upload Too Large", func(t *testing.T) {
		f := newFixture()
		f.config.Server.MaxUploadBytes = 512
		req := multipartRequest(t, map[string]string{"videoUrl": "https://v.example.com/a.mp4"}, "a.png", bytes.Repeat([]byte("x"), 4096))
		rec := httptest.NewRecorder()
		f.handler(t, nil).ServeHTTP(rec, req)

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("expected 413, got %d", rec.Code)
		}
	})

	t.Run("Rate Limited", func(t *testing.T) {
		f := newFixture()
		f.config.Server.IngestRateLimit = 0.001
		f.config.Server.IngestBurst = 1
		h := f.handler(t, nil)

		codes := make([]int, 2)
		for i := range codes {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, multipartRequest(t, map[string]string{"videoUrl": "https://v.example.com/a.mp4"}, "a.png", png))
			codes[i] = rec.Code
		}
		if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
			t.Errorf("expected 200 then 429, got %v", codes)
		}
	})

	t.Run("JSON Image URL", func(t *testing.T) {
		images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(png)
		}))
		defer images.Close()

		f := newFixture()
		f.config.Server.AllowPrivateFetch = true
		payload := fmt.Sprintf(`{"imageUrl":%q,"videoUrl":"https://v.example.com/a.mp4"}`, images.URL+"/ref.png")
		req := httptest.NewRequest(http.MethodPost, "/generate-mind", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		rec := httptest.NewRecorder()
		f.handler(t, nil).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if _, ok := body["imageUrl"]; ok {
			t.Errorf("URL variant should not echo imageUrl: %v", body)
		}
		if targets := f.catalog.Targets(); len(targets) != 1 || targets[0].ImageURL != images.URL+"/ref.png" {
			t.Errorf("expected record to keep the supplied image url, got %+v", targets)
		}
	})

	t.Run("JSON Private Image URL", func(t *testing.T) {
		images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("private image host should not be contacted")
			w.Write(png)
		}))
		defer images.Close()

		f := newFixture()
		payload := fmt.Sprintf(`{"imageUrl":%q,"videoUrl":"https://v.example.com/a.mp4"}`, images.URL+"/latest/meta-data")
		req := httptest.NewRequest(http.MethodPost, "/generate-mind", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		f.handler(t, nil).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
		}
		if body := decodeBody(t, rec); body["error"] != "image URL must point to a public host" {
			t.Errorf("unexpected error %v", body["error"])
		}
		if f.store.Len() != 0 || len(f.catalog.Targets()) != 0 {
			t.Error("expected nothing stored or recorded")
		}
	})

	t.Run("JSON Validation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/generate-mind", strings.NewReader(`{"imageUrl":"ftp://x/y.png","videoUrl":"v"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		newFixture().handler(t, nil).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestArtifacts(t *testing.T) {
	dir := t.TempDir()
	f := newFixture()
	files := services.NewFileArtifacts(dir, "http://localhost/artifacts")
	if _, err := files.Put(context.Background(), "mindar-targets", "minds/a.mind", []byte("MIND"), ""); err != nil {
		t.Fatalf("failed to seed artifact: %v", err)
	}
	h := f.handler(t, files)

	t.Run("Serves Object", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/artifacts/mindar-targets/minds/a.mind", nil))

		if rec.Code != http.StatusOK || rec.Body.String() != "MIND" {
			t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("No Listings", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/artifacts/mindar-targets/", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("Ingestion Round Trip", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := multipartRequest(t, map[string]string{"videoUrl": "https://v.example.com/a.mp4"}, "a.png", []byte("PNGDATA"))
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}

		target := f.catalog.Targets()[0]
		tu.AssertFileExists(t, filepath.Join(dir, "mindar-targets", "minds", target.ID+".mind"))
		data, err := os.ReadFile(filepath.Join(dir, "mindar-targets", "targets", target.ID+".png"))
		if err != nil || string(data) != "PNGDATA" {
			t.Errorf("unexpected stored image %q (%v)", data, err)
		}
	})
}

func TestServe(t *testing.T) {
	f := newFixture()
	srv, err := New(Options{
		Config:   f.config,
		Backend:  &services.Backend{Identity: f.identity, Admins: f.admins, Artifacts: f.store, Catalog: f.catalog},
		Compiler: f.compiler,
		Logger:   shared.NewLogger(io.Discard),
	})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
