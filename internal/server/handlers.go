package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mindx/internal/services"
	"github.com/desertthunder/mindx/internal/shared"
	"github.com/desertthunder/mindx/internal/tasks"
)

const ingestSuccessMessage = "Target successfully uploaded and converted"

// stageMessages are the client-facing texts for internal failures by stage.
var stageMessages = map[tasks.Stage]string{
	tasks.StageFetching:            "Failed to fetch image",
	tasks.StageUploadingImage:      "Failed to upload image",
	tasks.StageCompiling:           "Failed to compile .mind file",
	tasks.StageUploadingDescriptor: "Failed to upload .mind file",
	tasks.StageRecording:           "Database insert failed",
	tasks.StageCheckingAdmin:       "Admin check failed",
}

// respondTaskError writes err from an orchestrator. Internal stage failures carry the
// stage message in error and the underlying text in detail.
func respondTaskError(w http.ResponseWriter, err error) {
	se, ok := tasks.AsStageError(err)
	if !ok || StatusFor(err) != http.StatusInternalServerError {
		respondError(w, err)
		return
	}

	msg, ok := stageMessages[se.Stage]
	if !ok {
		msg = "Internal server error"
	}
	writeError(w, http.StatusInternalServerError, msg, se.Err.Error())
}

// HealthHandler answers liveness checks.
type HealthHandler struct{}

func (HealthHandler) Routes() []string {
	return []string{"/health"}
}

func (HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// DeleteUserHandler serves the admin cascading deletion endpoint.
type DeleteUserHandler struct {
	identity services.IdentityGateway
	deleter  *tasks.CascadingDeleter
	logger   *log.Logger
}

// NewDeleteUserHandler creates a [DeleteUserHandler].
func NewDeleteUserHandler(identity services.IdentityGateway, deleter *tasks.CascadingDeleter, logger *log.Logger) *DeleteUserHandler {
	return &DeleteUserHandler{identity: identity, deleter: deleter, logger: logger}
}

type deleteUserRequest struct {
	UserID string `json:"user_id"`
}

// ServeHTTP authenticates the caller before reading the body.
func (h *DeleteUserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	caller, err := h.identity.Resolve(ctx, r.Header.Get("Authorization"))
	if err != nil {
		if !errors.Is(err, shared.ErrUnauthenticated) {
			h.logger.Error("identity lookup failed", "err", err)
		}
		respondError(w, err)
		return
	}

	var body deleteUserRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", "")
		return
	}

	result, err := h.deleter.Run(ctx, caller.ID, body.UserID)
	if err != nil {
		respondTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// IngestHandler serves the target ingestion endpoint.
type IngestHandler struct {
	identity services.IdentityGateway
	ingestor *tasks.TargetIngestor
	maxBytes int64
	logger   *log.Logger
}

// NewIngestHandler creates an [IngestHandler]; maxBytes caps multipart bodies.
func NewIngestHandler(identity services.IdentityGateway, ingestor *tasks.TargetIngestor, maxBytes int64, logger *log.Logger) *IngestHandler {
	if maxBytes <= 0 {
		maxBytes = tasks.DefaultMaxImageBytes
	}
	return &IngestHandler{identity: identity, ingestor: ingestor, maxBytes: maxBytes, logger: logger}
}

type ingestResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	MindURL  string `json:"mindUrl"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type ingestURLRequest struct {
	ImageURL string `json:"imageUrl"`
	VideoURL string `json:"videoUrl"`
}

// ServeHTTP accepts multipart uploads (file, videoUrl) or JSON ({imageUrl, videoUrl}).
//
// An Authorization header is optional; when present it must resolve and the caller owns the target.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	var ownerID string
	if r.Header.Get("Authorization") != "" {
		caller, err := h.identity.Resolve(ctx, r.Header.Get("Authorization"))
		if err != nil {
			respondError(w, err)
			return
		}
		ownerID = caller.ID
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "multipart/form-data":
		h.serveMultipart(ctx, w, r, ownerID)
	case mediaType == "application/json":
		h.serveJSON(ctx, w, r, ownerID)
	default:
		writeError(w, http.StatusBadRequest, "Expected multipart/form-data", "")
	}
}

func (h *IngestHandler) serveMultipart(ctx context.Context, w http.ResponseWriter, r *http.Request, ownerID string) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large", "")
			return
		}
		writeError(w, http.StatusBadRequest, "Expected multipart/form-data", "")
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := tasks.IngestRequest{
		VideoURL: strings.TrimSpace(r.FormValue("videoUrl")),
		OwnerID:  ownerID,
	}

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Missing image file", "")
			return
		}
		req.Image = data
		req.Filename = header.Filename
		req.ContentType = header.Header.Get("Content-Type")
	}

	result, err := h.ingestor.Ingest(ctx, req)
	if err != nil {
		respondTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Success:  true,
		Message:  ingestSuccessMessage,
		MindURL:  result.DescriptorURL,
		ImageURL: result.ImageURL,
	})
}

func (h *IngestHandler) serveJSON(ctx context.Context, w http.ResponseWriter, r *http.Request, ownerID string) {
	var body ingestURLRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", "")
		return
	}

	result, err := h.ingestor.IngestFromURL(ctx, tasks.IngestURLRequest{
		ImageURL: strings.TrimSpace(body.ImageURL),
		VideoURL: strings.TrimSpace(body.VideoURL),
		OwnerID:  ownerID,
	})
	if err != nil {
		respondTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Success: true,
		Message: ingestSuccessMessage,
		MindURL: result.DescriptorURL,
	})
}

// ArtifactHandler serves objects written by [services.FileArtifacts] under /artifacts/.
//
// Directory listings are not served.
type ArtifactHandler struct {
	files http.Handler
}

// NewArtifactHandler serves files rooted at dir.
func NewArtifactHandler(dir string) *ArtifactHandler {
	return &ArtifactHandler{files: http.StripPrefix("/artifacts/", http.FileServer(http.Dir(dir)))}
}

func (h *ArtifactHandler) Routes() []string {
	return []string{"/artifacts/"}
}

func (h *ArtifactHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/") {
		writeError(w, http.StatusNotFound, "Not found", "")
		return
	}
	h.files.ServeHTTP(w, r)
}
