package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mindx/internal/models"
	"github.com/desertthunder/mindx/internal/services"
	"github.com/desertthunder/mindx/internal/shared"
)

const (
	DescriptorExtension   = "mind"
	DescriptorContentType = "application/octet-stream"
	DefaultImageExtension = "jpg"
	DefaultMaxImageBytes  = 10 << 20
)

// IngestorOpts contains the collaborators of a [TargetIngestor].
type IngestorOpts struct {
	Store    services.ArtifactStore
	Compiler services.DescriptorCompiler
	Catalog  services.Catalog
	Storage  shared.StorageConfig

	HTTPClient    *http.Client // used by IngestFromURL (default: http.DefaultClient)
	MaxImageBytes int64        // limit for fetched images (default: 10 MiB)

	// AllowPrivateHosts lets IngestFromURL reach loopback, private and link-local addresses.
	AllowPrivateHosts bool

	Logger *log.Logger
	NewID  func() string
	Now    func() time.Time
}

// IngestRequest is one uploaded reference image.
type IngestRequest struct {
	Image       []byte
	Filename    string // only its extension is used
	ContentType string
	VideoURL    string
	OwnerID     string // optional; links the record to cascading deletion
}

// IngestURLRequest is the variant where the image already lives at a public URL.
type IngestURLRequest struct {
	ImageURL string
	VideoURL string
	OwnerID  string
}

// IngestResult holds the catalog id and public URLs of a completed ingestion.
type IngestResult struct {
	ID            string `json:"id"`
	ImageURL      string `json:"imageUrl"`
	DescriptorURL string `json:"mindUrl"`
}

// TargetIngestor runs upload -> compile -> upload -> record for one request at a time.
//
// It holds no per-request state and is safe for concurrent use. Stages run once each;
// artifacts stored before a failing stage are reported in [StageError.Orphans] and logged, never deleted.
type TargetIngestor struct {
	store    services.ArtifactStore
	compiler services.DescriptorCompiler
	catalog  services.Catalog
	storage  shared.StorageConfig
	client   *http.Client
	maxBytes int64
	private  bool
	logger   *log.Logger
	newID    func() string
	now      func() time.Time
}

// NewTargetIngestor creates an ingestor from opts, filling unset optional fields with defaults.
func NewTargetIngestor(opts IngestorOpts) *TargetIngestor {
	i := &TargetIngestor{
		store:    opts.Store,
		compiler: opts.Compiler,
		catalog:  opts.Catalog,
		storage:  opts.Storage,
		client:   opts.HTTPClient,
		maxBytes: opts.MaxImageBytes,
		private:  opts.AllowPrivateHosts,
		logger:   opts.Logger,
		newID:    opts.NewID,
		now:      opts.Now,
	}
	if i.client == nil {
		i.client = http.DefaultClient
	}
	if i.maxBytes <= 0 {
		i.maxBytes = DefaultMaxImageBytes
	}
	if !i.private {
		i.client = publicOnly(i.client)
	}
	if i.logger == nil {
		i.logger = shared.NewLogger(io.Discard)
	}
	if i.newID == nil {
		i.newID = shared.GenerateID
	}
	if i.now == nil {
		i.now = time.Now
	}
	return i
}

// ImagePath returns the storage path of the reference image for id.
func (i *TargetIngestor) ImagePath(id, ext string) string {
	return path.Join(i.storage.ImagePrefix, id+"."+ext)
}

// DescriptorPath returns the storage path of the descriptor for id.
func (i *TargetIngestor) DescriptorPath(id string) string {
	return path.Join(i.storage.DescriptorPrefix, id+"."+DescriptorExtension)
}

// Ingest stores the image, compiles it, stores the descriptor and records the target.
func (i *TargetIngestor) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if len(req.Image) == 0 {
		return nil, fail(StageValidating, fmt.Errorf("%w: Missing image file", shared.ErrValidation))
	}
	if req.VideoURL == "" {
		return nil, fail(StageValidating, fmt.Errorf("%w: Missing video URL", shared.ErrValidation))
	}

	id := i.newID()
	logger := shared.WithLogger(i.logger, "target", id)

	contentType := req.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(req.Image)
	}

	imagePath := i.ImagePath(id, shared.FileExtension(req.Filename, DefaultImageExtension))
	logger.Debug("uploading image", "stage", StageUploadingImage, "path", imagePath)
	imageURL, err := i.store.Put(ctx, i.storage.Bucket, imagePath, req.Image, contentType)
	if err != nil {
		return nil, i.failed(logger, StageUploadingImage, err)
	}

	descriptorURL, err := i.compileAndStore(ctx, logger, id, req.Image, imagePath)
	if err != nil {
		return nil, err
	}

	if err := i.record(ctx, logger, id, imageURL, descriptorURL, req.VideoURL, req.OwnerID, imagePath); err != nil {
		return nil, err
	}

	logger.Info("target ingested", "image", imagePath, "descriptor", i.DescriptorPath(id))
	return &IngestResult{ID: id, ImageURL: imageURL, DescriptorURL: descriptorURL}, nil
}

// IngestFromURL fetches the image at req.ImageURL and ingests it without re-uploading the image.
//
// The record keeps the supplied image URL.
func (i *TargetIngestor) IngestFromURL(ctx context.Context, req IngestURLRequest) (*IngestResult, error) {
	if req.ImageURL == "" {
		return nil, fail(StageValidating, fmt.Errorf("%w: Missing image URL", shared.ErrValidation))
	}
	if req.VideoURL == "" {
		return nil, fail(StageValidating, fmt.Errorf("%w: Missing video URL", shared.ErrValidation))
	}
	u, err := url.Parse(req.ImageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fail(StageValidating, fmt.Errorf("%w: image URL must be an absolute http(s) URL", shared.ErrValidation))
	}
	if !i.private {
		if err := checkHost(u.Hostname()); err != nil {
			return nil, fail(StageValidating, err)
		}
	}

	id := i.newID()
	logger := shared.WithLogger(i.logger, "target", id)

	logger.Debug("fetching image", "stage", StageFetching, "url", req.ImageURL)
	image, err := i.fetch(ctx, req.ImageURL)
	if errors.Is(err, errNonPublicHost) {
		logger.Warn("image URL rejected", "url", req.ImageURL, "err", err)
		return nil, fail(StageValidating, errNonPublicHost)
	}
	if err != nil {
		return nil, i.failed(logger, StageFetching, err)
	}

	descriptorURL, err := i.compileAndStore(ctx, logger, id, image)
	if err != nil {
		return nil, err
	}

	if err := i.record(ctx, logger, id, req.ImageURL, descriptorURL, req.VideoURL, req.OwnerID); err != nil {
		return nil, err
	}

	logger.Info("target ingested", "image", req.ImageURL, "descriptor", i.DescriptorPath(id))
	return &IngestResult{ID: id, ImageURL: req.ImageURL, DescriptorURL: descriptorURL}, nil
}

// compileAndStore runs the Compiling and UploadingDescriptor stages. orphans are the paths already stored.
func (i *TargetIngestor) compileAndStore(ctx context.Context, logger *log.Logger, id string, image []byte, orphans ...string) (string, error) {
	logger.Debug("compiling descriptor", "stage", StageCompiling, "bytes", len(image))
	descriptor, err := i.compiler.Compile(ctx, image)
	if err != nil {
		return "", i.failed(logger, StageCompiling, err, orphans...)
	}
	if len(descriptor) == 0 {
		return "", i.failed(logger, StageCompiling, fmt.Errorf("%w: empty descriptor", shared.ErrCompilationFailed), orphans...)
	}

	descriptorPath := i.DescriptorPath(id)
	logger.Debug("uploading descriptor", "stage", StageUploadingDescriptor, "path", descriptorPath)
	descriptorURL, err := i.store.Put(ctx, i.storage.Bucket, descriptorPath, descriptor, DescriptorContentType)
	if err != nil {
		return "", i.failed(logger, StageUploadingDescriptor, err, orphans...)
	}
	return descriptorURL, nil
}

func (i *TargetIngestor) record(ctx context.Context, logger *log.Logger, id, imageURL, descriptorURL, videoURL, ownerID string, orphans ...string) error {
	target := &models.TargetRecord{
		ID:            id,
		UserID:        ownerID,
		ImageURL:      imageURL,
		VideoURL:      videoURL,
		DescriptorURL: descriptorURL,
		CreatedAt:     i.now().UTC(),
	}

	logger.Debug("recording target", "stage", StageRecording)
	if _, err := i.catalog.InsertTarget(ctx, target); err != nil {
		return i.failed(logger, StageRecording, err, append(orphans, i.DescriptorPath(id))...)
	}
	return nil
}

// failed wraps err as an internal failure at stage and logs any orphaned artifacts.
func (i *TargetIngestor) failed(logger *log.Logger, stage Stage, err error, orphans ...string) *StageError {
	logger.Error("ingestion failed", "stage", stage, "err", err)
	for _, p := range orphans {
		logger.Warn("orphaned artifact left in storage", "bucket", i.storage.Bucket, "path", p)
	}
	if !errors.Is(err, shared.ErrInternal) {
		err = fmt.Errorf("%w: %w", shared.ErrInternal, err)
	}
	return fail(stage, err, orphans...)
}
