package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/mindx/internal/formatter"
	"github.com/desertthunder/mindx/internal/shared"
	"github.com/desertthunder/mindx/internal/tasks"
	"github.com/desertthunder/mindx/internal/ui"
	"github.com/urfave/cli/v3"
)

// Ingest compiles one image (file path or http(s) URL) or every entry of a CSV manifest.
func (r *Runner) Ingest(ctx context.Context, cmd *cli.Command) error {
	manifest := cmd.String("manifest")
	image := cmd.String("image")

	switch {
	case manifest != "" && image != "":
		return fmt.Errorf("%w: cannot specify both --image and --manifest", shared.ErrInvalidArgument)
	case manifest == "" && image == "":
		return fmt.Errorf("%w: either --image or --manifest must be provided", shared.ErrMissingArgument)
	}

	backend, closeFn, err := r.openBackend()
	if err != nil {
		return err
	}
	defer closeFn()

	ingestor, err := r.newIngestor(backend)
	if err != nil {
		return err
	}

	if manifest != "" {
		return r.ingestManifest(ctx, cmd, ingestor, manifest)
	}
	return r.ingestOne(ctx, cmd, ingestor, image)
}

func (r *Runner) ingestOne(ctx context.Context, cmd *cli.Command, ingestor *tasks.TargetIngestor, image string) error {
	video := cmd.String("video")
	owner := cmd.String("owner")

	var (
		result *tasks.IngestResult
		err    error
	)
	if u, perr := url.Parse(image); perr == nil && (u.Scheme == "http" || u.Scheme == "https") {
		result, err = ingestor.IngestFromURL(ctx, tasks.IngestURLRequest{ImageURL: image, VideoURL: video, OwnerID: owner})
	} else {
		data, rerr := os.ReadFile(image)
		if rerr != nil {
			return fmt.Errorf("failed to read image: %w", rerr)
		}
		result, err = ingestor.Ingest(ctx, tasks.IngestRequest{
			Image:    data,
			Filename: filepath.Base(image),
			VideoURL: video,
			OwnerID:  owner,
		})
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	return r.writeRendered(ui.IngestResult(result))
}

func (r *Runner) ingestManifest(ctx context.Context, cmd *cli.Command, ingestor *tasks.TargetIngestor, path string) error {
	entries, err := formatter.ReadManifestFile(path)
	if err != nil {
		return err
	}

	if owner := cmd.String("owner"); owner != "" {
		for i := range entries {
			if entries[i].OwnerID == "" {
				entries[i].OwnerID = owner
			}
		}
	}

	opts := tasks.BulkIngestOpts{
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
		ReportPath: cmd.String("report"),
		Format:     strings.ToLower(cmd.String("report-format")),
	}

	asJSON := cmd.Bool("json")
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if !asJSON {
				r.writeRendered(ui.Progress(update))
			}
		}
	}()

	result, err := ingestor.BulkIngest(ctx, progressCh, entries, opts)
	close(progressCh)
	<-done

	if result != nil {
		if asJSON {
			summary := map[string]any{
				"total":     result.Total,
				"succeeded": result.Succeeded,
				"failed":    result.Failed,
				"items":     result.Report(),
			}
			if werr := r.writeJSON(summary, true); werr != nil {
				return werr
			}
		} else if werr := r.writeRendered(ui.BulkSummary(result)); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d targets failed", result.Failed, result.Total)
	}
	return nil
}
