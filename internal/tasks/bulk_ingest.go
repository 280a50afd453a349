package tasks

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/desertthunder/mindx/internal/formatter"
	"golang.org/x/time/rate"
)

// BulkIngestOpts contains configuration for bulk ingestion.
type BulkIngestOpts struct {
	NumWorkers int     // Concurrent workers (default: 4, max: 16)
	RateLimit  float64 // Ingestions started per second (default: 2)
	ReportPath string  // Optional report file written after the run
	Format     string  // Report format: json, csv
}

// BulkIngestItem is the outcome of one manifest entry.
type BulkIngestItem struct {
	Line     int
	Source   string
	VideoURL string
	Result   *IngestResult
	Error    error
}

// BulkIngestResult summarizes a bulk ingestion.
type BulkIngestResult struct {
	Total      int
	Succeeded  int
	Failed     int
	Items      []BulkIngestItem
	ReportPath string
}

type bulkJob struct {
	index int
	entry formatter.ManifestEntry
}

// BulkIngest ingests every manifest entry with a rate-limited worker pool.
//
// Entries whose Image is an http(s) URL go through [TargetIngestor.IngestFromURL]; anything else is
// read from disk. Failures are recorded per item and never stop the run. Items keep manifest order.
func (i *TargetIngestor) BulkIngest(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	entries []formatter.ManifestEntry,
	opts BulkIngestOpts,
) (*BulkIngestResult, error) {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 16 {
		opts.NumWorkers = 16
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	total := len(entries)
	result := &BulkIngestResult{
		Total: total,
		Items: make([]BulkIngestItem, total),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan bulkJob)
	results := make(chan bulkJob, total)
	items := result.Items

	var wg sync.WaitGroup
	for w := 0; w < opts.NumWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				items[job.index] = i.ingestEntry(ctx, job.entry)
				results <- job
			}
		}()
	}

	go func() {
		defer close(jobs)
		sendProgress(prog, bulkStartUpdate(total))
		for idx, entry := range entries {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			sendProgress(prog, ingestingUpdate(idx+1, total, entry.Image))
			select {
			case jobs <- bulkJob{index: idx, entry: entry}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for job := range results {
		completed++
		item := items[job.index]
		if item.Error == nil {
			result.Succeeded++
			sendProgress(prog, ingestCompletedUpdate(completed, total, item))
		} else {
			result.Failed++
			sendProgress(prog, ingestFailedUpdate(completed, total, item))
		}
	}

	for idx := range items {
		if items[idx].Source == "" && items[idx].Result == nil && items[idx].Error == nil {
			items[idx] = BulkIngestItem{
				Line:     entries[idx].Line,
				Source:   entries[idx].Image,
				VideoURL: entries[idx].VideoURL,
				Error:    fmt.Errorf("not started: %w", ctx.Err()),
			}
			result.Failed++
		}
	}

	if opts.ReportPath != "" {
		if err := formatter.WriteReport(reportRows(items), opts.Format, opts.ReportPath); err != nil {
			return result, fmt.Errorf("ingestion completed but failed to write report: %w", err)
		}
		result.ReportPath = opts.ReportPath
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (i *TargetIngestor) ingestEntry(ctx context.Context, entry formatter.ManifestEntry) BulkIngestItem {
	item := BulkIngestItem{Line: entry.Line, Source: entry.Image, VideoURL: entry.VideoURL}

	if isRemote(entry.Image) {
		item.Result, item.Error = i.IngestFromURL(ctx, IngestURLRequest{
			ImageURL: entry.Image,
			VideoURL: entry.VideoURL,
			OwnerID:  entry.OwnerID,
		})
		return item
	}

	var image []byte
	if entry.Image != "" {
		data, err := os.ReadFile(entry.Image)
		if err != nil {
			item.Error = fail(StageValidating, fmt.Errorf("failed to read image: %w", err))
			return item
		}
		image = data
	}

	item.Result, item.Error = i.Ingest(ctx, IngestRequest{
		Image:       image,
		Filename:    filepath.Base(entry.Image),
		ContentType: http.DetectContentType(image),
		VideoURL:    entry.VideoURL,
		OwnerID:     entry.OwnerID,
	})
	return item
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func reportRows(items []BulkIngestItem) []formatter.ReportRow {
	rows := make([]formatter.ReportRow, 0, len(items))
	for _, item := range items {
		row := formatter.ReportRow{Line: item.Line, Source: item.Source, VideoURL: item.VideoURL}
		if item.Result != nil {
			row.ID = item.Result.ID
			row.ImageURL = item.Result.ImageURL
			row.DescriptorURL = item.Result.DescriptorURL
		}
		if item.Error != nil {
			row.Error = item.Error.Error()
			if se, ok := AsStageError(item.Error); ok {
				row.Stage = se.Stage.String()
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Report returns one row per item in manifest order.
func (r *BulkIngestResult) Report() []formatter.ReportRow {
	return reportRows(r.Items)
}
