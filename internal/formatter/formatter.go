// package formatter reads bulk ingestion manifests and writes target listings and ingestion reports (CSV, JSON, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/mindx/internal/models"
	"github.com/desertthunder/mindx/internal/shared"
)

// ManifestEntry is one row of a bulk ingestion manifest.
//
// Image is a local file path or an http(s) URL.
type ManifestEntry struct {
	Line     int
	Image    string
	VideoURL string
	OwnerID  string
}

// ReadManifest parses a CSV manifest with a header row naming the columns image, video_url and optionally user_id.
//
// Column order is free; unknown columns are ignored.
func ReadManifest(r io.Reader) ([]ManifestEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: manifest is empty", shared.ErrInvalidArgument)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"image", "video_url"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: manifest is missing the %q column", shared.ErrInvalidArgument, required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var entries []ManifestEntry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}

		line, _ := reader.FieldPos(0)
		entries = append(entries, ManifestEntry{
			Line:     line,
			Image:    field(record, "image"),
			VideoURL: field(record, "video_url"),
			OwnerID:  field(record, "user_id"),
		})
	}
	return entries, nil
}

// ReadManifestFile opens path and parses it with [ReadManifest].
func ReadManifestFile(path string) ([]ManifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return ReadManifest(f)
}

// TargetsToCSV converts targets to CSV format with columns: ID, UserID, ImageURL, VideoURL, MindURL, CreatedAt
func TargetsToCSV(targets []*models.TargetRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "UserID", "ImageURL", "VideoURL", "MindURL", "CreatedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, target := range targets {
		record := []string{
			target.ID,
			target.UserID,
			target.ImageURL,
			target.VideoURL,
			target.DescriptorURL,
			target.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// TargetsToJSON converts targets to an indented JSON array using the client column names.
func TargetsToJSON(targets []*models.TargetRecord) ([]byte, error) {
	if targets == nil {
		targets = []*models.TargetRecord{}
	}
	data, err := json.MarshalIndent(targets, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal targets: %w", err)
	}
	return append(data, '\n'), nil
}

// TargetsToText converts targets to one line per target.
func TargetsToText(targets []*models.TargetRecord) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Targets: %d\n\n", len(targets)))

	for i, target := range targets {
		owner := ""
		if target.UserID != "" {
			owner = fmt.Sprintf(" (owner %s)", target.UserID)
		}
		buf.WriteString(fmt.Sprintf("%d. %s%s\n   image: %s\n   mind:  %s\n   video: %s\n",
			i+1, target.ID, owner, target.ImageURL, target.DescriptorURL, target.VideoURL))
	}
	return buf.Bytes()
}

// ReportRow is the outcome of one manifest entry.
type ReportRow struct {
	Line          int    `json:"line"`
	Source        string `json:"source"`
	VideoURL      string `json:"videoUrl"`
	ID            string `json:"id,omitempty"`
	ImageURL      string `json:"imageUrl,omitempty"`
	DescriptorURL string `json:"mindUrl,omitempty"`
	Stage         string `json:"stage,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ReportToCSV converts report rows to CSV format.
func ReportToCSV(rows []ReportRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Line", "Source", "VideoURL", "ID", "ImageURL", "MindURL", "Stage", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.Line),
			row.Source,
			row.VideoURL,
			row.ID,
			row.ImageURL,
			row.DescriptorURL,
			row.Stage,
			row.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteReport writes rows to path as "csv" or "json" (the default).
func WriteReport(rows []ReportRow, format, path string) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case "csv":
		data, err = ReportToCSV(rows)
	case "json", "":
		if rows == nil {
			rows = []ReportRow{}
		}
		data, err = json.MarshalIndent(rows, "", "  ")
	default:
		return fmt.Errorf("%w: unsupported report format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
