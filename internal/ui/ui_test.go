package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mindx/internal/models"
	"github.com/desertthunder/mindx/internal/tasks"
)

func TestTargetsTable(t *testing.T) {
	t.Run("Rows", func(t *testing.T) {
		out := TargetsTable([]*models.TargetRecord{
			{ID: "t-1", UserID: "u-1", VideoURL: "https://v/1.mp4", DescriptorURL: "https://cdn/minds/t-1.mind", CreatedAt: time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC)},
			{ID: "t-2", VideoURL: "https://v/2.mp4", DescriptorURL: "https://cdn/minds/t-2.mind"},
		})

		for _, want := range []string{"ID", "DESCRIPTOR", "t-1", "u-1", "2025-01-02 03:04", "https://cdn/minds/t-2.mind"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
		if strings.Index(out, "t-1") > strings.Index(out, "t-2") {
			t.Error("expected rows in input order")
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if out := TargetsTable(nil); !strings.Contains(out, "No targets.") {
			t.Errorf("unexpected output %q", out)
		}
	})
}

func TestProgress(t *testing.T) {
	tc := []struct {
		name   string
		update tasks.ProgressUpdate
	}{
		{name: "start", update: tasks.ProgressUpdate{Step: 0, Total: 2, Message: "Ingesting 2 targets..."}},
		{name: "done", update: tasks.ProgressUpdate{Stage: tasks.StageDone, Step: 1, Total: 2, Message: "[1/2] ✓ a.png"}},
		{name: "failed", update: tasks.ProgressUpdate{Stage: tasks.StageCompiling, Step: 2, Total: 2, Message: "[2/2] ✗ b.png: boom"}},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			out := Progress(tt.update)
			if !strings.Contains(out, tt.update.Message) || !strings.HasSuffix(out, "\n") {
				t.Errorf("unexpected output %q", out)
			}
		})
	}
}

func TestBulkSummary(t *testing.T) {
	t.Run("Lists Failures", func(t *testing.T) {
		out := BulkSummary(&tasks.BulkIngestResult{
			Total:      2,
			Succeeded:  1,
			Failed:     1,
			ReportPath: "report.csv",
			Items: []tasks.BulkIngestItem{
				{Line: 2, Source: "a.png", Result: &tasks.IngestResult{ID: "t-1"}},
				{Line: 3, Source: "b.png", Error: &tasks.StageError{Stage: tasks.StageCompiling, Err: errors.New("bad image")}},
			},
		})

		for _, want := range []string{"Succeeded: 1", "Failed: 1", "report.csv", "b.png", "compiling", "bad image"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
		if strings.Contains(out, "a.png") {
			t.Error("successful items should not be listed")
		}
	})

	t.Run("All Succeeded", func(t *testing.T) {
		out := BulkSummary(&tasks.BulkIngestResult{Total: 1, Succeeded: 1})
		if strings.Contains(out, "Failed") || strings.Contains(out, "LINE") {
			t.Errorf("unexpected failure section:\n%s", out)
		}
	})
}

func TestDeleteResult(t *testing.T) {
	t.Run("Deleted", func(t *testing.T) {
		out := DeleteResult("u-1", &tasks.DeleteResult{
			Status:  tasks.StatusDeleted,
			Deleted: map[string]int{"targets": 2, "admins": 0, "profiles": 1},
		})

		for _, want := range []string{"Delete u-1", "targets", "profiles", "Status: deleted"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
		if strings.Index(out, "admins") > strings.Index(out, "targets") {
			t.Error("expected tables sorted by name")
		}
	})

	t.Run("Domain Only", func(t *testing.T) {
		out := DeleteResult("u-1", &tasks.DeleteResult{
			Status:  tasks.StatusDomainOnly,
			Warning: tasks.WarningAuthDeleteFailed,
			Detail:  "auth api down",
		})

		if !strings.Contains(out, "Status: domain_only") || !strings.Contains(out, "Auth delete failed: auth api down") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})
}

func TestIngestResult(t *testing.T) {
	out := IngestResult(&tasks.IngestResult{ID: "t-1", ImageURL: "https://cdn/targets/t-1.png", DescriptorURL: "https://cdn/minds/t-1.mind"})
	if !strings.Contains(out, "Target t-1 ingested") || !strings.Contains(out, "minds/t-1.mind") {
		t.Errorf("unexpected output %q", out)
	}
}
