package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/mindx/internal/models"
	"github.com/desertthunder/mindx/internal/tasks"
)

const rule = "═══════════════════════════════════════"

// Header renders title between two rules.
func Header(title string) string {
	return rule + "\n" + styles.title.Render(title) + "\n" + rule + "\n"
}

// Success renders a check-marked line.
func Success(format string, args ...any) string {
	return styles.ok.Render("✓ "+fmt.Sprintf(format, args...)) + "\n"
}

// Warning renders a warning line.
func Warning(format string, args ...any) string {
	return styles.warn.Render("⚠ "+fmt.Sprintf(format, args...)) + "\n"
}

// Hint renders a muted help line.
func Hint(format string, args ...any) string {
	return styles.help.Render(fmt.Sprintf(format, args...)) + "\n"
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.help).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.title.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// TargetsTable renders catalog rows newest first as they were given.
func TargetsTable(targets []*models.TargetRecord) string {
	if len(targets) == 0 {
		return Hint("No targets.")
	}

	t := newTable("ID", "OWNER", "CREATED", "VIDEO", "DESCRIPTOR")
	for _, target := range targets {
		owner := target.UserID
		if owner == "" {
			owner = "-"
		}
		t.Row(
			target.ID,
			owner,
			target.CreatedAt.Format("2006-01-02 15:04"),
			target.VideoURL,
			target.DescriptorURL,
		)
	}
	return t.String() + "\n"
}

// Progress renders one bulk ingestion update.
func Progress(update tasks.ProgressUpdate) string {
	switch {
	case update.Step == 0:
		return styles.title.Render(update.Message) + "\n"
	case update.Stage == tasks.StageDone:
		return styles.ok.Render(update.Message) + "\n"
	case strings.Contains(update.Message, "✗"):
		return styles.err.Render(update.Message) + "\n"
	default:
		return styles.help.Render(update.Message) + "\n"
	}
}

// BulkSummary renders counts followed by a table of failed entries.
func BulkSummary(result *tasks.BulkIngestResult) string {
	var b strings.Builder
	b.WriteString("\n" + Header("Ingestion Complete"))
	fmt.Fprintf(&b, "Total: %d\n", result.Total)
	b.WriteString(styles.ok.Render(fmt.Sprintf("Succeeded: %d", result.Succeeded)) + "\n")
	if result.Failed > 0 {
		b.WriteString(styles.err.Render(fmt.Sprintf("Failed: %d", result.Failed)) + "\n")
	}
	if result.ReportPath != "" {
		b.WriteString(Hint("Report written to %s", result.ReportPath))
	}

	if result.Failed == 0 {
		return b.String()
	}

	t := newTable("LINE", "SOURCE", "STAGE", "ERROR")
	for _, item := range result.Items {
		if item.Error == nil {
			continue
		}
		stage := ""
		if se, ok := tasks.AsStageError(item.Error); ok {
			stage = se.Stage.String()
		}
		t.Row(fmt.Sprint(item.Line), item.Source, stage, item.Error.Error())
	}
	b.WriteString("\n" + t.String() + "\n")
	return b.String()
}

// IngestResult renders the URLs of a single ingestion.
func IngestResult(result *tasks.IngestResult) string {
	var b strings.Builder
	b.WriteString(Success("Target %s ingested", result.ID))
	fmt.Fprintf(&b, "  Image:      %s\n", result.ImageURL)
	fmt.Fprintf(&b, "  Descriptor: %s\n", result.DescriptorURL)
	return b.String()
}

// DeleteResult renders per-table counts, the final status and any warning.
func DeleteResult(userID string, result *tasks.DeleteResult) string {
	var b strings.Builder
	b.WriteString(Header("Delete " + userID))

	tables := make([]string, 0, len(result.Deleted))
	for name := range result.Deleted {
		tables = append(tables, name)
	}
	sort.Strings(tables)

	t := newTable("TABLE", "ROWS")
	for _, name := range tables {
		t.Row(name, fmt.Sprint(result.Deleted[name]))
	}
	b.WriteString(t.String() + "\n")

	if result.Status == tasks.StatusDeleted {
		b.WriteString(Success("Status: %s", result.Status))
	} else {
		b.WriteString(styles.err.Render("✗ Status: "+result.Status) + "\n")
	}
	if result.Warning != "" {
		b.WriteString(Warning("%s: %s", result.Warning, result.Detail))
	}
	return b.String()
}
