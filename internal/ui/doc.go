// Package ui renders CLI output with lipgloss: a shared [Palette], target tables,
// bulk ingestion progress and summaries, and deletion results.
//
// Renderers return strings and never write; the cmd runner owns the output stream.
// Styles degrade to plain text when the output is not a terminal.
package ui
