package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestFileExtension(t *testing.T) {
	tc := []struct {
		name     string
		filename string
		fallback string
		want     string
	}{
		{name: "simple", filename: "poster.png", fallback: "jpg", want: "png"},
		{name: "uppercase", filename: "POSTER.JPEG", fallback: "jpg", want: "jpeg"},
		{name: "multiple dots", filename: "my.poster.webp", fallback: "jpg", want: "webp"},
		{name: "no extension", filename: "poster", fallback: "jpg", want: "jpg"},
		{name: "trailing dot", filename: "poster.", fallback: "jpg", want: "jpg"},
		{name: "empty", filename: "", fallback: "jpg", want: "jpg"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileExtension(tt.filename, tt.fallback); got != tt.want {
				t.Errorf("FileExtension(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	t.Run("WithLogger adds fields", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := WithLogger(NewLogger(buf), "stage", "compiling")
		logger.Info("hello")

		if !strings.Contains(buf.String(), "stage=compiling") {
			t.Errorf("expected log output to contain stage field, got %q", buf.String())
		}
	})

	t.Run("ParseLogLevel", func(t *testing.T) {
		if got := ParseLogLevel("debug"); got != log.DebugLevel {
			t.Errorf("expected debug level, got %v", got)
		}
		if got := ParseLogLevel("nonsense"); got != log.InfoLevel {
			t.Errorf("expected fallback to info, got %v", got)
		}
		if got := ParseLogLevel(""); got != log.InfoLevel {
			t.Errorf("expected info for empty, got %v", got)
		}
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty ids, got %q and %q", a, b)
	}
}
