package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWithWriterRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	if _, err := NewWithWriter("production", "loud", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}

func TestNewWithWriterTagsService(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewWithWriter("production", "info", &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info().Msg("hello")
	logger.Debug().Msg("hidden")

	out := buf.String()
	if !strings.Contains(out, `"service":"parley"`) {
		t.Fatalf("expected service field, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug message should be filtered at info level: %q", out)
	}
}
