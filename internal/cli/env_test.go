package cli

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvLoaderPrefersOverrideFile(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "override.env")
	if err := os.WriteFile(override, []byte("PARLEY_TEST_VALUE=override\n"), 0o600); err != nil {
		t.Fatalf("write override: %v", err)
	}

	t.Setenv(OverrideEnvVar, override)
	t.Setenv("PARLEY_TEST_VALUE", "")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, filepath.Join(dir, "missing.env"), "")
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse: %v", err)
	}

	loaded, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded != override {
		t.Fatalf("Load() = %q, want %q", loaded, override)
	}
	if got := os.Getenv("PARLEY_TEST_VALUE"); got != "override" {
		t.Fatalf("PARLEY_TEST_VALUE = %q, want override", got)
	}
}

func TestEnvLoaderReportsMissingFile(t *testing.T) {
	t.Setenv(OverrideEnvVar, "")

	dir := t.TempDir()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, filepath.Join(dir, "nope.env"), "")
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse: %v", err)
	}

	if _, err := loader.Load(); err == nil {
		t.Fatalf("expected error for missing env file")
	}
}
