package app

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"horse.fit/parley/internal/config"
	"horse.fit/parley/internal/translation"
)

func TestRunRejectsUnknownCommand(t *testing.T) {
	t.Parallel()

	if code := Run([]string{"bogus"}); code != 2 {
		t.Fatalf("Run(bogus) = %d, want 2", code)
	}
	if code := Run(nil); code != 2 {
		t.Fatalf("Run(nil) = %d, want 2", code)
	}
	if code := Run([]string{"cache", "shrink"}); code != 2 {
		t.Fatalf("Run(cache shrink) = %d, want 2", code)
	}
}

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()

	if got, err := parseOutputFormat(" JSON ", outputFormatTable); err != nil || got != outputFormatJSON {
		t.Fatalf("parseOutputFormat(JSON) = %q, %v", got, err)
	}
	if got, err := parseOutputFormat("", outputFormatTable); err != nil || got != outputFormatTable {
		t.Fatalf("parseOutputFormat(\"\") = %q, %v", got, err)
	}
	if _, err := parseOutputFormat("yaml", outputFormatTable); err == nil {
		t.Fatalf("expected yaml to be rejected")
	}
}

func TestTruncateForTable(t *testing.T) {
	t.Parallel()

	if got := truncateForTable("नमस्ते दुनिया", 5); got != "नम..." {
		t.Fatalf("truncateForTable() = %q", got)
	}
	if got := truncateForTable("  short  ", 10); got != "short" {
		t.Fatalf("truncateForTable() = %q", got)
	}
}

func TestReadLinesSkipsBlankLines(t *testing.T) {
	t.Parallel()

	lines, err := readLines(strings.NewReader("hello\n\n  world  \n"))
	if err != nil {
		t.Fatalf("readLines() error = %v", err)
	}
	if len(lines) != 2 || lines[0] != "hello" || lines[1] != "world" {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestFilterLanguageOptions(t *testing.T) {
	t.Parallel()

	options := []translation.LanguageOption{
		{Code: "hi", Group: "indian"},
		{Code: "ja", Group: "east_asian"},
		{Code: "ta", Group: "indian"},
	}
	if got := filterLanguageOptions(options, " Indian "); len(got) != 2 || got[1].Code != "ta" {
		t.Fatalf("unexpected filtered options: %+v", got)
	}
	if got := filterLanguageOptions(options, ""); len(got) != 3 {
		t.Fatalf("expected every option without a group filter, got %d", len(got))
	}
}

func TestSpeechOptionsMapsZeroRetriesToDisabled(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		RecognitionBackend:  " Google ",
		GoogleSTTEncoding:   "WEBM_OPUS",
		GoogleSTTSampleRate: 48000,
		SpeechIdleTimeout:   5 * time.Second,
		SynthesisWatchdog:   time.Minute,
	}
	opts := speechOptions(cfg)
	if opts.MaxRetries >= 0 {
		t.Fatalf("expected zero retries to disable retrying, got %d", opts.MaxRetries)
	}
	if opts.RecognitionBackend != config.RecognitionBackendGoogle || opts.GoogleSTT.SampleRate != 48000 {
		t.Fatalf("unexpected speech options: %+v", opts)
	}

	cfg.SpeechMaxRetries = 2
	if got := speechOptions(cfg).MaxRetries; got != 2 {
		t.Fatalf("MaxRetries = %d, want 2", got)
	}
}

func TestSummarizeEntries(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := map[string]translation.StoredEntry{
		"en_es_hello": {SourceLang: "en", TargetLang: "es", CreatedAt: now.Add(-time.Hour)},
		"en_es_bye":   {SourceLang: "en", TargetLang: "es", CreatedAt: now.Add(-2 * time.Hour)},
		"en_hi_hello": {SourceLang: "en", TargetLang: "hi", CreatedAt: now.Add(-time.Minute)},
		"en_fr_old":   {SourceLang: "en", TargetLang: "fr", CreatedAt: now.Add(-48 * time.Hour)},
	}

	stats := &cacheStats{}
	summarizeEntries(stats, entries, now, 24*time.Hour)
	if stats.Live != 3 || stats.Expired != 1 {
		t.Fatalf("unexpected totals: live=%d expired=%d", stats.Live, stats.Expired)
	}
	if len(stats.Pairs) != 2 || stats.Pairs[0].TargetLang != "es" || stats.Pairs[0].Entries != 2 {
		t.Fatalf("unexpected pairs: %+v", stats.Pairs)
	}
}

func TestOpenServicesWithFileCache(t *testing.T) {
	cacheFile := filepath.Join(t.TempDir(), "cache.json")
	t.Setenv("CACHE_BACKEND", "file")
	t.Setenv("CACHE_FILE", cacheFile)
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("LOG_LEVEL", "error")

	ctx := context.Background()
	svc, err := openServices(ctx, nil, io.Discard)
	if err != nil {
		t.Fatalf("openServices() error = %v", err)
	}
	defer svc.Close()

	if svc.files == nil || svc.files.Path() != cacheFile {
		t.Fatalf("expected a file store at %s", cacheFile)
	}

	svc.cache.Put(ctx, "en", "es", "hello", "hola")
	stats, err := collectCacheStats(ctx, svc)
	if err != nil {
		t.Fatalf("collectCacheStats() error = %v", err)
	}
	if stats.Backend != config.CacheBackendFile || stats.Live != 1 || len(stats.Pairs) != 1 {
		t.Fatalf("unexpected cache stats: %+v", stats)
	}
}
