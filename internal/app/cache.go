package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"horse.fit/parley/internal/cli"
	"horse.fit/parley/internal/db"
	"horse.fit/parley/internal/globaltime"
	"horse.fit/parley/internal/translation"
)

type cacheStats struct {
	Backend string                         `json:"backend"`
	TTL     string                         `json:"ttl"`
	Live    int64                          `json:"live"`
	Expired int64                          `json:"expired"`
	Pairs   []db.TranslationCachePairCount `json:"pairs"`
}

func runCache(args []string) int {
	if len(args) == 0 {
		printCacheUsage()
		return 2
	}

	action := strings.ToLower(strings.TrimSpace(args[0]))
	switch action {
	case "help", "-h", "--help":
		printCacheUsage()
		return 0
	case "stats", "prune", "clear":
	default:
		fmt.Fprintf(os.Stderr, "unknown cache action: %s\n\n", args[0])
		printCacheUsage()
		return 2
	}

	fs := flag.NewFlagSet("cache "+action, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "cache %s does not accept positional arguments\n", action)
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc, err := openServices(ctx, envLoader, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer svc.Close()

	switch action {
	case "prune":
		removed := svc.cache.Prune(ctx)
		fmt.Printf("Pruned %d expired translations\n", removed)
		return 0
	case "clear":
		if err := svc.cache.Clear(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to clear cache: %v\n", err)
			return 1
		}
		fmt.Println("Translation cache cleared")
		return 0
	}

	stats, err := collectCacheStats(ctx, svc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query cache stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Printf("Backend: %s  TTL: %s  Live: %d  Expired: %d\n\n", stats.Backend, stats.TTL, stats.Live, stats.Expired)
	rows := make([][]string, 0, len(stats.Pairs))
	for _, pair := range stats.Pairs {
		rows = append(rows, []string{pair.SourceLang, pair.TargetLang, strconv.FormatInt(pair.Entries, 10)})
	}
	if err := writeTable([]string{"SOURCE", "TARGET", "ENTRIES"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write table: %v\n", err)
		return 1
	}
	return 0
}

func collectCacheStats(ctx context.Context, svc *services) (*cacheStats, error) {
	now := globaltime.UTC()
	stats := &cacheStats{
		Backend: svc.cfg.NormalizedCacheBackend(),
		TTL:     svc.cache.TTL().String(),
	}

	if svc.pool != nil {
		row, err := svc.pool.QueryTranslationCacheStats(ctx, now)
		if err != nil {
			return nil, err
		}
		stats.Live = row.Live
		stats.Expired = row.Expired
		stats.Pairs = row.Pairs
		return stats, nil
	}

	entries, err := svc.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	summarizeEntries(stats, entries, now, svc.cache.TTL())
	return stats, nil
}

// summarizeEntries counts stored entries the way the postgres stats query does.
func summarizeEntries(stats *cacheStats, entries map[string]translation.StoredEntry, now time.Time, ttl time.Duration) {
	type pairKey struct{ source, target string }
	counts := map[pairKey]int64{}

	for _, entry := range entries {
		if !now.Before(entry.CreatedAt.Add(ttl)) {
			stats.Expired++
			continue
		}
		stats.Live++
		counts[pairKey{entry.SourceLang, entry.TargetLang}]++
	}

	stats.Pairs = make([]db.TranslationCachePairCount, 0, len(counts))
	for key, count := range counts {
		stats.Pairs = append(stats.Pairs, db.TranslationCachePairCount{
			SourceLang: key.source,
			TargetLang: key.target,
			Entries:    count,
		})
	}
	sort.Slice(stats.Pairs, func(i, j int) bool {
		a, b := stats.Pairs[i], stats.Pairs[j]
		if a.Entries != b.Entries {
			return a.Entries > b.Entries
		}
		if a.SourceLang != b.SourceLang {
			return a.SourceLang < b.SourceLang
		}
		return a.TargetLang < b.TargetLang
	})
}

func printCacheUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  parley cache stats [--format table|json]")
	fmt.Fprintln(os.Stderr, "  parley cache prune")
	fmt.Fprintln(os.Stderr, "  parley cache clear")
}
