package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/parley/internal/cli"
	"horse.fit/parley/internal/translation"
)

func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	from := fs.String("from", "auto", "Source language code, or auto to detect it")
	to := fs.String("to", "", "Target language code (for example: es, hi, zh-tw)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	target := strings.TrimSpace(*to)
	if target == "" {
		fmt.Fprintln(os.Stderr, "--to is required")
		return 2
	}
	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	texts := fs.Args()
	if len(texts) == 0 || (len(texts) == 1 && texts[0] == "-") {
		texts, err = readLines(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read stdin: %v\n", err)
			return 1
		}
	}
	if len(texts) == 0 {
		fmt.Fprintln(os.Stderr, "translate requires text arguments or lines on stdin")
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

	results := make([]translation.Result, 0, len(texts))
	for _, text := range texts {
		results = append(results, svc.service.TranslateDetailed(ctx, text, *from, target))
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(results))
	for _, result := range results {
		rows = append(rows, []string{
			result.SourceLang,
			result.TargetLang,
			string(result.Outcome),
			result.Provider,
			truncateForTable(result.Text, 80),
		})
	}
	if err := writeTable([]string{"SOURCE", "TARGET", "OUTCOME", "PROVIDER", "TEXT"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write table: %v\n", err)
		return 1
	}
	return 0
}

func runDetect(args []string) int {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		fmt.Fprintln(os.Stderr, "detect requires text")
		return 2
	}

	// Detection is local, so no providers or cache are configured here.
	service := translation.NewService(translation.Options{Logger: zerolog.Nop()})
	detection := service.DetectLanguage(text)
	name := service.SupportedLanguages()[detection.Code]

	if outputFormat == outputFormatJSON {
		if err := printJSON(map[string]any{
			"code":       detection.Code,
			"name":       name,
			"confidence": detection.Confidence,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := [][]string{{detection.Code, name, fmt.Sprintf("%.2f", detection.Confidence)}}
	if err := writeTable([]string{"CODE", "NAME", "CONFIDENCE"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write table: %v\n", err)
		return 1
	}
	return 0
}

func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	lines := make([]string, 0, 8)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
