package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"horse.fit/parley/internal/language"
	"horse.fit/parley/internal/translation"
)

func runLanguages(args []string) int {
	fs := flag.NewFlagSet("languages", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	format := fs.String("format", outputFormatTable, "Output format: table or json")
	group := fs.String("group", "", "Only list one regional group (indian, east_asian, international)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "languages does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	options := filterLanguageOptions(translation.LanguageOptions(language.Builtin()), *group)

	if outputFormat == outputFormatJSON {
		if err := printJSON(options); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(options))
	for _, option := range options {
		rtl := ""
		if option.RTL {
			rtl = "yes"
		}
		rows = append(rows, []string{option.Code, option.Label, option.Native, option.Group, rtl})
	}
	if err := writeTable([]string{"CODE", "NAME", "NATIVE", "GROUP", "RTL"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write table: %v\n", err)
		return 1
	}
	return 0
}

func filterLanguageOptions(options []translation.LanguageOption, group string) []translation.LanguageOption {
	group = strings.ToLower(strings.TrimSpace(group))
	if group == "" {
		return options
	}
	filtered := make([]translation.LanguageOption, 0, len(options))
	for _, option := range options {
		if option.Group == group {
			filtered = append(filtered, option)
		}
	}
	return filtered
}
