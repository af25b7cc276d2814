package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/semergehq/semerge/pkg/merge"
)

func runMerge(cmd *cobra.Command, args []string, markerSize int, renameDetection bool, importSort string, maxBytes int) error {
	basePath, oursPath, theirsPath, language := args[0], args[1], args[2], args[3]

	base, err := os.ReadFile(basePath)
	if err != nil {
		return fmt.Errorf("reading base: %w", err)
	}
	ours, err := os.ReadFile(oursPath)
	if err != nil {
		return fmt.Errorf("reading ours: %w", err)
	}
	theirs, err := os.ReadFile(theirsPath)
	if err != nil {
		return fmt.Errorf("reading theirs: %w", err)
	}

	sortMode, err := parseImportSortMode(importSort)
	if err != nil {
		return err
	}

	opts := merge.Options{
		MarkerSize:      markerSize,
		RenameDetection: &renameDetection,
		ImportSort:      sortMode,
		MaxBytes:        maxBytes,
	}

	result, err := merge.Merge(base, ours, theirs, language, opts)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}

	if err := os.WriteFile(oursPath, result.Text, 0o644); err != nil {
		return fmt.Errorf("writing merged output: %w", err)
	}

	if len(result.Conflicts) > 0 {
		for _, c := range result.Conflicts {
			fmt.Fprintf(cmd.ErrOrStderr(), "conflict: %s (%s) — %s\n", c.EntityPath, c.Kind, c.Reason)
		}
		os.Exit(1)
	}

	return nil
}

func parseImportSortMode(s string) (merge.ImportSortMode, error) {
	switch s {
	case "alphabetical", "":
		return merge.ImportSortAlphabetical, nil
	case "grouped":
		return merge.ImportSortGrouped, nil
	case "preserve":
		return merge.ImportSortPreserve, nil
	default:
		return merge.ImportSortAlphabetical, fmt.Errorf("unknown --import-sort mode %q", s)
	}
}
