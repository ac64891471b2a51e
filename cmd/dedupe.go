package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/saftools/dedupe"
)

var (
	dedupeChecksum      string
	dedupeBundle        string
	dedupeExtensions    []string
	dedupePreserveNames bool
	dedupePrefix        string
	dedupeStart         int
	dedupeDropMissing   bool
	dedupeDryRun        bool
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe <source-dir>",
	Short: "Remove duplicate documents and renumber the rest",
	Long: `Collapse files with identical content inside each item and rename the
survivors to document-1, document-2, ... in manifest order. The contents
manifest is rewritten to match; lines outside the selected bundle are left
alone. If anything fails part way through an item, its changes are undone.

Examples:
  saftools dedupe ./export --dry-run
  saftools dedupe ./export --preserve-names
  saftools dedupe ./export --ext pdf --start 10 --prefix file-`,
	Args: cobra.ExactArgs(1),
	RunE: runDedupe,
}

func init() {
	dedupeCmd.Flags().StringVar(&dedupeChecksum, "checksum", "md5", "Checksum algorithm (md5, sha1, sha256, blake3)")
	dedupeCmd.Flags().StringVarP(&dedupeBundle, "bundle", "b", "ORIGINAL", "Bundle whose files are deduplicated")
	dedupeCmd.Flags().StringSliceVar(&dedupeExtensions, "ext", nil, "Only deduplicate files with these extensions (default: all)")
	dedupeCmd.Flags().BoolVar(&dedupePreserveNames, "preserve-names", false, "Keep each document's original name instead of renumbering")
	dedupeCmd.Flags().StringVar(&dedupePrefix, "prefix", dedupe.DefaultPrefix, "Base name of renumbered documents")
	dedupeCmd.Flags().IntVar(&dedupeStart, "start", 1, "First document number")
	dedupeCmd.Flags().BoolVar(&dedupeDropMissing, "drop-missing", false, "Remove manifest lines whose file is missing")
	dedupeCmd.Flags().BoolVarP(&dedupeDryRun, "dry-run", "n", false, "Show the changes without making them")
}

func runDedupe(cmd *cobra.Command, args []string) error {
	if dedupeStart < 1 {
		return fmt.Errorf("--start must be at least 1, got %d", dedupeStart)
	}
	algo, err := algorithm(cmd, dedupeChecksum)
	if err != nil {
		return err
	}

	summary, err := dedupe.Run(cmd.Context(), dedupe.Options{
		SourceDir:     args[0],
		Algorithm:     algo,
		Bundle:        stringFlag(cmd, "bundle", dedupeBundle, cfg.Bundle),
		Extensions:    dedupeExtensions,
		PreserveNames: dedupePreserveNames,
		Prefix:        dedupePrefix,
		Start:         dedupeStart,
		DropMissing:   dedupeDropMissing,
		DryRun:        dedupeDryRun,
		Progress:      printer.Progress,
	})
	return finish(summary, err)
}
