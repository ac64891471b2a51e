package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/saftools/mapping"
	"github.com/lehigh-university-libraries/saftools/renamer"
)

var (
	renameProfile   string
	renameRowOffset int
	renameValidate  string
	renameDryRun    bool
)

var renameCmd = &cobra.Command{
	Use:   "rename <source-dir> <mapping-csv>",
	Short: "Rename numbered item directories to their Serial ID",
	Long: `Rename each item directory whose name is a number to the Serial ID on the
matching row of the mapping CSV. Row 1 of the CSV is the header, so item 2
maps to the first data row unless --row-offset says otherwise.

Before renaming, the item's dublin_core.xml DOI and/or title is looked up in
the mapping; an item whose metadata points at a different row is skipped.
An existing target gets a .duplicate-<random> suffix.

Examples:
  saftools rename ./export mapping.csv
  saftools rename ./export mapping.csv --validate both --dry-run
  saftools rename ./export export.tsv --profile ojs
  saftools rename ./export mapping.csv --profile ./columns.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: runRename,
}

func init() {
	renameCmd.Flags().StringVarP(&renameProfile, "profile", "p", "", "Mapping profile name or YAML file (default: default)")
	renameCmd.Flags().IntVar(&renameRowOffset, "row-offset", 0, "Added to the directory number to get the mapping row")
	renameCmd.Flags().StringVar(&renameValidate, "validate", "doi", "Metadata check before renaming (none, doi, title, both)")
	renameCmd.Flags().BoolVarP(&renameDryRun, "dry-run", "n", false, "Show the renames without doing them")
}

func runRename(cmd *cobra.Command, args []string) error {
	mode, err := renamer.ParseValidation(renameValidate)
	if err != nil {
		return err
	}

	registry, err := mapping.NewProfileRegistry()
	if err != nil {
		return err
	}
	profile, err := registry.Resolve(stringFlag(cmd, "profile", renameProfile, cfg.Profile))
	if err != nil {
		return err
	}

	m, err := mapping.LoadFile(args[1], profile)
	if err != nil {
		return err
	}
	slog.Info("mapping loaded", "file", args[1], "profile", profile.Name, "rows", m.Len())

	summary, err := renamer.Run(cmd.Context(), renamer.Options{
		SourceDir:  args[0],
		Mapping:    m,
		RowOffset:  renameRowOffset,
		Validation: mode,
		DryRun:     renameDryRun,
		Progress:   printer.Progress,
	})
	return finish(summary, err)
}
