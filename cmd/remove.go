package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/saftools/problem"
	"github.com/lehigh-university-libraries/saftools/remover"
)

// removeFlags holds the flags shared by remove and remove-duplicates.
type removeFlags struct {
	writeDir      string
	checksum      string
	kinds         []string
	verify        bool
	stripContents bool
	dryRun        bool
	consume       bool
}

var (
	removeOpts           removeFlags
	removeDuplicatesOpts removeFlags
)

var removeCmd = &cobra.Command{
	Use:   "remove <source-dir>",
	Short: "Delete the files recorded as invalid or missing",
	Long: `Read the problem files written by "saftools find" and delete the files
they name. Records carrying a checksum are only acted on while the file still
has that checksum. A duplicate is never deleted unless another listed copy
remains.

Examples:
  saftools remove ./export --write-dir ./checksums
  saftools remove ./export --kinds invalid,missing,duplicates --strip-contents
  saftools remove ./export --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRemove(cmd, args[0], &removeOpts)
	},
}

var removeDuplicatesCmd = &cobra.Command{
	Use:   "remove-duplicates <source-dir>",
	Short: "Delete the files recorded as duplicates",
	Long: `Same as "saftools remove --kinds duplicates".

Examples:
  saftools remove-duplicates ./export --strip-contents --consume`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRemove(cmd, args[0], &removeDuplicatesOpts)
	},
}

func addRemoveFlags(cmd *cobra.Command, f *removeFlags, kinds []string) {
	cmd.Flags().StringVarP(&f.writeDir, "write-dir", "w", "checksums", "Directory holding the problem files")
	cmd.Flags().StringVar(&f.checksum, "checksum", "md5", "Checksum algorithm the problem files were written with")
	cmd.Flags().StringSliceVar(&f.kinds, "kinds", kinds, "Problem kinds to act on (invalid, missing, duplicates)")
	cmd.Flags().BoolVar(&f.verify, "verify", true, "Skip files whose checksum no longer matches the record")
	cmd.Flags().BoolVar(&f.stripContents, "strip-contents", false, "Also remove the files from the contents manifest")
	cmd.Flags().BoolVarP(&f.dryRun, "dry-run", "n", false, "Show what would be deleted")
	cmd.Flags().BoolVar(&f.consume, "consume", false, "Delete each problem file once it has been processed")
}

func init() {
	addRemoveFlags(removeCmd, &removeOpts, []string{string(problem.Invalid), string(problem.Missing)})
	addRemoveFlags(removeDuplicatesCmd, &removeDuplicatesOpts, []string{string(problem.Duplicates)})
}

func runRemove(cmd *cobra.Command, source string, f *removeFlags) error {
	kinds, err := problem.ParseKinds(f.kinds)
	if err != nil {
		return err
	}
	algo, err := algorithm(cmd, f.checksum)
	if err != nil {
		return err
	}

	summary, err := remover.Run(cmd.Context(), remover.Options{
		SourceDir:     source,
		WriteDir:      stringFlag(cmd, "write-dir", f.writeDir, cfg.WriteDir),
		Kinds:         kinds,
		Algorithm:     algo,
		Verify:        f.verify,
		StripContents: f.stripContents,
		DryRun:        f.dryRun,
		Consume:       f.consume,
		Progress:      printer.Progress,
	})
	return finish(summary, err)
}
