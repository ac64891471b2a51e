package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/saftools/finder"
)

var (
	findWriteDir   string
	findChecksum   string
	findExtensions []string
	findMIME       string
	findLegacy     bool
)

var findCmd = &cobra.Command{
	Use:   "find <source-dir>",
	Short: "Find missing, invalid and duplicate PDFs",
	Long: `Check every file listed in each item's contents manifest.

A listed file is recorded as missing when it is not on disk, as invalid when
its content does not detect as a PDF (typically a saved HTTP error page), and
as a duplicate when another listed file in the same item has the same
checksum. Records are written to <item>.missing, <item>.invalid and
<item>.duplicates in the write directory.

Examples:
  saftools find ./export
  saftools find ./export --write-dir ./checksums --checksum sha256
  saftools find ./export --legacy`,
	Args: cobra.ExactArgs(1),
	RunE: runFind,
}

func init() {
	findCmd.Flags().StringVarP(&findWriteDir, "write-dir", "w", "checksums", "Directory for problem files")
	findCmd.Flags().StringVar(&findChecksum, "checksum", "md5", "Checksum algorithm (md5, sha1, sha256, blake3)")
	findCmd.Flags().StringSliceVar(&findExtensions, "ext", []string{"pdf"}, "Extensions of listed files to check")
	findCmd.Flags().StringVar(&findMIME, "mime", "application/pdf", "MIME type checked files must have")
	findCmd.Flags().BoolVar(&findLegacy, "legacy", false, "Write bare file names without checksums")
}

func runFind(cmd *cobra.Command, args []string) error {
	algo, err := algorithm(cmd, findChecksum)
	if err != nil {
		return err
	}

	summary, err := finder.Run(cmd.Context(), finder.Options{
		SourceDir:    args[0],
		WriteDir:     stringFlag(cmd, "write-dir", findWriteDir, cfg.WriteDir),
		Algorithm:    algo,
		Extensions:   findExtensions,
		ExpectedMIME: findMIME,
		Legacy:       findLegacy || (!cmd.Flags().Changed("legacy") && cfg.Legacy),
		Progress:     printer.Progress,
	})
	return finish(summary, err)
}
