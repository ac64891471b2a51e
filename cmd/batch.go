package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/saftools/batcher"
)

var (
	batchSize   int
	batchOutput string
	batchPrefix string
	batchPad    int
	batchDryRun bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <source-dir>",
	Short: "Divide items into fixed-size batch directories",
	Long: `Move the item directories, in directory order, into batch_001, batch_002, ...
each holding --size items. Existing batch directories are left alone and
numbering continues after the highest one.

Examples:
  saftools batch ./export --size 250
  saftools batch ./export --size 100 --output ./batches --prefix part- --pad 2`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVar(&batchSize, "size", 100, "Items per batch")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "Directory for the batches (default: the source directory)")
	batchCmd.Flags().StringVar(&batchPrefix, "prefix", batcher.DefaultPrefix, "Batch directory name prefix")
	batchCmd.Flags().IntVar(&batchPad, "pad", batcher.DefaultPad, "Digits in the batch number")
	batchCmd.Flags().BoolVarP(&batchDryRun, "dry-run", "n", false, "Show the moves without doing them")
}

func runBatch(cmd *cobra.Command, args []string) error {
	summary, err := batcher.Run(cmd.Context(), batcher.Options{
		SourceDir: args[0],
		OutputDir: batchOutput,
		Size:      batchSize,
		Prefix:    batchPrefix,
		Pad:       batchPad,
		DryRun:    batchDryRun,
		Progress:  printer.Progress,
	})
	return finish(summary, err)
}
