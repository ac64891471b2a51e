// Package batcher divides the items of a source directory into numbered
// batch directories of a fixed size.
package batcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/saftools/report"
	"github.com/lehigh-university-libraries/saftools/saf"
)

const (
	DefaultPrefix = "batch_"
	DefaultPad    = 3
)

// Options configures a batching run.
type Options struct {
	SourceDir string

	// OutputDir receives the batch directories (default: SourceDir)
	OutputDir string

	Size   int
	Prefix string
	Pad    int

	DryRun   bool
	Progress report.ProgressFunc
}

// Batch is one planned batch directory.
type Batch struct {
	Number int
	Path   string
	Items  []saf.Item
}

// Run moves every item into its batch.
func Run(ctx context.Context, opts Options) (*report.Summary, error) {
	batches, err := Plan(opts)
	if err != nil {
		return nil, err
	}

	summary := report.New("batch", opts.SourceDir)
	summary.DryRun = opts.DryRun
	for _, name := range []string{"items", "batches", "moved"} {
		summary.Add(name, 0)
	}

	total := 0
	for _, b := range batches {
		total += len(b.Items)
	}

	done := 0
	for _, b := range batches {
		summary.Inc("batches")
		if opts.DryRun {
			slog.Info("would create batch", "batch", b.Path, "items", len(b.Items))
		} else if err := os.MkdirAll(b.Path, 0755); err != nil {
			return summary, fmt.Errorf("creating batch directory: %w", err)
		}

		for _, item := range b.Items {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			summary.Inc("items")
			if err := move(item, b, opts.DryRun); err != nil {
				slog.Error("move failed", "item", item.Name, "batch", b.Path, "error", err)
				summary.Fail(item.Name, err)
			} else {
				summary.Inc("moved")
			}

			done++
			if opts.Progress != nil {
				opts.Progress(done, total, item.Name)
			}
		}
	}

	return summary, summary.Finish()
}

func move(item saf.Item, b Batch, dryRun bool) error {
	target := filepath.Join(b.Path, item.Name)
	if _, err := os.Lstat(target); err == nil {
		return fmt.Errorf("%s already exists", target)
	}
	if dryRun {
		slog.Info("would move", "item", item.Name, "target", target)
		return nil
	}
	if err := os.Rename(item.Path, target); err != nil {
		return err
	}
	slog.Debug("moved", "item", item.Name, "target", target)
	return nil
}

// Plan assigns the items of the source directory to batches. Existing batch
// directories are not items, and numbering continues after the highest one
// so an interrupted run can be resumed.
func Plan(opts Options) ([]Batch, error) {
	if opts.Size < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", opts.Size)
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Pad <= 0 {
		opts.Pad = DefaultPad
	}
	if opts.OutputDir == "" {
		opts.OutputDir = opts.SourceDir
	}

	items, err := saf.ListItems(opts.SourceDir)
	if err != nil {
		return nil, err
	}

	pattern := regexp.MustCompile("^" + regexp.QuoteMeta(opts.Prefix) + `(\d+)$`)
	outAbs, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, err
	}

	var candidates []saf.Item
	for _, item := range items {
		if pattern.MatchString(item.Name) {
			continue
		}
		if abs, err := filepath.Abs(item.Path); err == nil &&
			(abs == outAbs || strings.HasPrefix(outAbs, abs+string(filepath.Separator))) {
			slog.Debug("output directory is inside item, not batching it", "item", item.Name)
			continue
		}
		candidates = append(candidates, item)
	}

	next, err := nextNumber(opts.OutputDir, pattern)
	if err != nil {
		return nil, err
	}

	var batches []Batch
	for start := 0; start < len(candidates); start += opts.Size {
		end := min(start+opts.Size, len(candidates))
		batches = append(batches, Batch{
			Number: next,
			Path:   filepath.Join(opts.OutputDir, Name(opts.Prefix, next, opts.Pad)),
			Items:  candidates[start:end],
		})
		next++
	}
	return batches, nil
}

// Name formats a batch directory name.
func Name(prefix string, n, pad int) string {
	return fmt.Sprintf("%s%0*d", prefix, pad, n)
}

// nextNumber returns one past the highest batch number in dir, or 1.
func nextNumber(dir string, pattern *regexp.Regexp) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading output directory: %w", err)
	}

	highest := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}
