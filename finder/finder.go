// Package finder scans SAF items for listed PDFs that are missing, are not
// really PDFs, or duplicate another PDF in the same item.
package finder

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/saftools/checksum"
	"github.com/lehigh-university-libraries/saftools/detect"
	"github.com/lehigh-university-libraries/saftools/problem"
	"github.com/lehigh-university-libraries/saftools/report"
	"github.com/lehigh-university-libraries/saftools/saf"
)

// Options configures a scan.
type Options struct {
	// SourceDir holds one SAF item per subdirectory
	SourceDir string

	// WriteDir receives the <item>.<kind> problem files
	WriteDir string

	// Algorithm computes content checksums
	Algorithm checksum.Algorithm

	// Extensions selects which listed files are checked (default: pdf)
	Extensions []string

	// ExpectedMIME is the type checked files must detect as (default: application/pdf)
	ExpectedMIME string

	// Legacy writes problem records without checksums
	Legacy bool

	Progress report.ProgressFunc
}

// Outcome is the verdict for one listed file.
type Outcome struct {
	Filename string
	Kind     problem.Kind // empty when the file is fine
	MIME     string
	Checksum string
}

// Run scans every item and writes problem files.
func Run(ctx context.Context, opts Options) (*report.Summary, error) {
	if opts.Algorithm == nil {
		algo, err := checksum.Get(checksum.DefaultAlgorithm)
		if err != nil {
			return nil, err
		}
		opts.Algorithm = algo
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{"pdf"}
	}
	if opts.ExpectedMIME == "" {
		opts.ExpectedMIME = detect.PDF
	}

	items, err := saf.ListItems(opts.SourceDir)
	if err != nil {
		return nil, err
	}

	w, err := problem.NewWriter(opts.WriteDir, opts.Legacy)
	if err != nil {
		return nil, err
	}

	summary := report.New("find", opts.SourceDir)
	for _, name := range []string{"items", "skipped", "files", string(problem.Missing), string(problem.Invalid), string(problem.Duplicates)} {
		summary.Add(name, 0)
	}
	filter := saf.NewExtensionFilter(opts.Extensions...)

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			_ = w.Close()
			return summary, err
		}

		if err := scanItem(item, filter, opts, w, summary); err != nil {
			slog.Error("item scan failed", "item", item.Name, "error", err)
			summary.Fail(item.Name, err)
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(items), item.Name)
		}
	}

	if err := w.Close(); err != nil {
		return summary, fmt.Errorf("closing problem files: %w", err)
	}
	slog.Info("scan complete",
		"items", summary.Count("items"),
		"missing", w.Count(problem.Missing),
		"invalid", w.Count(problem.Invalid),
		"duplicates", w.Count(problem.Duplicates),
	)
	return summary, summary.Finish()
}

func scanItem(item saf.Item, filter saf.ExtensionFilter, opts Options, w *problem.Writer, summary *report.Summary) (err error) {
	defer func() {
		if ferr := w.FinishItem(item.Name); ferr != nil && err == nil {
			err = ferr
		}
	}()

	if !item.HasContents() {
		slog.Warn("no contents file", "item", item.Name)
		summary.Inc("skipped")
		return nil
	}

	contents, err := saf.ReadContentsFile(item.ContentsPath())
	if err != nil {
		return err
	}
	summary.Inc("items")

	outcomes, checkErr := CheckItem(item, contents, filter, opts.Algorithm, opts.ExpectedMIME)
	for _, o := range outcomes {
		summary.Inc("files")
		if o.Kind == "" {
			continue
		}
		summary.Inc(string(o.Kind))
		if werr := w.Add(item.Name, o.Kind, problem.Record{Filename: o.Filename, Checksum: o.Checksum}); werr != nil {
			return werr
		}
		slog.Warn("problem found", "item", item.Name, "file", o.Filename, "kind", o.Kind, "mime", o.MIME)
	}
	return checkErr
}

// CheckItem classifies every listed file that passes filter. Files are
// checked in manifest order; of several files with the same checksum the
// first one listed is kept and the rest are duplicates. A file listed twice
// is only checked once.
func CheckItem(item saf.Item, contents *saf.Contents, filter saf.ExtensionFilter, algo checksum.Algorithm, expectedMIME string) ([]Outcome, error) {
	seen := make(map[string]string)
	checked := make(map[string]bool)
	var outcomes []Outcome

	for _, name := range contents.Filenames() {
		if !filter.Match(name) || checked[name] {
			continue
		}
		checked[name] = true

		path := item.File(name)
		mime, err := detect.MIMEType(path)
		if os.IsNotExist(err) {
			outcomes = append(outcomes, Outcome{Filename: name, Kind: problem.Missing})
			continue
		}
		if err != nil {
			return outcomes, fmt.Errorf("detecting type of %s: %w", name, err)
		}

		sum, err := checksum.File(path, algo)
		if err != nil {
			return outcomes, err
		}

		o := Outcome{Filename: name, MIME: mime, Checksum: sum}
		switch {
		case mime != expectedMIME:
			o.Kind = problem.Invalid
		case seen[sum] != "":
			o.Kind = problem.Duplicates
			slog.Debug("duplicate", "item", item.Name, "file", name, "original", seen[sum])
		default:
			seen[sum] = name
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}
