// Package dedupe collapses duplicate documents inside SAF items and renames
// the survivors to a sequential document-N scheme, keeping the contents
// manifest consistent with the files on disk.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/saftools/checksum"
	"github.com/lehigh-university-libraries/saftools/report"
	"github.com/lehigh-university-libraries/saftools/saf"
)

// DefaultPrefix is the base name given to renumbered documents.
const DefaultPrefix = "document-"

// ErrRolledBack wraps failures after which the item was restored.
var ErrRolledBack = errors.New("changes rolled back")

// Options configures a deduplication run.
type Options struct {
	SourceDir string
	Algorithm checksum.Algorithm

	// Bundle selects the manifest lines that take part (default ORIGINAL)
	Bundle string

	// Extensions limits the files that take part; empty means all
	Extensions []string

	// PreserveNames keeps each survivor's original name instead of renumbering
	PreserveNames bool

	// Prefix and Start control the document-N names; a zero Start means 1
	Prefix string
	Start  int

	// DropMissing removes manifest lines whose file does not exist
	DropMissing bool

	DryRun bool

	Progress report.ProgressFunc
}

// document is one participating manifest line.
type document struct {
	entry    int // index into the manifest
	name     string
	sum      string
	size     int64
	survivor bool
	final    string // final name, survivors only
}

// Plan is what will happen to one item.
type Plan struct {
	Item       saf.Item
	Contents   *saf.Contents
	documents  []*document
	duplicates int
	missing    []string
	repeated   int // lines listing a file already listed

	bundle string
	filter saf.ExtensionFilter
}

// Changed reports whether applying the plan alters anything.
func (p *Plan) Changed(dropMissing bool) bool {
	if p.duplicates > 0 || p.repeated > 0 || (dropMissing && len(p.missing) > 0) {
		return true
	}
	for _, d := range p.documents {
		if d.survivor && d.final != d.name {
			return true
		}
	}
	return false
}

// Run deduplicates every item with a contents manifest.
func Run(ctx context.Context, opts Options) (*report.Summary, error) {
	opts, err := withDefaults(opts)
	if err != nil {
		return nil, err
	}
	if opts.Start < 0 {
		return nil, fmt.Errorf("start number must not be negative, got %d", opts.Start)
	}

	items, err := saf.ListItems(opts.SourceDir)
	if err != nil {
		return nil, err
	}

	summary := report.New("deduplicate", opts.SourceDir)
	summary.DryRun = opts.DryRun
	for _, name := range []string{"items", "changed", "unchanged", "skipped", "duplicates", "missing", "rolled back"} {
		summary.Add(name, 0)
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if err := processItem(item, opts, summary); err != nil {
			slog.Error("deduplication failed", "item", item.Name, "error", err)
			summary.Fail(item.Name, err)
			if errors.Is(err, ErrRolledBack) {
				summary.Inc("rolled back")
			}
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(items), item.Name)
		}
	}

	return summary, summary.Finish()
}

func withDefaults(opts Options) (Options, error) {
	if opts.Algorithm == nil {
		algo, err := checksum.Get(checksum.DefaultAlgorithm)
		if err != nil {
			return opts, err
		}
		opts.Algorithm = algo
	}
	if opts.Bundle == "" {
		opts.Bundle = saf.DefaultBundle
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Start == 0 {
		opts.Start = 1
	}
	return opts, nil
}

func processItem(item saf.Item, opts Options, summary *report.Summary) error {
	if !item.HasContents() {
		slog.Warn("no contents file", "item", item.Name)
		summary.Inc("skipped")
		return nil
	}
	summary.Inc("items")

	plan, err := PlanItem(item, opts)
	if err != nil {
		return err
	}
	for _, name := range plan.missing {
		slog.Warn("listed file is missing", "item", item.Name, "file", name)
	}
	summary.Add("missing", len(plan.missing))
	summary.Add("duplicates", plan.duplicates)

	if !plan.Changed(opts.DropMissing) {
		summary.Inc("unchanged")
		return nil
	}

	if opts.DryRun {
		for _, d := range plan.documents {
			switch {
			case !d.survivor:
				slog.Info("would remove duplicate", "item", item.Name, "file", d.name, "checksum", d.sum)
			case d.final != d.name:
				slog.Info("would rename", "item", item.Name, "file", d.name, "target", d.final)
			}
		}
		summary.Inc("changed")
		return nil
	}

	freed, err := Apply(plan, opts)
	if err != nil {
		return err
	}
	summary.AddBytes(freed)
	summary.Inc("changed")
	slog.Info("deduplicated", "item", item.Name, "documents", len(plan.documents)-plan.duplicates, "duplicates", plan.duplicates)
	return nil
}

// PlanItem checksums the participating files and decides the final names.
func PlanItem(item saf.Item, opts Options) (*Plan, error) {
	opts, err := withDefaults(opts)
	if err != nil {
		return nil, err
	}
	contents, err := saf.ReadContentsFile(item.ContentsPath())
	if err != nil {
		return nil, err
	}

	filter := saf.NewExtensionFilter(opts.Extensions...)
	plan := &Plan{Item: item, Contents: contents, bundle: opts.Bundle, filter: filter}
	listed := make(map[string]bool)
	firstBySum := make(map[string]*document)
	next := opts.Start

	for idx, entry := range contents.Entries {
		if !entry.InBundle(opts.Bundle) || !filter.Match(entry.Filename) {
			continue
		}
		if listed[entry.Filename] {
			plan.repeated++
			continue
		}
		listed[entry.Filename] = true

		path := item.File(entry.Filename)
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			plan.missing = append(plan.missing, entry.Filename)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%s is not a regular file", entry.Filename)
		}

		sum, err := checksum.File(path, opts.Algorithm)
		if err != nil {
			return nil, err
		}

		d := &document{entry: idx, name: entry.Filename, sum: sum, size: info.Size()}
		if _, dup := firstBySum[sum]; dup {
			plan.duplicates++
		} else {
			d.survivor = true
			firstBySum[sum] = d
			if opts.PreserveNames {
				d.final = d.name
			} else {
				d.final = opts.Prefix + strconv.Itoa(next) + extension(d.name)
				next++
			}
		}
		plan.documents = append(plan.documents, d)
	}
	return plan, nil
}

func extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// checksumName is the intermediate name every copy of a document is moved
// to. Copies share it, which is what collapses them.
func (p *Plan) checksumName(sum string) string {
	for _, d := range p.documents {
		if d.survivor && d.sum == sum {
			return sum + extension(d.name)
		}
	}
	return sum
}

// Apply carries out a plan and returns the bytes freed. On failure every
// change made to the item is reverted and the error wraps ErrRolledBack.
func Apply(plan *Plan, opts Options) (int64, error) {
	j := &journal{}
	var freed int64

	fail := func(err error) (int64, error) {
		if rerr := j.rollback(); rerr != nil {
			return 0, fmt.Errorf("%w (rollback incomplete: %v)", err, rerr)
		}
		return 0, fmt.Errorf("%w: %w", ErrRolledBack, err)
	}

	survivors := make(map[string]*document)
	for _, d := range plan.documents {
		if d.survivor {
			survivors[d.sum] = d
		}
	}

	// A copy that already carries the checksum name would block its
	// survivor, so it goes first.
	removed := make(map[*document]bool)
	for _, d := range plan.documents {
		if d.survivor || d.name != plan.checksumName(d.sum) {
			continue
		}
		if err := j.remove(plan.Item.File(d.name), plan.Item.File(survivors[d.sum].name)); err != nil {
			return fail(fmt.Errorf("removing duplicate %s: %w", d.name, err))
		}
		removed[d] = true
		freed += d.size
	}

	// Move every copy to its checksum name; later copies find the name
	// taken and are removed.
	current := make(map[*document]string, len(plan.documents))
	for _, d := range plan.documents {
		src := plan.Item.File(d.name)
		dst := plan.Item.File(plan.checksumName(d.sum))

		if removed[d] {
			continue
		}
		if !d.survivor {
			if err := j.remove(src, dst); err != nil {
				return fail(fmt.Errorf("removing duplicate %s: %w", d.name, err))
			}
			freed += d.size
			slog.Debug("removed duplicate", "item", plan.Item.Name, "file", d.name, "checksum", d.sum)
			continue
		}

		current[d] = dst
		if src == dst {
			continue
		}
		if err := j.rename(src, dst); err != nil {
			return fail(fmt.Errorf("renaming %s to checksum name: %w", d.name, err))
		}
	}

	for _, d := range plan.documents {
		if !d.survivor {
			continue
		}
		dst := plan.Item.File(d.final)
		if current[d] == dst {
			continue
		}
		if err := j.rename(current[d], dst); err != nil {
			return fail(fmt.Errorf("renaming %s to %s: %w", d.name, d.final, err))
		}
	}

	if err := saf.WriteContentsFile(plan.Item.ContentsPath(), plan.rewrite(opts.DropMissing)); err != nil {
		return fail(err)
	}
	return freed, nil
}

// participates reports whether a manifest line takes part in the plan.
func (p *Plan) participates(entry saf.ContentsEntry) bool {
	return entry.InBundle(p.bundle) && p.filter.Match(entry.Filename)
}

// rewrite builds the manifest matching the renamed files. Lines keep their
// position, bundle and attributes. Duplicate and repeated lines of the
// target bundle are dropped; lines of other bundles follow their file to
// its new name.
func (p *Plan) rewrite(dropMissing bool) *saf.Contents {
	byEntry := make(map[int]*document, len(p.documents))
	finals := make(map[string]string)
	for _, d := range p.documents {
		if d.survivor {
			finals[d.sum] = d.final
		}
	}
	renamed := make(map[string]string, len(p.documents))
	for _, d := range p.documents {
		byEntry[d.entry] = d
		renamed[d.name] = finals[d.sum]
	}
	missing := make(map[string]bool, len(p.missing))
	for _, m := range p.missing {
		missing[m] = true
	}

	out := &saf.Contents{}
	seen := make(map[string]bool)
	for idx, entry := range p.Contents.Entries {
		if d, ok := byEntry[idx]; ok {
			if d.survivor {
				entry.Filename = d.final
				out.Entries = append(out.Entries, entry)
			}
			continue
		}

		if !p.participates(entry) {
			if name, ok := renamed[entry.Filename]; ok {
				entry.Filename = name
				// Copies listed in the same bundle collapse into one line.
				if seen[entry.String()] {
					continue
				}
				seen[entry.String()] = true
			}
			out.Entries = append(out.Entries, entry)
			continue
		}

		// A missing file keeps its first line; repeats are dropped.
		if missing[entry.Filename] && !dropMissing && p.firstLine(entry.Filename, idx) {
			out.Entries = append(out.Entries, entry)
		}
	}
	return out
}

// firstLine reports whether idx is the first target-bundle line listing name.
func (p *Plan) firstLine(name string, idx int) bool {
	for i, e := range p.Contents.Entries {
		if e.Filename == name && p.participates(e) {
			return i == idx
		}
	}
	return false
}
