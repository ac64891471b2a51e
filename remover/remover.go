// Package remover deletes the files named in problem files written by the
// finder, optionally dropping them from the item manifests too.
package remover

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/saftools/checksum"
	"github.com/lehigh-university-libraries/saftools/problem"
	"github.com/lehigh-university-libraries/saftools/report"
	"github.com/lehigh-university-libraries/saftools/saf"
)

// DefaultKinds are consumed when no kinds are given.
var DefaultKinds = []problem.Kind{problem.Invalid, problem.Missing}

// Options configures a removal run.
type Options struct {
	SourceDir string

	// WriteDir holds the problem files
	WriteDir string

	Kinds     []problem.Kind
	Algorithm checksum.Algorithm

	// Verify requires a file's checksum to still match its record
	Verify bool

	// StripContents drops removed files from the contents manifest
	StripContents bool

	DryRun bool

	// Consume deletes each problem file once its item is processed cleanly
	Consume bool

	Progress report.ProgressFunc
}

// Run processes every problem file of the selected kinds.
func Run(ctx context.Context, opts Options) (*report.Summary, error) {
	if len(opts.Kinds) == 0 {
		opts.Kinds = DefaultKinds
	}
	if opts.Algorithm == nil {
		algo, err := checksum.Get(checksum.DefaultAlgorithm)
		if err != nil {
			return nil, err
		}
		opts.Algorithm = algo
	}

	info, err := os.Stat(opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", opts.SourceDir)
	}

	sets, err := problem.Scan(opts.WriteDir, opts.Kinds)
	if err != nil {
		return nil, err
	}

	summary := report.New("remove", opts.SourceDir)
	summary.DryRun = opts.DryRun
	for _, name := range []string{"items", "removed", "not found", "mismatched", "last copy", "stripped", "consumed"} {
		summary.Add(name, 0)
	}

	for i, set := range sets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if err := processSet(set, opts, summary); err != nil {
			slog.Error("removal failed", "item", set.Item, "error", err)
			summary.Fail(set.Item, err)
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(sets), set.Item)
		}
	}

	return summary, summary.Finish()
}

// itemState tracks one item while its records are applied.
type itemState struct {
	item       saf.Item
	opts       Options
	contents   *saf.Contents
	candidates []string
	sums       map[string]string
	deleted    map[string]bool
}

func processSet(set *problem.Set, opts Options, summary *report.Summary) error {
	item := saf.Item{Name: set.Item, Path: filepath.Join(opts.SourceDir, set.Item)}
	if info, err := os.Stat(item.Path); err != nil || !info.IsDir() {
		return fmt.Errorf("item directory %s not found", item.Path)
	}
	summary.Inc("items")

	st := &itemState{
		item:    item,
		opts:    opts,
		sums:    make(map[string]string),
		deleted: make(map[string]bool),
	}
	if item.HasContents() {
		contents, err := saf.ReadContentsFile(item.ContentsPath())
		if err != nil {
			return err
		}
		st.contents = contents
		st.candidates = contents.Filenames()
	} else {
		names, err := listFiles(item.Path)
		if err != nil {
			return err
		}
		st.candidates = names
	}

	stripped := 0
	for _, kind := range problem.Kinds {
		for _, rec := range set.Records[kind] {
			strip, err := st.apply(kind, rec, summary)
			if err != nil {
				return err
			}
			if strip && opts.StripContents && st.contents != nil {
				stripped += st.contents.Remove(rec.Filename)
			}
		}
	}

	if stripped > 0 {
		summary.Add("stripped", stripped)
		if opts.DryRun {
			slog.Info("would strip contents lines", "item", item.Name, "lines", stripped)
		} else if err := saf.WriteContentsFile(item.ContentsPath(), st.contents); err != nil {
			return err
		}
	}

	if opts.Consume && !opts.DryRun {
		for _, kind := range problem.Kinds {
			path, ok := set.Paths[kind]
			if !ok {
				continue
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("consuming problem file: %w", err)
			}
			summary.Inc("consumed")
		}
	}
	return nil
}

// apply handles one record and reports whether its manifest line should go.
func (st *itemState) apply(kind problem.Kind, rec problem.Record, summary *report.Summary) (bool, error) {
	log := slog.With("item", st.item.Name, "file", rec.Filename, "kind", kind)

	if rec.Filename != filepath.Base(rec.Filename) || rec.Filename == ".." {
		log.Warn("record does not name a file inside the item, skipping")
		return false, nil
	}
	if rec.Filename == saf.ContentsFile || rec.Filename == saf.DublinCoreFile {
		log.Warn("refusing to remove item metadata")
		return false, nil
	}

	path := st.item.File(rec.Filename)
	info, err := os.Lstat(path)
	if os.IsNotExist(err) || st.deleted[rec.Filename] {
		summary.Inc("not found")
		log.Debug("nothing to delete")
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("%s is not a regular file", rec.Filename)
	}
	if kind == problem.Missing {
		log.Warn("file recorded as missing is present, leaving it")
		return false, nil
	}

	if rec.Checksum != "" && st.opts.Verify {
		sum, err := st.sum(rec.Filename)
		if err != nil {
			return false, err
		}
		if sum != rec.Checksum {
			summary.Inc("mismatched")
			log.Warn("checksum no longer matches, skipping", "recorded", rec.Checksum, "current", sum)
			return false, nil
		}
	}

	if kind == problem.Duplicates {
		other, err := st.otherCopy(rec.Filename)
		if err != nil {
			return false, err
		}
		if other == "" {
			summary.Inc("last copy")
			log.Warn("no other copy remains, keeping file")
			return false, nil
		}
		log = log.With("copy", other)
	}

	if st.opts.DryRun {
		log.Info("would remove", "bytes", info.Size())
	} else {
		if err := os.Remove(path); err != nil {
			return false, err
		}
		log.Info("removed", "bytes", info.Size())
	}
	st.deleted[rec.Filename] = true
	summary.Inc("removed")
	summary.AddBytes(info.Size())
	return true, nil
}

// otherCopy returns another listed file with the same content as name, or
// "" when name is the last copy.
func (st *itemState) otherCopy(name string) (string, error) {
	want, err := st.sum(name)
	if err != nil {
		return "", err
	}
	for _, cand := range st.candidates {
		if cand == name || st.deleted[cand] {
			continue
		}
		info, err := os.Stat(st.item.File(cand))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		sum, err := st.sum(cand)
		if err != nil {
			return "", err
		}
		if sum == want {
			return cand, nil
		}
	}
	return "", nil
}

func (st *itemState) sum(name string) (string, error) {
	if s, ok := st.sums[name]; ok {
		return s, nil
	}
	s, err := checksum.File(st.item.File(name), st.opts.Algorithm)
	if err != nil {
		return "", err
	}
	st.sums[name] = s
	return s, nil
}

// listFiles returns the regular files of an item without a manifest,
// leaving out the metadata files.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || e.Name() == saf.ContentsFile || e.Name() == saf.DublinCoreFile {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
