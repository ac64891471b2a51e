package problem

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

type fileKey struct {
	item string
	kind Kind
}

type openFile struct {
	f *os.File
	w *bufio.Writer
}

// Writer appends records to problem files under Dir. Each file is truncated
// the first time it is written during a run, so a rerun replaces the
// previous output instead of appending to it.
type Writer struct {
	Dir string

	// Legacy writes bare file names without the checksum column.
	Legacy bool

	files   map[fileKey]*openFile
	written map[fileKey]bool
	counts  map[Kind]int
}

// NewWriter creates dir if needed and returns a writer for it.
func NewWriter(dir string, legacy bool) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating checksum directory: %w", err)
	}
	probe, err := os.CreateTemp(dir, ".write-test-*")
	if err != nil {
		return nil, fmt.Errorf("checksum directory %s is not writable: %w", dir, err)
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	return &Writer{
		Dir:     dir,
		Legacy:  legacy,
		files:   make(map[fileKey]*openFile),
		written: make(map[fileKey]bool),
		counts:  make(map[Kind]int),
	}, nil
}

// Add appends one record for item.
func (w *Writer) Add(item string, kind Kind, rec Record) error {
	key := fileKey{item: item, kind: kind}
	of, ok := w.files[key]
	if !ok {
		flag := os.O_WRONLY | os.O_CREATE | os.O_APPEND
		if !w.written[key] {
			flag |= os.O_TRUNC
		}
		f, err := os.OpenFile(filepath.Join(w.Dir, FileName(item, kind)), flag, 0644)
		if err != nil {
			return fmt.Errorf("creating problem file: %w", err)
		}
		of = &openFile{f: f, w: bufio.NewWriter(f)}
		w.files[key] = of
		w.written[key] = true
	}

	if w.Legacy || kind == Missing {
		rec.Checksum = ""
	}
	if _, err := of.w.WriteString(rec.String() + "\n"); err != nil {
		return fmt.Errorf("writing problem record: %w", err)
	}
	w.counts[kind]++
	return nil
}

// FinishItem closes the item's problem files and removes any left over
// from an earlier run that were not written this time. It is called once an
// item has been fully scanned.
func (w *Writer) FinishItem(item string) error {
	var errs []error
	for _, kind := range Kinds {
		key := fileKey{item: item, kind: kind}
		if of, ok := w.files[key]; ok {
			errs = append(errs, w.closeFile(key, of))
			continue
		}
		if w.written[key] {
			continue
		}
		err := os.Remove(filepath.Join(w.Dir, FileName(item, kind)))
		if err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *Writer) closeFile(key fileKey, of *openFile) error {
	delete(w.files, key)
	if err := of.w.Flush(); err != nil {
		_ = of.f.Close()
		return fmt.Errorf("flushing %s: %w", FileName(key.item, key.kind), err)
	}
	return of.f.Close()
}

// Count returns how many records of kind were written.
func (w *Writer) Count(kind Kind) int {
	return w.counts[kind]
}

// Close flushes and closes every open problem file.
func (w *Writer) Close() error {
	var errs []error
	for key, of := range w.files {
		errs = append(errs, w.closeFile(key, of))
	}
	return errors.Join(errs...)
}
