// Package problem reads and writes the per-item problem record files
// (<item>.duplicates, <item>.invalid, <item>.missing) kept in the checksum
// output directory.
package problem

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Kind names a class of problem record.
type Kind string

const (
	Duplicates Kind = "duplicates"
	Invalid    Kind = "invalid"
	Missing    Kind = "missing"
)

// Kinds lists every kind in the order reports print them.
var Kinds = []Kind{Missing, Invalid, Duplicates}

// ParseKind accepts a kind name, with or without the leading dot and with
// the singular "duplicate".
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	switch s {
	case "duplicates", "duplicate":
		return Duplicates, nil
	case "invalid":
		return Invalid, nil
	case "missing":
		return Missing, nil
	}
	return "", fmt.Errorf("unknown problem kind: %q", s)
}

// ParseKinds parses a list of kind names and drops repeats.
func ParseKinds(names []string) ([]Kind, error) {
	seen := make(map[Kind]bool)
	var kinds []Kind
	for _, name := range names {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// FileName returns the problem file name for an item.
func FileName(item string, kind Kind) string {
	return item + "." + string(kind)
}

// Record is one line of a problem file.
type Record struct {
	Filename string
	Checksum string
}

// String renders the record as written to disk.
func (r Record) String() string {
	if r.Checksum == "" {
		return r.Filename
	}
	return r.Filename + "\t" + r.Checksum
}

// ParseRecord parses one line. The checksum is the last tab-separated field
// so file names may contain spaces.
func ParseRecord(line string) (Record, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return Record{}, errors.New("empty record")
	}
	idx := strings.LastIndex(line, "\t")
	if idx < 0 {
		return Record{Filename: line}, nil
	}
	r := Record{Filename: line[:idx], Checksum: strings.TrimSpace(line[idx+1:])}
	if r.Filename == "" {
		return Record{}, fmt.Errorf("record %q has no file name", line)
	}
	return r, nil
}

// Read parses every record in r. Blank lines are skipped.
func Read(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		rec, err := ParseRecord(scanner.Text())
		if err != nil {
			return records, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, err
	}
	return records, nil
}

// ReadFile parses the problem file at path.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		return records, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Set holds the problem files found for one item.
type Set struct {
	Item    string
	Records map[Kind][]Record
	Paths   map[Kind]string
}

// Scan loads the problem files of the selected kinds in dir, grouped by item
// and sorted by item name.
func Scan(dir string, kinds []Kind) ([]*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading checksum directory: %w", err)
	}

	want := make(map[string]Kind, len(kinds))
	for _, k := range kinds {
		want["."+string(k)] = k
	}

	sets := make(map[string]*Set)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		kind, ok := want[ext]
		if !ok {
			continue
		}
		item := strings.TrimSuffix(entry.Name(), ext)
		if item == "" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		records, err := ReadFile(path)
		if err != nil {
			return nil, err
		}

		set, ok := sets[item]
		if !ok {
			set = &Set{Item: item, Records: make(map[Kind][]Record), Paths: make(map[Kind]string)}
			sets[item] = set
		}
		set.Records[kind] = append(set.Records[kind], records...)
		set.Paths[kind] = path
	}

	out := make([]*Set, 0, len(sets))
	for _, s := range sets {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out, nil
}
