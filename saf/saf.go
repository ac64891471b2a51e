// Package saf models DSpace Simple Archive Format item directories.
//
// A source directory holds one item per immediate subdirectory. Each item
// carries a contents manifest listing its bitstreams and a dublin_core.xml
// metadata file.
package saf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ContentsFile is the manifest file name inside an item directory.
	ContentsFile = "contents"

	// DublinCoreFile is the metadata file name inside an item directory.
	DublinCoreFile = "dublin_core.xml"

	// DefaultBundle is the bundle that holds primary content files.
	DefaultBundle = "ORIGINAL"
)

// Item is one SAF item directory.
type Item struct {
	// Name is the directory name (row number, serial id, ...)
	Name string

	// Path is the full path of the item directory
	Path string
}

// ContentsPath returns the path of the item's contents manifest.
func (i Item) ContentsPath() string {
	return filepath.Join(i.Path, ContentsFile)
}

// DublinCorePath returns the path of the item's dublin_core.xml.
func (i Item) DublinCorePath() string {
	return filepath.Join(i.Path, DublinCoreFile)
}

// File returns the path of a file inside the item directory.
func (i Item) File(name string) string {
	return filepath.Join(i.Path, name)
}

// HasContents reports whether the item has a contents manifest.
func (i Item) HasContents() bool {
	info, err := os.Stat(i.ContentsPath())
	return err == nil && info.Mode().IsRegular()
}

// ListItems returns the immediate subdirectories of sourceDir in directory
// read order. Hidden entries are skipped.
func ListItems(sourceDir string) ([]Item, error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", sourceDir)
	}

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory: %w", err)
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		items = append(items, Item{
			Name: entry.Name(),
			Path: filepath.Join(sourceDir, entry.Name()),
		})
	}
	return items, nil
}

// ExtensionFilter matches file names by extension, case-insensitively.
// The zero value matches every name.
type ExtensionFilter struct {
	exts map[string]bool
}

// NewExtensionFilter builds a filter from extensions with or without the
// leading dot. An empty list matches everything.
func NewExtensionFilter(exts ...string) ExtensionFilter {
	f := ExtensionFilter{}
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		if f.exts == nil {
			f.exts = make(map[string]bool)
		}
		f.exts[ext] = true
	}
	return f
}

// Match reports whether name passes the filter.
func (f ExtensionFilter) Match(name string) bool {
	if len(f.exts) == 0 {
		return true
	}
	return f.exts[strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))]
}

