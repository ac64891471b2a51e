// Package saftest builds SAF trees on disk for tests.
package saftest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// PDF is a minimal body that sniffs as application/pdf. The suffix makes
// each body distinct so checksums differ.
func PDF(suffix string) string {
	return "%PDF-1.4\n%\xe2\xe3\xcf\xd3\n" + suffix + "\n%%EOF\n"
}

// HTML is the kind of error page that ends up saved as a .pdf.
const HTML = "<!DOCTYPE html>\n<html><head><title>403 Forbidden</title></head><body>Forbidden</body></html>\n"

// Item describes one item directory.
type Item struct {
	// Contents is the literal contents manifest; empty means no manifest
	Contents string

	// Files maps file names to bodies
	Files map[string]string

	// DublinCore is the literal dublin_core.xml; empty means none
	DublinCore string
}

// Build writes items under a fresh temporary source directory and returns it.
func Build(t *testing.T, items map[string]Item) string {
	t.Helper()
	root := t.TempDir()
	for name, item := range items {
		WriteItem(t, root, name, item)
	}
	return root
}

// WriteItem writes one item directory under root.
func WriteItem(t *testing.T, root, name string, item Item) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if item.Contents != "" {
		WriteFile(t, filepath.Join(dir, "contents"), item.Contents)
	}
	if item.DublinCore != "" {
		WriteFile(t, filepath.Join(dir, "dublin_core.xml"), item.DublinCore)
	}
	for fname, body := range item.Files {
		WriteFile(t, filepath.Join(dir, fname), body)
	}
}

// WriteFile writes body to path.
func WriteFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

// ReadFile returns the body of path, failing the test if it cannot be read.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// Names returns the sorted entry names of dir.
func Names(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Contents joins manifest lines, each listed file in bundle:ORIGINAL.
func Contents(files ...string) string {
	var sb strings.Builder
	for _, f := range files {
		sb.WriteString(f + "\tbundle:ORIGINAL\n")
	}
	return sb.String()
}

// DublinCore returns a dublin_core.xml with the given title and DOI; empty
// values are left out.
func DublinCore(title, doi string) string {
	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<dublin_core schema=\"dc\">\n")
	if title != "" {
		sb.WriteString("  <dcvalue element=\"title\" qualifier=\"none\">" + title + "</dcvalue>\n")
	}
	if doi != "" {
		sb.WriteString("  <dcvalue element=\"identifier\" qualifier=\"doi\">" + doi + "</dcvalue>\n")
	}
	sb.WriteString("</dublin_core>\n")
	return sb.String()
}
