package saf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const bundlePrefix = "bundle:"

// ContentsEntry is one line of a contents manifest.
type ContentsEntry struct {
	Filename string

	// Bundle is the bundle name without the "bundle:" prefix; empty when
	// the line does not name one.
	Bundle string

	// Attributes holds any further tab-separated fields (description:,
	// permissions:, primary:true ...) verbatim.
	Attributes []string
}

// String renders the entry as a manifest line without the trailing newline.
func (e ContentsEntry) String() string {
	fields := []string{e.Filename}
	if e.Bundle != "" {
		fields = append(fields, bundlePrefix+e.Bundle)
	}
	fields = append(fields, e.Attributes...)
	return strings.Join(fields, "\t")
}

// InBundle reports whether the entry belongs to the named bundle. An entry
// without a bundle field belongs to ORIGINAL, which is what the DSpace
// importer assumes.
func (e ContentsEntry) InBundle(bundle string) bool {
	b := e.Bundle
	if b == "" {
		b = DefaultBundle
	}
	return strings.EqualFold(b, bundle)
}

// Contents is an ordered contents manifest.
type Contents struct {
	Entries []ContentsEntry
}

// ParseContents reads a manifest. Blank lines are dropped and CRLF line
// endings are accepted.
func ParseContents(r io.Reader) (*Contents, error) {
	c := &Contents{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		entry := ContentsEntry{Filename: strings.TrimSpace(fields[0])}
		if entry.Filename == "" {
			return nil, fmt.Errorf("line %d: empty file name", lineNo)
		}
		for _, field := range fields[1:] {
			switch {
			case field == "":
				continue
			case entry.Bundle == "" && strings.HasPrefix(field, bundlePrefix):
				entry.Bundle = strings.TrimPrefix(field, bundlePrefix)
			default:
				entry.Attributes = append(entry.Attributes, field)
			}
		}
		c.Entries = append(c.Entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading contents: %w", err)
	}
	return c, nil
}

// ReadContentsFile parses the manifest at path.
func ReadContentsFile(path string) (c *Contents, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing contents file: %w", cerr)
		}
	}()

	c, err = ParseContents(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Serialize writes the manifest, one entry per line.
func (c *Contents) Serialize(w io.Writer) error {
	for _, e := range c.Entries {
		if _, err := io.WriteString(w, e.String()+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the serialized manifest.
func (c *Contents) Bytes() []byte {
	var buf bytes.Buffer
	_ = c.Serialize(&buf)
	return buf.Bytes()
}

// Filenames returns the listed file names in manifest order.
func (c *Contents) Filenames() []string {
	names := make([]string, 0, len(c.Entries))
	for _, e := range c.Entries {
		names = append(names, e.Filename)
	}
	return names
}

// Has reports whether filename is listed.
func (c *Contents) Has(filename string) bool {
	for _, e := range c.Entries {
		if e.Filename == filename {
			return true
		}
	}
	return false
}

// Remove drops every line listing filename and returns how many were removed.
func (c *Contents) Remove(filename string) int {
	kept := c.Entries[:0]
	removed := 0
	for _, e := range c.Entries {
		if e.Filename == filename {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	c.Entries = kept
	return removed
}

// WriteContentsFile replaces the manifest at path. The new manifest is
// written next to the old one and renamed into place.
func WriteContentsFile(path string, c *Contents) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".contents-*")
	if err != nil {
		return fmt.Errorf("creating temporary contents file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := c.Serialize(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing contents: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temporary contents file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("setting contents permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing contents file: %w", err)
	}
	return nil
}
