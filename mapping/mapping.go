// Package mapping loads the CSV files that map SAF item row numbers to
// serial identifiers, and the YAML profiles describing their columns.
package mapping

import "strings"

// Profile describes the column layout of a mapping CSV.
type Profile struct {
	// Name is the profile identifier
	Name string `yaml:"name" json:"name"`

	// Description provides human-readable documentation
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Columns names the header cells holding each mapped field
	Columns Columns `yaml:"columns" json:"columns"`

	// Delimiter is the CSV field delimiter (default ",")
	Delimiter string `yaml:"delimiter,omitempty" json:"delimiter,omitempty"`
}

// Columns maps logical fields to header names. Each field accepts several
// candidate headers; the first one present in the file wins.
type Columns struct {
	SerialID     []string `yaml:"serial_id" json:"serial_id"`
	DOI          []string `yaml:"doi,omitempty" json:"doi,omitempty"`
	Title        []string `yaml:"title,omitempty" json:"title,omitempty"`
	JournalTitle []string `yaml:"journal_title,omitempty" json:"journal_title,omitempty"`
}

// GetDelimiter returns the CSV delimiter with a default.
func (p *Profile) GetDelimiter() rune {
	if p.Delimiter == "" {
		return ','
	}
	if p.Delimiter == `\t` || strings.EqualFold(p.Delimiter, "tab") {
		return '\t'
	}
	return []rune(p.Delimiter)[0]
}

// DefaultProfile is used when no profile is named.
func DefaultProfile() *Profile {
	return &Profile{
		Name:        "default",
		Description: "Serial ID, DOI, Title and Journal Title columns",
		Columns: Columns{
			SerialID:     []string{"serial id", "serial_id", "serial"},
			DOI:          []string{"doi"},
			Title:        []string{"title"},
			JournalTitle: []string{"journal title", "journal_title", "journal"},
		},
	}
}

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// resolve returns the index of the first candidate header present, or -1.
func resolve(index map[string]int, candidates []string) int {
	for _, c := range candidates {
		if i, ok := index[normalizeHeader(c)]; ok {
			return i
		}
	}
	return -1
}
