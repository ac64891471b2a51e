package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/saftools/helpers"
)

// FirstDataRow is the line number of the first data row; line 1 is the header.
const FirstDataRow = 2

// ErrRowOutOfRange is returned by Mapping.Row for numbers outside the data rows.
var ErrRowOutOfRange = errors.New("row number out of range")

// Row is one data row of a mapping CSV.
type Row struct {
	// Number is the 1-based line number in the file; data starts at 2
	Number int

	SerialID     string
	DOI          string
	Title        string
	JournalTitle string
}

// Mapping is a loaded mapping CSV with lookup indices.
type Mapping struct {
	Source  string
	Profile *Profile

	rows     []Row
	bySerial map[string][]int
	byDOI    map[string][]int
	byTitle  map[string][]int
	hasDOI   bool
	hasTitle bool
}

// Load reads a mapping CSV laid out according to profile.
func Load(r io.Reader, profile *Profile, source string) (*Mapping, error) {
	if profile == nil {
		profile = DefaultProfile()
	}

	reader := csv.NewReader(r)
	reader.Comma = profile.GetDelimiter()
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("mapping file %s is empty", source)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing mapping header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	serialCol := resolve(index, profile.Columns.SerialID)
	if serialCol < 0 {
		return nil, fmt.Errorf("mapping file %s has no serial id column (looked for %s)",
			source, strings.Join(profile.Columns.SerialID, ", "))
	}
	doiCol := resolve(index, profile.Columns.DOI)
	titleCol := resolve(index, profile.Columns.Title)
	journalCol := resolve(index, profile.Columns.JournalTitle)

	m := &Mapping{
		Source:   source,
		Profile:  profile,
		bySerial: make(map[string][]int),
		byDOI:    make(map[string][]int),
		byTitle:  make(map[string][]int),
		hasDOI:   doiCol >= 0,
		hasTitle: titleCol >= 0,
	}

	cell := func(rec []string, col int) string {
		if col < 0 || col >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[col])
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing mapping file %s: %w", source, err)
		}
		line, _ := reader.FieldPos(0)

		row := Row{
			Number:       line,
			SerialID:     cell(rec, serialCol),
			DOI:          cell(rec, doiCol),
			Title:        cell(rec, titleCol),
			JournalTitle: cell(rec, journalCol),
		}
		m.add(row)
	}

	return m, nil
}

// LoadFile reads the mapping CSV at path.
func LoadFile(path string, profile *Profile) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mapping file: %w", err)
	}
	defer f.Close()

	return Load(f, profile, path)
}

func (m *Mapping) add(row Row) {
	idx := len(m.rows)
	m.rows = append(m.rows, row)

	if row.SerialID != "" {
		m.bySerial[row.SerialID] = append(m.bySerial[row.SerialID], idx)
	}
	if doi := helpers.NormalizeDOI(row.DOI); doi != "" {
		m.byDOI[doi] = append(m.byDOI[doi], idx)
	}
	if title := helpers.NormalizeTitle(row.Title); title != "" {
		m.byTitle[title] = append(m.byTitle[title], idx)
	}
}

// Len returns the number of data rows.
func (m *Mapping) Len() int {
	return len(m.rows)
}

// LastRow returns the line number of the last data row.
func (m *Mapping) LastRow() int {
	if len(m.rows) == 0 {
		return FirstDataRow - 1
	}
	return m.rows[len(m.rows)-1].Number
}

// HasDOI reports whether the file carries a DOI column.
func (m *Mapping) HasDOI() bool { return m.hasDOI }

// HasTitle reports whether the file carries a title column.
func (m *Mapping) HasTitle() bool { return m.hasTitle }

// Row returns the row at line number n.
//
// Quoted cells may span lines, so line numbers are looked up rather than
// used as offsets.
func (m *Mapping) Row(n int) (Row, error) {
	if n < FirstDataRow || n > m.LastRow() {
		return Row{}, fmt.Errorf("%w: %d not in [%d, %d]", ErrRowOutOfRange, n, FirstDataRow, m.LastRow())
	}
	// Rows are in ascending line order.
	lo, hi := 0, len(m.rows)
	for lo < hi {
		mid := (lo + hi) / 2
		if m.rows[mid].Number < n {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(m.rows) && m.rows[lo].Number == n {
		return m.rows[lo], nil
	}
	return Row{}, fmt.Errorf("%w: line %d is inside a multi-line record", ErrRowOutOfRange, n)
}

// SerialIDConflict returns the line numbers of every row sharing id when
// more than one row carries it, and nil otherwise.
func (m *Mapping) SerialIDConflict(id string) []int {
	return m.numbers(m.bySerial[id], 2)
}

// DuplicateSerialIDs returns every Serial ID carried by more than one row.
func (m *Mapping) DuplicateSerialIDs() map[string][]int {
	out := make(map[string][]int)
	for id, idx := range m.bySerial {
		if len(idx) > 1 {
			out[id] = m.numbers(idx, 2)
		}
	}
	return out
}

// ByDOI returns every row whose DOI matches doi after normalisation.
func (m *Mapping) ByDOI(doi string) []Row {
	return m.lookup(m.byDOI[helpers.NormalizeDOI(doi)])
}

// ByTitle returns every row whose title matches after normalisation.
func (m *Mapping) ByTitle(title string) []Row {
	key := helpers.NormalizeTitle(title)
	if key == "" {
		return nil
	}
	return m.lookup(m.byTitle[key])
}

func (m *Mapping) lookup(idx []int) []Row {
	if len(idx) == 0 {
		return nil
	}
	out := make([]Row, 0, len(idx))
	for _, i := range idx {
		out = append(out, m.rows[i])
	}
	return out
}

func (m *Mapping) numbers(idx []int, atLeast int) []int {
	if len(idx) < atLeast {
		return nil
	}
	out := make([]int, 0, len(idx))
	for _, i := range idx {
		out = append(out, m.rows[i].Number)
	}
	return out
}
