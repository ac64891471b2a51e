package renamer

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/saftools/helpers"
	"github.com/lehigh-university-libraries/saftools/mapping"
	"github.com/lehigh-university-libraries/saftools/saf"
)

type checkResult int

const (
	// checkSkipped means there was nothing to compare.
	checkSkipped checkResult = iota
	checkMatched
	checkNotFound
)

// Validate cross-checks the item's dublin_core.xml against the mapping.
//
// A field is compared only when both the item and the mapping row carry it.
// When the item's value is found on other rows but not on row, the item is
// rejected with ErrMismatch. A value found nowhere in the mapping is only a
// warning. In ValidateBoth mode the title is checked when the DOI check could
// not decide.
func Validate(item saf.Item, row mapping.Row, m *mapping.Mapping, mode Validation) error {
	if mode == ValidateNone {
		return nil
	}

	dc, err := saf.ReadDublinCoreFile(item.DublinCorePath())
	if os.IsNotExist(err) {
		slog.Warn("no dublin_core.xml, skipping validation", "item", item.Name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading metadata: %w", err)
	}

	if mode == ValidateDOI || mode == ValidateBoth {
		res, err := checkDOI(item, dc, row, m)
		if err != nil || res == checkMatched || mode == ValidateDOI {
			return err
		}
	}

	_, err = checkTitle(item, dc, row, m)
	return err
}

func checkDOI(item saf.Item, dc *saf.DublinCore, row mapping.Row, m *mapping.Mapping) (checkResult, error) {
	itemDOI := dc.DOI()
	rowDOI := helpers.NormalizeDOI(row.DOI)
	if itemDOI == "" || rowDOI == "" {
		return checkSkipped, nil
	}
	if itemDOI == rowDOI {
		return checkMatched, nil
	}

	matches := m.ByDOI(itemDOI)
	if len(matches) == 0 {
		slog.Warn("item DOI not found in mapping", "item", item.Name, "doi", itemDOI, "row", row.Number, "row_doi", rowDOI)
		return checkNotFound, nil
	}
	return checkSkipped, fmt.Errorf("%w: DOI %s is on row(s) %v, not row %d", ErrMismatch, itemDOI, rowNumbers(matches), row.Number)
}

func checkTitle(item saf.Item, dc *saf.DublinCore, row mapping.Row, m *mapping.Mapping) (checkResult, error) {
	itemTitle := helpers.NormalizeTitle(dc.Title())
	rowTitle := helpers.NormalizeTitle(row.Title)
	if itemTitle == "" || rowTitle == "" {
		return checkSkipped, nil
	}
	if itemTitle == rowTitle {
		return checkMatched, nil
	}

	matches := m.ByTitle(dc.Title())
	if len(matches) == 0 {
		slog.Warn("item title not found in mapping", "item", item.Name,
			"title", helpers.TruncateText(dc.Title(), 60), "row", row.Number)
		return checkNotFound, nil
	}
	return checkSkipped, fmt.Errorf("%w: title %q is on row(s) %v, not row %d",
		ErrMismatch, helpers.TruncateText(dc.Title(), 60), rowNumbers(matches), row.Number)
}

func rowNumbers(rows []mapping.Row) []int {
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Number)
	}
	return out
}
