// Package renamer renames numbered SAF item directories to the Serial ID
// found on the matching row of a mapping CSV.
package renamer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/saftools/mapping"
	"github.com/lehigh-university-libraries/saftools/report"
	"github.com/lehigh-university-libraries/saftools/saf"
)

// Validation selects which dublin_core.xml fields are cross-checked
// against the mapping before renaming.
type Validation string

const (
	ValidateNone  Validation = "none"
	ValidateDOI   Validation = "doi"
	ValidateTitle Validation = "title"
	ValidateBoth  Validation = "both"
)

// ParseValidation parses a validation mode name.
func ParseValidation(s string) (Validation, error) {
	switch v := Validation(strings.ToLower(strings.TrimSpace(s))); v {
	case ValidateNone, ValidateDOI, ValidateTitle, ValidateBoth:
		return v, nil
	case "":
		return ValidateDOI, nil
	}
	return "", fmt.Errorf("unknown validation mode %q (want none, doi, title or both)", s)
}

var (
	// ErrMismatch means the item's metadata points at a different mapping row.
	ErrMismatch = errors.New("metadata does not match mapping row")

	// ErrNoSerialID means the mapping row has an empty or duplicated Serial ID.
	ErrNoSerialID = errors.New("no usable serial id")
)

// Options configures a rename run.
type Options struct {
	SourceDir string
	Mapping   *mapping.Mapping

	// RowOffset is added to the directory number to get the mapping line
	RowOffset int

	Validation Validation
	DryRun     bool

	Progress report.ProgressFunc
}

// Plan is the rename decided for one item.
type Plan struct {
	Item   string
	Row    int
	Serial string
	Target string

	// Collision is set when Target carries a .duplicate-<random> suffix
	Collision bool
}

// Run renames every numerically named item directory.
func Run(ctx context.Context, opts Options) (*report.Summary, error) {
	if opts.Mapping == nil {
		return nil, errors.New("no mapping loaded")
	}
	if opts.Validation == "" {
		opts.Validation = ValidateDOI
	}

	items, err := saf.ListItems(opts.SourceDir)
	if err != nil {
		return nil, err
	}

	if (opts.Validation == ValidateDOI || opts.Validation == ValidateBoth) && !opts.Mapping.HasDOI() {
		slog.Warn("mapping has no DOI column, DOI validation is skipped")
	}
	if (opts.Validation == ValidateTitle || opts.Validation == ValidateBoth) && !opts.Mapping.HasTitle() {
		slog.Warn("mapping has no title column, title validation is skipped")
	}
	for id, lines := range opts.Mapping.DuplicateSerialIDs() {
		slog.Warn("serial id is not unique in mapping", "serial_id", id, "rows", lines)
	}

	summary := report.New("rename", opts.SourceDir)
	summary.DryRun = opts.DryRun
	for _, name := range []string{"items", "renamed", "unchanged", "collisions", "skipped"} {
		summary.Add(name, 0)
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if !isNumber(item.Name) {
			slog.Debug("skipping non-numeric directory", "item", item.Name)
			summary.Inc("skipped")
			reportProgress(opts, i, len(items), item.Name)
			continue
		}
		summary.Inc("items")

		plan, err := PlanItem(item, opts)
		if err != nil {
			slog.Error("cannot rename item", "item", item.Name, "error", err)
			summary.Fail(item.Name, err)
			reportProgress(opts, i, len(items), item.Name)
			continue
		}

		if plan.Target == plan.Item {
			slog.Info("already named", "item", plan.Item)
			summary.Inc("unchanged")
		} else if err := apply(plan, opts); err != nil {
			slog.Error("rename failed", "item", item.Name, "target", plan.Target, "error", err)
			summary.Fail(item.Name, err)
		} else {
			summary.Inc("renamed")
			if plan.Collision {
				summary.Inc("collisions")
			}
		}
		reportProgress(opts, i, len(items), item.Name)
	}

	return summary, summary.Finish()
}

func reportProgress(opts Options, i, total int, name string) {
	if opts.Progress != nil {
		opts.Progress(i+1, total, name)
	}
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// PlanItem resolves the mapping row and target name for an item.
func PlanItem(item saf.Item, opts Options) (Plan, error) {
	n, err := strconv.Atoi(item.Name)
	if err != nil {
		return Plan{}, fmt.Errorf("directory name %q is not a row number: %w", item.Name, err)
	}
	rowNum := n + opts.RowOffset

	row, err := opts.Mapping.Row(rowNum)
	if err != nil {
		return Plan{}, err
	}

	serial := row.SerialID
	if serial == "" {
		return Plan{}, fmt.Errorf("%w: row %d has an empty serial id", ErrNoSerialID, rowNum)
	}
	if lines := opts.Mapping.SerialIDConflict(serial); lines != nil {
		return Plan{}, fmt.Errorf("%w: serial id %q appears on rows %v", ErrNoSerialID, serial, lines)
	}
	if strings.ContainsAny(serial, `/\`) || serial == "." || serial == ".." {
		return Plan{}, fmt.Errorf("%w: serial id %q is not a valid directory name", ErrNoSerialID, serial)
	}

	if err := Validate(item, row, opts.Mapping, opts.Validation); err != nil {
		return Plan{}, err
	}

	plan := Plan{Item: item.Name, Row: rowNum, Serial: serial, Target: serial}
	if plan.Target == item.Name {
		return plan, nil
	}
	if _, err := os.Lstat(filepath.Join(opts.SourceDir, plan.Target)); err == nil {
		plan.Target = serial + ".duplicate-" + randomSuffix()
		plan.Collision = true
	}
	return plan, nil
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func apply(plan Plan, opts Options) error {
	if plan.Collision {
		slog.Warn("target exists, renaming with suffix", "item", plan.Item, "serial_id", plan.Serial, "target", plan.Target)
	}
	if opts.DryRun {
		slog.Info("would rename", "item", plan.Item, "row", plan.Row, "target", plan.Target)
		return nil
	}

	from := filepath.Join(opts.SourceDir, plan.Item)
	to := filepath.Join(opts.SourceDir, plan.Target)
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("renaming directory: %w", err)
	}
	slog.Info("renamed", "item", plan.Item, "row", plan.Row, "target", plan.Target)
	return nil
}
