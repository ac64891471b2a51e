// Package report collects the per-run counters and item errors each
// command prints when it finishes.
package report

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrItemsFailed is returned when one or more items could not be processed.
var ErrItemsFailed = errors.New("one or more items failed")

// ProgressFunc is called after each item is processed.
type ProgressFunc func(done, total int, item string)

// ItemError records a failure for one item.
type ItemError struct {
	Item    string `json:"item"`
	Message string `json:"message"`
}

// Summary is the outcome of one command run.
type Summary struct {
	Command  string
	Source   string
	DryRun   bool
	Started  time.Time
	Finished time.Time

	counters map[string]int
	order    []string
	bytes    int64
	errors   []ItemError
}

// New starts a summary for command.
func New(command, source string) *Summary {
	return &Summary{
		Command:  command,
		Source:   source,
		Started:  time.Now(),
		counters: make(map[string]int),
	}
}

// Add increments a named counter by n. Counters print in first-use order.
func (s *Summary) Add(name string, n int) {
	if _, ok := s.counters[name]; !ok {
		s.order = append(s.order, name)
	}
	s.counters[name] += n
}

// Inc increments a named counter by one.
func (s *Summary) Inc(name string) {
	s.Add(name, 1)
}

// Count returns a counter value.
func (s *Summary) Count(name string) int {
	return s.counters[name]
}

// AddBytes accumulates bytes removed from disk.
func (s *Summary) AddBytes(n int64) {
	s.bytes += n
}

// Bytes returns the bytes removed from disk.
func (s *Summary) Bytes() int64 {
	return s.bytes
}

// Fail records an item failure.
func (s *Summary) Fail(item string, err error) {
	s.errors = append(s.errors, ItemError{Item: item, Message: err.Error()})
}

// Errors returns the recorded item failures.
func (s *Summary) Errors() []ItemError {
	return s.errors
}

// Finish stamps the end time and returns ErrItemsFailed when any item failed.
func (s *Summary) Finish() error {
	s.Finished = time.Now()
	if len(s.errors) > 0 {
		return fmt.Errorf("%w: %d item(s)", ErrItemsFailed, len(s.errors))
	}
	return nil
}

// Elapsed returns the run duration.
func (s *Summary) Elapsed() time.Duration {
	end := s.Finished
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.Started)
}

// Text renders the summary for the console.
func (s *Summary) Text() string {
	var sb strings.Builder

	title := s.Command
	if s.DryRun {
		title += " (dry run)"
	}
	sb.WriteString(fmt.Sprintf("=== %s ===\n", title))
	if s.Source != "" {
		sb.WriteString(fmt.Sprintf("Source: %s\n", s.Source))
	}
	for _, name := range s.order {
		sb.WriteString(fmt.Sprintf("  %-20s %d\n", name+":", s.counters[name]))
	}
	if s.bytes > 0 {
		sb.WriteString(fmt.Sprintf("  %-20s %s\n", "freed:", humanize.Bytes(uint64(s.bytes))))
	}
	if len(s.errors) > 0 {
		sb.WriteString(fmt.Sprintf("  %-20s %d\n", "failed items:", len(s.errors)))
		for _, e := range s.errors {
			sb.WriteString(fmt.Sprintf("    %s: %s\n", e.Item, e.Message))
		}
	}
	sb.WriteString(fmt.Sprintf("Elapsed: %s\n", s.Elapsed().Round(time.Millisecond)))
	return sb.String()
}

// Struct converts the summary to a protobuf Struct for JSON output.
func (s *Summary) Struct() (*structpb.Struct, error) {
	counters := make(map[string]any, len(s.counters))
	for k, v := range s.counters {
		counters[k] = v
	}

	names := make([]string, 0, len(s.errors))
	errs := make([]any, 0, len(s.errors))
	for _, e := range s.errors {
		names = append(names, e.Item)
		errs = append(errs, map[string]any{"item": e.Item, "message": e.Message})
	}
	sort.Strings(names)

	return structpb.NewStruct(map[string]any{
		"command":         s.Command,
		"source":          s.Source,
		"dry_run":         s.DryRun,
		"started":         s.Started.UTC().Format(time.RFC3339),
		"finished":        s.Finished.UTC().Format(time.RFC3339),
		"elapsed_seconds": s.Elapsed().Seconds(),
		"bytes_freed":     s.bytes,
		"counters":        counters,
		"errors":          errs,
		"failed_items":    toAny(names),
	})
}

// JSON renders the summary as indented JSON.
func (s *Summary) JSON() ([]byte, error) {
	st, err := s.Struct()
	if err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(st)
}

// WriteJSON writes the JSON report to path.
func (s *Summary) WriteJSON(path string) error {
	data, err := s.JSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
