package problem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseRecord(t *testing.T) {
	tests := []struct {
		line    string
		want    Record
		wantErr bool
	}{
		{line: "a.pdf\tabc123", want: Record{Filename: "a.pdf", Checksum: "abc123"}},
		{line: "a.pdf", want: Record{Filename: "a.pdf"}},
		{line: "my file.pdf\tabc123\r\n", want: Record{Filename: "my file.pdf", Checksum: "abc123"}},
		{line: "odd\tname.pdf\tabc", want: Record{Filename: "odd\tname.pdf", Checksum: "abc"}},
		{line: "   ", wantErr: true},
		{line: "\tabc", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseRecord(tt.line)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRecord(%q): expected error", tt.line)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRecord(%q): %v", tt.line, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRecord(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestParseKinds(t *testing.T) {
	got, err := ParseKinds([]string{"invalid", ".missing", "duplicate", "duplicates"})
	if err != nil {
		t.Fatalf("ParseKinds: %v", err)
	}
	if diff := cmp.Diff([]Kind{Invalid, Missing, Duplicates}, got); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}

	if _, err := ParseKinds([]string{"bogus"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestWriterAndScan(t *testing.T) {
	dir := t.TempDir()

	// Leftovers from an earlier run.
	if err := os.WriteFile(filepath.Join(dir, "1.invalid"), []byte("stale.pdf\tffff\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "2.missing"), []byte("stale.pdf\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWriter(dir, false)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(w.Add("1", Duplicates, Record{Filename: "b.pdf", Checksum: "aaa"}))
	must(w.Add("1", Missing, Record{Filename: "c.pdf", Checksum: "ignored"}))
	must(w.Add("1", Duplicates, Record{Filename: "d.pdf", Checksum: "aaa"}))
	must(w.FinishItem("1"))
	must(w.FinishItem("2"))
	must(w.Close())

	if w.Count(Duplicates) != 2 || w.Count(Missing) != 1 {
		t.Errorf("counts: duplicates=%d missing=%d", w.Count(Duplicates), w.Count(Missing))
	}

	for _, stale := range []string{"1.invalid", "2.missing"} {
		if _, err := os.Stat(filepath.Join(dir, stale)); !os.IsNotExist(err) {
			t.Errorf("%s should have been removed", stale)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "1.missing"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "c.pdf\n" {
		t.Errorf("1.missing: got %q", data)
	}

	sets, err := Scan(dir, []Kind{Duplicates, Missing})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(sets) != 1 || sets[0].Item != "1" {
		t.Fatalf("Scan: got %d sets", len(sets))
	}
	want := []Record{{Filename: "b.pdf", Checksum: "aaa"}, {Filename: "d.pdf", Checksum: "aaa"}}
	if diff := cmp.Diff(want, sets[0].Records[Duplicates]); diff != "" {
		t.Errorf("duplicates mismatch (-want +got):\n%s", diff)
	}
	if sets[0].Paths[Missing] != filepath.Join(dir, "1.missing") {
		t.Errorf("missing path: got %q", sets[0].Paths[Missing])
	}
}

func TestWriterLegacy(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Add("7", Invalid, Record{Filename: "a.pdf", Checksum: "abc"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	records, err := ReadFile(filepath.Join(dir, "7.invalid"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Record{{Filename: "a.pdf"}}, records); diff != "" {
		t.Errorf("legacy records mismatch (-want +got):\n%s", diff)
	}
}

func TestRead(t *testing.T) {
	records, err := Read(strings.NewReader("a.pdf\t1\n\nb.pdf\t2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}
