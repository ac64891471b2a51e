package finder

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lehigh-university-libraries/saftools/checksum"
	"github.com/lehigh-university-libraries/saftools/problem"
	"github.com/lehigh-university-libraries/saftools/report"
	"github.com/lehigh-university-libraries/saftools/saftest"
)

func md5Of(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	saftest.WriteFile(t, path, body)
	algo, _ := checksum.Get("md5")
	sum, err := checksum.File(path, algo)
	if err != nil {
		t.Fatal(err)
	}
	return sum
}

func TestRunFindsEachKind(t *testing.T) {
	src := saftest.Build(t, map[string]saftest.Item{
		"1": {
			Contents: saftest.Contents("a.pdf", "b.pdf", "c.pdf", "gone.pdf", "notes.txt"),
			Files: map[string]string{
				"a.pdf":     saftest.PDF("one"),
				"b.pdf":     saftest.PDF("one"),
				"c.pdf":     saftest.HTML,
				"notes.txt": "not checked",
			},
		},
		"2": {
			Contents: saftest.Contents("x.pdf"),
			Files:    map[string]string{"x.pdf": saftest.PDF("two")},
		},
		"3": {Files: map[string]string{"orphan.pdf": saftest.PDF("three")}},
	})
	out := filepath.Join(t.TempDir(), "checksums")

	summary, err := Run(context.Background(), Options{SourceDir: src, WriteDir: out})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if diff := cmp.Diff([]string{"1.duplicates", "1.invalid", "1.missing"}, saftest.Names(t, out)); diff != "" {
		t.Errorf("problem files mismatch (-want +got):\n%s", diff)
	}

	if got := saftest.ReadFile(t, filepath.Join(out, "1.duplicates")); got != "b.pdf\t"+md5Of(t, saftest.PDF("one"))+"\n" {
		t.Errorf("1.duplicates: got %q", got)
	}
	if got := saftest.ReadFile(t, filepath.Join(out, "1.invalid")); got != "c.pdf\t"+md5Of(t, saftest.HTML)+"\n" {
		t.Errorf("1.invalid: got %q", got)
	}
	if got := saftest.ReadFile(t, filepath.Join(out, "1.missing")); got != "gone.pdf\n" {
		t.Errorf("1.missing: got %q", got)
	}

	wantCounts := map[string]int{"items": 2, "skipped": 1, "files": 5, "missing": 1, "invalid": 1, "duplicates": 1}
	for name, want := range wantCounts {
		if got := summary.Count(name); got != want {
			t.Errorf("counter %s: got %d, want %d", name, got, want)
		}
	}
}

func TestRunOverwritesPreviousOutput(t *testing.T) {
	src := saftest.Build(t, map[string]saftest.Item{
		"1": {
			Contents: saftest.Contents("a.pdf"),
			Files:    map[string]string{"a.pdf": saftest.PDF("one")},
		},
	})
	out := t.TempDir()
	saftest.WriteFile(t, filepath.Join(out, "1.invalid"), "a.pdf\tstale\n")
	saftest.WriteFile(t, filepath.Join(out, "99.missing"), "untouched.pdf\n")

	if _, err := Run(context.Background(), Options{SourceDir: src, WriteDir: out}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if saftest.Exists(filepath.Join(out, "1.invalid")) {
		t.Error("stale 1.invalid should be removed once item 1 is clean")
	}
	if !saftest.Exists(filepath.Join(out, "99.missing")) {
		t.Error("problem files of items not in the source should be left alone")
	}
}

func TestRunFirstOccurrenceWins(t *testing.T) {
	src := saftest.Build(t, map[string]saftest.Item{
		"5": {
			Contents: saftest.Contents("z.pdf", "a.pdf", "m.pdf"),
			Files: map[string]string{
				"z.pdf": saftest.PDF("same"),
				"a.pdf": saftest.PDF("same"),
				"m.pdf": saftest.PDF("same"),
			},
		},
	})
	out := t.TempDir()

	if _, err := Run(context.Background(), Options{SourceDir: src, WriteDir: out, Legacy: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	records, err := problem.ReadFile(filepath.Join(out, "5.duplicates"))
	if err != nil {
		t.Fatal(err)
	}
	want := []problem.Record{{Filename: "a.pdf"}, {Filename: "m.pdf"}}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("duplicates mismatch (-want +got):\n%s", diff)
	}
}

func TestRunReportsItemFailures(t *testing.T) {
	src := saftest.Build(t, map[string]saftest.Item{
		"1": {Contents: "\tbundle:ORIGINAL\n"},
		"2": {
			Contents: saftest.Contents("a.pdf"),
			Files:    map[string]string{"a.pdf": saftest.PDF("ok")},
		},
	})

	summary, err := Run(context.Background(), Options{SourceDir: src, WriteDir: t.TempDir()})
	if !errors.Is(err, report.ErrItemsFailed) {
		t.Fatalf("expected ErrItemsFailed, got %v", err)
	}
	if len(summary.Errors()) != 1 || summary.Errors()[0].Item != "1" {
		t.Errorf("errors: got %+v", summary.Errors())
	}
	if summary.Count("items") != 1 {
		t.Errorf("item 2 should still be scanned, items=%d", summary.Count("items"))
	}
}

func TestRunBadSource(t *testing.T) {
	_, err := Run(context.Background(), Options{SourceDir: filepath.Join(t.TempDir(), "absent"), WriteDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected error for missing source directory")
	}
}

func TestRunCancelled(t *testing.T) {
	src := saftest.Build(t, map[string]saftest.Item{
		"1": {Contents: saftest.Contents("a.pdf"), Files: map[string]string{"a.pdf": saftest.PDF("x")}},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Run(ctx, Options{SourceDir: src, WriteDir: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
