package dedupe

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lehigh-university-libraries/saftools/checksum"
	"github.com/lehigh-university-libraries/saftools/report"
	"github.com/lehigh-university-libraries/saftools/saf"
	"github.com/lehigh-university-libraries/saftools/saftest"
)

func run(t *testing.T, opts Options) (*report.Summary, error) {
	t.Helper()
	return Run(context.Background(), opts)
}

func TestRunCollapsesAndRenumbers(t *testing.T) {
	src := saftest.Build(t, map[string]saftest.Item{
		"1": {
			Contents: "a.pdf\tbundle:ORIGINAL\n" +
				"license.txt\tbundle:LICENSE\n" +
				"b.pdf\tbundle:ORIGINAL\n" +
				"C.PDF\tbundle:ORIGINAL\tdescription:Appendix\n",
			Files: map[string]string{
				"a.pdf":       saftest.PDF("one"),
				"b.pdf":       saftest.PDF("one"),
				"C.PDF":       saftest.PDF("two"),
				"license.txt": "license",
			},
		},
	})

	summary, err := run(t, Options{SourceDir: src})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	item := filepath.Join(src, "1")
	if diff := cmp.Diff([]string{"contents", "document-1.pdf", "document-2.pdf", "license.txt"}, saftest.Names(t, item)); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	if got := saftest.ReadFile(t, filepath.Join(item, "document-1.pdf")); got != saftest.PDF("one") {
		t.Errorf("document-1.pdf has wrong content: %q", got)
	}
	if got := saftest.ReadFile(t, filepath.Join(item, "document-2.pdf")); got != saftest.PDF("two") {
		t.Errorf("document-2.pdf has wrong content: %q", got)
	}

	wantContents := "document-1.pdf\tbundle:ORIGINAL\n" +
		"license.txt\tbundle:LICENSE\n" +
		"document-2.pdf\tbundle:ORIGINAL\tdescription:Appendix\n"
	if got := saftest.ReadFile(t, filepath.Join(item, "contents")); got != wantContents {
		t.Errorf("contents:\ngot  %q\nwant %q", got, wantContents)
	}

	if summary.Count("duplicates") != 1 || summary.Count("changed") != 1 {
		t.Errorf("duplicates=%d changed=%d", summary.Count("duplicates"), summary.Count("changed"))
	}
	if summary.Bytes() != int64(len(saftest.PDF("one"))) {
		t.Errorf("freed: got %d", summary.Bytes())
	}
}

func TestRunIsIdempotent(t *testing.T) {
	src := saftest.Build(t, map[string]saftest.Item{
		"1": {
			Contents: saftest.Contents("x.pdf", "y.pdf"),
			Files:    map[string]string{"x.pdf": saftest.PDF("x"), "y.pdf": saftest.PDF("y")},
		},
	})

	if _, err := run(t, Options{SourceDir: src}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	summary, err := run(t, Options{SourceDir: src})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Count("unchanged") != 1 || summary.Count("changed") != 0 {
		t.Errorf("second run: unchanged=%d changed=%d", summary.Count("unchanged"), summary.Count("changed"))
	}
}

func TestRunPreserveNames(t *testing.T) {
	src := saftest.Build(t, map[string]saftest.Item{
		"1": {
			Contents: saftest.Contents("report.pdf", "copy of report.pdf", "other.pdf"),
			Files: map[string]string{
				"report.pdf":         saftest.PDF("r"),
				"copy of report.pdf": saftest.PDF("r"),
				"other.pdf":          saftest.PDF("o"),
			},
		},
	})

	if _, err := run(t, Options{SourceDir: src, PreserveNames: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	item := filepath.Join(src, "1")
	if diff := cmp.Diff([]string{"contents", "other.pdf", "report.pdf"}, saftest.Names(t, item)); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	if got := saftest.ReadFile(t, filepath.Join(item, "contents")); got != saftest.Contents("report.pdf", "other.pdf") {
		t.Errorf("contents: got %q", got)
	}
}

func TestRunRollsBackOnConflict(t *testing.T) {
	original := saftest.Contents("a.pdf", "b.pdf")
	src := saftest.Build(t, map[string]saftest.Item{
		"1": {
			Contents: original,
			Files: map[string]string{
				"a.pdf": saftest.PDF("same"),
				"b.pdf": saftest.PDF("same"),
				// Not listed, but occupies the first target name.
				"document-1.pdf": "unrelated",
			},
		},
	})

	summary, err := run(t, Options{SourceDir: src})
	if !errors.Is(err, report.ErrItemsFailed) {
		t.Fatalf("expected ErrItemsFailed, got %v", err)
	}
	if summary.Count("rolled back") != 1 {
		t.Errorf("rolled back: got %d", summary.Count("rolled back"))
	}

	item := filepath.Join(src, "1")
	if diff := cmp.Diff([]string{"a.pdf", "b.pdf", "contents", "document-1.pdf"}, saftest.Names(t, item)); diff != "" {
		t.Errorf("files after rollback (-want +got):\n%s", diff)
	}
	for _, name := range []string{"a.pdf", "b.pdf"} {
		if got := saftest.ReadFile(t, filepath.Join(item, name)); got != saftest.PDF("same") {
			t.Errorf("%s content after rollback: %q", name, got)
		}
	}
	if got := saftest.ReadFile(t, filepath.Join(item, "document-1.pdf")); got != "unrelated" {
		t.Errorf("document-1.pdf was modified: %q", got)
	}
	if got := saftest.ReadFile(t, filepath.Join(item, "contents")); got != original {
		t.Errorf("contents changed: %q", got)
	}
}

func TestApplyRollbackErrorWrapsSentinel(t *testing.T) {
	src := saftest.Build(t, map[string]saftest.Item{
		"1": {
			Contents: saftest.Contents("a.pdf"),
			Files:    map[string]string{"a.pdf": saftest.PDF("a"), "document-1.pdf": "taken"},
		},
	})
	item := saf.Item{Name: "1", Path: filepath.Join(src, "1")}

	plan, err := PlanItem(item, Options{})
	if err != nil {
		t.Fatalf("PlanItem: %v", err)
	}
	if _, err := Apply(plan, Options{}); !errors.Is(err, ErrRolledBack) {
		t.Fatalf("Apply: expected ErrRolledBack, got %v", err)
	}
	if !saftest.Exists(filepath.Join(src, "1", "a.pdf")) {
		t.Error("a.pdf should be restored")
	}
}

func TestRunDuplicateAlreadyChecksumNamed(t *testing.T) {
	body := saftest.PDF("dup")
	algo, _ := checksum.Get("md5")
	sum, err := checksum.Sum(strings.NewReader(body), algo)
	if err != nil {
		t.Fatal(err)
	}

	src := saftest.Build(t, map[string]saftest.Item{
		"1": {
			Contents: saftest.Contents("first.pdf", sum+".pdf"),
			Files:    map[string]string{"first.pdf": body, sum + ".pdf": body},
		},
	})

	if _, err := run(t, Options{SourceDir: src}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	item := filepath.Join(src, "1")
	if diff := cmp.Diff([]string{"contents", "document-1.pdf"}, saftest.Names(t, item)); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestRunMissingFiles(t *testing.T) {
	build := func(t *testing.T) string {
		return saftest.Build(t, map[string]saftest.Item{
			"1": {
				Contents: saftest.Contents("gone.pdf", "here.pdf"),
				Files:    map[string]string{"here.pdf": saftest.PDF("h")},
			},
		})
	}

	t.Run("kept", func(t *testing.T) {
		src := build(t)
		summary, err := run(t, Options{SourceDir: src})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if got := saftest.ReadFile(t, filepath.Join(src, "1", "contents")); got != saftest.Contents("gone.pdf", "document-1.pdf") {
			t.Errorf("contents: got %q", got)
		}
		if summary.Count("missing") != 1 {
			t.Errorf("missing: got %d", summary.Count("missing"))
		}
	})

	t.Run("dropped", func(t *testing.T) {
		src := build(t)
		if _, err := run(t, Options{SourceDir: src, DropMissing: true}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if got := saftest.ReadFile(t, filepath.Join(src, "1", "contents")); got != saftest.Contents("document-1.pdf") {
			t.Errorf("contents: got %q", got)
		}
	})
}

func TestRunRepeatedLines(t *testing.T) {
	src := saftest.Build(t, map[string]saftest.Item{
		"1": {
			Contents: saftest.Contents("document-1.pdf", "document-1.pdf"),
			Files:    map[string]string{"document-1.pdf": saftest.PDF("only")},
		},
	})

	if _, err := run(t, Options{SourceDir: src}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := saftest.ReadFile(t, filepath.Join(src, "1", "contents")); got != saftest.Contents("document-1.pdf") {
		t.Errorf("contents: got %q", got)
	}
}

func TestRunDryRun(t *testing.T) {
	contents := saftest.Contents("a.pdf", "b.pdf")
	src := saftest.Build(t, map[string]saftest.Item{
		"1": {
			Contents: contents,
			Files:    map[string]string{"a.pdf": saftest.PDF("s"), "b.pdf": saftest.PDF("s")},
		},
	})

	summary, err := run(t, Options{SourceDir: src, DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"a.pdf", "b.pdf", "contents"}, saftest.Names(t, filepath.Join(src, "1"))); diff != "" {
		t.Errorf("dry run changed files (-want +got):\n%s", diff)
	}
	if summary.Count("changed") != 1 || summary.Count("duplicates") != 1 {
		t.Errorf("changed=%d duplicates=%d", summary.Count("changed"), summary.Count("duplicates"))
	}
}

func TestRunBundleAndStart(t *testing.T) {
	src := saftest.Build(t, map[string]saftest.Item{
		"1": {
			Contents: "a.pdf\tbundle:ORIGINAL\nthumb.jpg\tbundle:THUMBNAIL\n",
			Files:    map[string]string{"a.pdf": saftest.PDF("a"), "thumb.jpg": "jpg"},
		},
	})

	if _, err := run(t, Options{SourceDir: src, Start: 5, Prefix: "file_"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "file_5.pdf\tbundle:ORIGINAL\nthumb.jpg\tbundle:THUMBNAIL\n"
	if got := saftest.ReadFile(t, filepath.Join(src, "1", "contents")); got != want {
		t.Errorf("contents: got %q, want %q", got, want)
	}
}

func TestRunOtherBundlesFollowRenames(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		files    map[string]string
		want     string
		wantDir  []string
	}{
		{
			name:     "same file in two bundles",
			contents: "a.pdf\tbundle:ORIGINAL\na.pdf\tbundle:TEXT\n",
			files:    map[string]string{"a.pdf": saftest.PDF("a")},
			want:     "document-1.pdf\tbundle:ORIGINAL\ndocument-1.pdf\tbundle:TEXT\n",
			wantDir:  []string{"contents", "document-1.pdf"},
		},
		{
			name: "removed duplicate listed elsewhere",
			contents: "a.pdf\tbundle:ORIGINAL\n" +
				"b.pdf\tbundle:ORIGINAL\n" +
				"a.pdf\tbundle:TEXT\n" +
				"b.pdf\tbundle:TEXT\tdescription:copy\n" +
				"c.pdf\tbundle:TEXT\n",
			files: map[string]string{
				"a.pdf": saftest.PDF("same"),
				"b.pdf": saftest.PDF("same"),
				"c.pdf": saftest.PDF("c"),
			},
			want: "document-1.pdf\tbundle:ORIGINAL\n" +
				"document-1.pdf\tbundle:TEXT\n" +
				"document-1.pdf\tbundle:TEXT\tdescription:copy\n" +
				"c.pdf\tbundle:TEXT\n",
			wantDir: []string{"c.pdf", "contents", "document-1.pdf"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := saftest.Build(t, map[string]saftest.Item{
				"1": {Contents: tt.contents, Files: tt.files},
			})
			if _, err := run(t, Options{SourceDir: src}); err != nil {
				t.Fatalf("Run: %v", err)
			}

			item := filepath.Join(src, "1")
			if got := saftest.ReadFile(t, filepath.Join(item, "contents")); got != tt.want {
				t.Errorf("contents:\ngot  %q\nwant %q", got, tt.want)
			}
			if diff := cmp.Diff(tt.wantDir, saftest.Names(t, item)); diff != "" {
				t.Errorf("files mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
