package batcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lehigh-university-libraries/saftools/saftest"
)

func items(names ...string) map[string]saftest.Item {
	m := make(map[string]saftest.Item, len(names))
	for _, n := range names {
		m[n] = saftest.Item{Contents: saftest.Contents("a.pdf"), Files: map[string]string{"a.pdf": saftest.PDF(n)}}
	}
	return m
}

func TestName(t *testing.T) {
	tests := []struct {
		prefix string
		n, pad int
		want   string
	}{
		{"batch_", 1, 3, "batch_001"},
		{"batch_", 12, 2, "batch_12"},
		{"b", 1234, 3, "b1234"},
	}
	for _, tt := range tests {
		if got := Name(tt.prefix, tt.n, tt.pad); got != tt.want {
			t.Errorf("Name(%q, %d, %d): got %q, want %q", tt.prefix, tt.n, tt.pad, got, tt.want)
		}
	}
}

func TestRunInPlace(t *testing.T) {
	src := saftest.Build(t, items("1", "2", "3", "4", "5"))

	summary, err := Run(context.Background(), Options{SourceDir: src, Size: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if diff := cmp.Diff([]string{"batch_001", "batch_002", "batch_003"}, saftest.Names(t, src)); diff != "" {
		t.Errorf("batches mismatch (-want +got):\n%s", diff)
	}
	want := map[string][]string{
		"batch_001": {"1", "2"},
		"batch_002": {"3", "4"},
		"batch_003": {"5"},
	}
	for batch, names := range want {
		if diff := cmp.Diff(names, saftest.Names(t, filepath.Join(src, batch))); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", batch, diff)
		}
	}
	if summary.Count("moved") != 5 || summary.Count("batches") != 3 {
		t.Errorf("moved=%d batches=%d", summary.Count("moved"), summary.Count("batches"))
	}
}

func TestRunResumes(t *testing.T) {
	src := saftest.Build(t, items("1", "2", "3"))
	if _, err := Run(context.Background(), Options{SourceDir: src, Size: 2}); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	saftest.WriteItem(t, src, "4", items("4")["4"])
	if _, err := Run(context.Background(), Options{SourceDir: src, Size: 2}); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if diff := cmp.Diff([]string{"batch_001", "batch_002", "batch_003"}, saftest.Names(t, src)); diff != "" {
		t.Errorf("batches mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"4"}, saftest.Names(t, filepath.Join(src, "batch_003"))); diff != "" {
		t.Errorf("batch_003 mismatch (-want +got):\n%s", diff)
	}
}

func TestRunOutputDir(t *testing.T) {
	src := saftest.Build(t, items("a", "b"))
	out := filepath.Join(t.TempDir(), "batches")

	if _, err := Run(context.Background(), Options{SourceDir: src, OutputDir: out, Size: 5, Prefix: "set-", Pad: 2}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if names := saftest.Names(t, src); len(names) != 0 {
		t.Errorf("source should be empty, got %v", names)
	}
	if diff := cmp.Diff([]string{"a", "b"}, saftest.Names(t, filepath.Join(out, "set-01"))); diff != "" {
		t.Errorf("set-01 mismatch (-want +got):\n%s", diff)
	}
}

func TestRunDryRun(t *testing.T) {
	src := saftest.Build(t, items("1", "2"))

	summary, err := Run(context.Background(), Options{SourceDir: src, Size: 1, DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"1", "2"}, saftest.Names(t, src)); diff != "" {
		t.Errorf("dry run changed the source (-want +got):\n%s", diff)
	}
	if summary.Count("batches") != 2 {
		t.Errorf("batches: got %d", summary.Count("batches"))
	}
}

func TestPlanRejectsBadSize(t *testing.T) {
	src := saftest.Build(t, items("1"))
	for _, size := range []int{0, -3} {
		if _, err := Plan(Options{SourceDir: src, Size: size}); err == nil {
			t.Errorf("size %d: expected error", size)
		}
	}
}

func TestPlanSkipsOutputInsideSource(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"direct child", "out"},
		{"nested below an item", filepath.Join("out", "batches")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := saftest.Build(t, items("1", "2"))
			out := filepath.Join(src, tt.output)
			if err := os.MkdirAll(out, 0755); err != nil {
				t.Fatal(err)
			}

			batches, err := Plan(Options{SourceDir: src, OutputDir: out, Size: 10})
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			if len(batches) != 1 || len(batches[0].Items) != 2 {
				t.Fatalf("got %+v", batches)
			}
			for _, item := range batches[0].Items {
				if item.Name == "out" {
					t.Error("directory holding the output was planned as an item")
				}
			}
		})
	}
}

func TestRunOutputNestedInSource(t *testing.T) {
	src := saftest.Build(t, items("1", "2"))
	out := filepath.Join(src, "out", "batches")
	if err := os.MkdirAll(out, 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := Run(context.Background(), Options{SourceDir: src, OutputDir: out, Size: 10}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"out"}, saftest.Names(t, src)); diff != "" {
		t.Errorf("source mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2"}, saftest.Names(t, filepath.Join(out, "batch_001"))); diff != "" {
		t.Errorf("batch_001 mismatch (-want +got):\n%s", diff)
	}
}
