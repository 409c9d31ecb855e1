package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()

	cat, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = cat.Close() })
	return cat
}

func TestOpenCreatesDatabase(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "out")

	cat, err := Open(root)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer cat.Close()

	if _, err := os.Stat(filepath.Join(root, Filename)); err != nil {
		t.Errorf("database file not created: %v", err)
	}
	if cat.Path() != filepath.Join(root, Filename) {
		t.Errorf("Path() = %q", cat.Path())
	}
}

func TestRunLifecycle(t *testing.T) {
	cat := openTestCatalog(t)
	ctx := context.Background()

	runID, err := cat.StartRun(ctx)
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if runID == "" {
		t.Fatal("StartRun returned an empty id")
	}

	records := []Record{
		{RunID: runID, Site: "001", Patient: "P0001", InputPath: "/in/a.img",
			OutputDir: "/out/a", Status: "OK", Filesize: 24,
			Shape: "(2, 3, 4)", Spacing: "(3, 0.666667, 1.5)",
			Mean: 12.5, StdDev: 7.07, Min: 0, Max: 23, HasStats: true, NiftiWritten: true},
		{RunID: runID, Site: "001", Patient: "P0002", InputPath: "/in/b.img",
			OutputDir: "/out/b", Status: "SKIP", Message: "/in/b.img"},
		{RunID: runID, Site: "002", Patient: "P0003", InputPath: "/in/c.img",
			OutputDir: "/out/c", Status: "ERR", Message: "/in/c.img :: size mismatch"},
	}
	for _, rec := range records {
		if err := cat.RecordConversion(ctx, rec); err != nil {
			t.Fatalf("RecordConversion failed: %v", err)
		}
	}

	counts, err := cat.StatusCounts(ctx, runID)
	if err != nil {
		t.Fatalf("StatusCounts failed: %v", err)
	}
	if counts["OK"] != 1 || counts["SKIP"] != 1 || counts["ERR"] != 1 {
		t.Errorf("counts = %v, want one of each", counts)
	}

	if err := cat.FinishRun(ctx, runID, 1, 1, 1, 3); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
}

func TestStatusCountsScopedToRun(t *testing.T) {
	cat := openTestCatalog(t)
	ctx := context.Background()

	first, err := cat.StartRun(ctx)
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	second, err := cat.StartRun(ctx)
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	if err := cat.RecordConversion(ctx, Record{
		RunID: first, InputPath: "/in/a.img", OutputDir: "/out/a", Status: "OK",
	}); err != nil {
		t.Fatalf("RecordConversion failed: %v", err)
	}

	counts, err := cat.StatusCounts(ctx, second)
	if err != nil {
		t.Fatalf("StatusCounts failed: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("counts for an empty run = %v, want none", counts)
	}
}

func TestCloseNil(t *testing.T) {
	var cat *Catalog
	if err := cat.Close(); err != nil {
		t.Errorf("Close on nil catalog = %v, want nil", err)
	}
}
