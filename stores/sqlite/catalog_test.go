// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mdhender/datvault/model"
	store "github.com/mdhender/datvault/stores/sqlite"
)

// newTestStore opens an in-memory store and wipes it: the shared-cache
// memory database survives across tests in one process.
func newTestStore(t *testing.T) *store.CatalogStore {
	t.Helper()
	s, err := store.NewCatalogStore()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.WipeAll(context.Background()); err != nil {
		t.Fatalf("wipe: %v", err)
	}
	return s
}

func sampleRecords() []model.Record {
	return []model.Record{
		{
			SourceFile:  "Amiga - Games.dat",
			Collection:  "Amiga",
			Title:       "Game X",
			Description: "Game X (1991)",
			EntryName:   "game x.adf",
			Size:        901120,
			CRC:         "c0ffee00",
			MD5:         "m",
			SHA1:        "s",
			Status:      "good",
			Group:       "Amiga",
		},
		{
			SourceFile:  "C64 - Games.dat",
			Collection:  "C64",
			Title:       "Game Y",
			Description: "Game Y",
			EntryName:   "game y.d64",
			Status:      "baddump",
			Group:       "C64",
		},
	}
}

func TestInsertBatchAndCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.InsertBatch(ctx, sampleRecords()); err != nil {
		t.Fatalf("insert: %v", err)
	}
	n, err := s.CountRecords(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("count: got %d, want 2", n)
	}

	// empty batch is a no-op, not an error
	if err := s.InsertBatch(ctx, nil); err != nil {
		t.Errorf("empty batch: %v", err)
	}
}

func TestProcessedFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	names, err := s.ProcessedFiles(ctx)
	if err != nil {
		t.Fatalf("processed files: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("fresh store should have no processed files, got %d", len(names))
	}

	if err := s.MarkProcessed(ctx, []string{"a.dat", "b.dat"}); err != nil {
		t.Fatalf("mark: %v", err)
	}
	// marking again is idempotent
	if err := s.MarkProcessed(ctx, []string{"b.dat"}); err != nil {
		t.Fatalf("re-mark: %v", err)
	}

	names, err = s.ProcessedFiles(ctx)
	if err != nil {
		t.Fatalf("processed files: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("got %d processed files, want 2", len(names))
	}
	if _, ok := names["a.dat"]; !ok {
		t.Error("a.dat missing from processed set")
	}
}

func TestMetadata(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, ok, err := s.GetMetadata(ctx, model.MetaKeyRelease); err != nil || ok {
		t.Fatalf("absent key: ok=%v err=%v", ok, err)
	}

	if err := s.SetMetadata(ctx, model.MetaKeyRelease, "TOSEC-v2023-08-15"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := s.GetMetadata(ctx, model.MetaKeyRelease)
	if err != nil || !ok || v != "TOSEC-v2023-08-15" {
		t.Fatalf("get: v=%q ok=%v err=%v", v, ok, err)
	}

	// overwrite
	if err := s.SetMetadata(ctx, model.MetaKeyRelease, "TOSEC-v2024-01-01"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v, _, _ := s.GetMetadata(ctx, model.MetaKeyRelease); v != "TOSEC-v2024-01-01" {
		t.Errorf("overwrite: got %q", v)
	}
}

func TestWipeAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.InsertBatch(ctx, sampleRecords()); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.MarkProcessed(ctx, []string{"Amiga - Games.dat"}); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := s.SetMetadata(ctx, model.MetaKeyRelease, "TOSEC-v2023-08-15"); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := s.WipeAll(ctx); err != nil {
		t.Fatalf("wipe: %v", err)
	}

	if n, _ := s.CountRecords(ctx); n != 0 {
		t.Errorf("records after wipe: %d", n)
	}
	if names, _ := s.ProcessedFiles(ctx); len(names) != 0 {
		t.Errorf("processed files after wipe: %d", len(names))
	}
	if _, ok, _ := s.GetMetadata(ctx, model.MetaKeyRelease); ok {
		t.Error("metadata survived the wipe")
	}
}

func TestBulkCSVRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.InsertBatch(ctx, sampleRecords()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	path := filepath.Join(t.TempDir(), "export.csv")
	exported, err := s.ExportCSV(ctx, path, 2)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported != 2 {
		t.Errorf("exported: got %d, want 2", exported)
	}

	dst := newTestStore(t)
	imported, err := dst.ImportCSV(ctx, path, 2)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported != 2 {
		t.Errorf("imported: got %d, want 2", imported)
	}
	if n, _ := dst.CountRecords(ctx); n != 2 {
		t.Errorf("count after import: got %d, want 2", n)
	}
}
