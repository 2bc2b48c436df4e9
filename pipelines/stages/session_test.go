// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/mdhender/datvault/model"
	"github.com/mdhender/datvault/pipelines/stages"
	"github.com/spf13/afero"
)

func writeDAT(t *testing.T, fs afero.Fs, path, content string) model.WorkItem {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	info, err := fs.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return model.WorkItem{Path: path, Size: info.Size()}
}

// xmlDAT builds a small XML DAT with games numbered games x roms each.
func xmlDAT(games, roms int, prefix string) string {
	s := "<datafile>\n"
	for g := 0; g < games; g++ {
		s += fmt.Sprintf("<game name=%q>\n", fmt.Sprintf("%s game %d", prefix, g))
		for r := 0; r < roms; r++ {
			s += fmt.Sprintf("<rom name=%q size=\"100\"/>\n", fmt.Sprintf("%s-%d-%d.rom", prefix, g, r))
		}
		s += "</game>\n"
	}
	return s + "</datafile>\n"
}

// countObserver records everything the session reports.
type countObserver struct {
	mu      sync.Mutex
	started stages.StartInfo
	done    int
	failed  []string
	stats   model.RunStats
}

func (o *countObserver) OnStart(info stages.StartInfo) { o.started = info }

func (o *countObserver) OnFileDone(item model.WorkItem, records int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.done++
	if err != nil {
		o.failed = append(o.failed, item.Path)
	}
}

func (o *countObserver) OnFinish(stats model.RunStats) { o.stats = stats }

// Example scenario: A has 2 games x 1 rom, B has 1 game with 0 roms.
// Batch size 1. Expect 2 records, all from A, no errors.
func TestSessionExampleScenario(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := writeDAT(t, fs, "/dats/A - Games (1).dat", xmlDAT(2, 1, "a"))
	b := writeDAT(t, fs, "/dats/B - Apps (2).dat", xmlDAT(1, 0, "b"))
	work := []model.WorkItem{a, b}

	db := newMemStore()
	session := stages.NewSession(db, 1, 1)
	session.SetFS(fs)
	obs := &countObserver{}
	session.SetObserver(obs)

	stats, err := session.Run(context.Background(), work, work)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.TotalRecords != 2 {
		t.Errorf("total records: got %d, want 2", stats.TotalRecords)
	}
	if stats.ErrorCount != 0 {
		t.Errorf("error count: got %d, want 0", stats.ErrorCount)
	}
	if len(db.records) != 2 {
		t.Errorf("stored records: got %d, want 2", len(db.records))
	}
	for _, r := range db.records {
		if r.SourceFile != "A - Games (1).dat" {
			t.Errorf("record from unexpected file %q", r.SourceFile)
		}
	}
	// B produced no records but still counts as processed once A's flush
	// or the final drain runs; with batch size 1 both of A's parses flush,
	// and B contributes nothing to any buffer, so only A is marked.
	if _, ok := db.processed["A - Games (1).dat"]; !ok {
		t.Error("A should be marked processed")
	}
	if obs.done != 2 {
		t.Errorf("observer saw %d files, want 2", obs.done)
	}
}

func TestSessionZeroWork(t *testing.T) {
	db := newMemStore()
	session := stages.NewSession(db, 10, 1)

	stats, err := session.Run(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.TotalRecords != 0 || stats.ErrorCount != 0 {
		t.Errorf("stats: got %+v, want zeros", stats)
	}
	if len(db.records) != 0 || len(db.processed) != 0 || db.wipes != 0 {
		t.Error("zero work must not mutate the store")
	}
}

func TestSessionCountsParseErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	good := writeDAT(t, fs, "/dats/Good - Set.dat", xmlDAT(1, 2, "g"))
	bad := writeDAT(t, fs, "/dats/Bad - Set.dat", "<datafile><game name=\"x\"")
	work := []model.WorkItem{good, bad}

	db := newMemStore()
	session := stages.NewSession(db, 100, 1)
	session.SetFS(fs)
	obs := &countObserver{}
	session.SetObserver(obs)

	stats, err := session.Run(context.Background(), work, work)
	if err != nil {
		t.Fatalf("a parse failure must not fail the run: %v", err)
	}
	if stats.ErrorCount != 1 {
		t.Errorf("error count: got %d, want 1", stats.ErrorCount)
	}
	if stats.TotalRecords != 2 {
		t.Errorf("total records: got %d, want 2", stats.TotalRecords)
	}
	if len(obs.failed) != 1 || obs.failed[0] != "/dats/Bad - Set.dat" {
		t.Errorf("observer failures: got %v", obs.failed)
	}
	if _, ok := db.processed["Bad - Set.dat"]; ok {
		t.Error("a failed file must never be marked processed")
	}
}

// Final drain: with a batch size larger than the record count, nothing
// flushes mid-run and everything rides on the end-of-run drain.
func TestSessionFinalDrain(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := writeDAT(t, fs, "/dats/A - Games.dat", xmlDAT(3, 2, "a"))
	work := []model.WorkItem{a}

	db := newMemStore()
	session := stages.NewSession(db, 1000, 1)
	session.SetFS(fs)

	stats, err := session.Run(context.Background(), work, work)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.TotalRecords != 6 {
		t.Errorf("total records: got %d, want 6", stats.TotalRecords)
	}
	if _, ok := db.processed["A - Games.dat"]; !ok {
		t.Error("final drain must mark the file processed")
	}
}

func TestSessionFatalStorageShortCircuit(t *testing.T) {
	fs := afero.NewMemMapFs()
	var work []model.WorkItem
	for i := 0; i < 8; i++ {
		work = append(work, writeDAT(t, fs, fmt.Sprintf("/dats/Set %d - Games.dat", i), xmlDAT(1, 1, fmt.Sprintf("s%d", i))))
	}

	db := newMemStore()
	db.insertErr = &model.StorageError{
		Kind: model.StorageFull,
		Op:   "insert batch",
		Err:  errors.New("database or disk is full: not enough space"),
	}

	session := stages.NewSession(db, 1, 1)
	session.SetFS(fs)

	stats, err := session.Run(context.Background(), work, work)
	var fatal *stages.ErrFatalStorage
	if !errors.As(err, &fatal) {
		t.Fatalf("expected ErrFatalStorage, got %v", err)
	}
	if len(db.processed) != 0 {
		t.Error("the in-flight batch's files must not be marked committed")
	}
	if stats.TotalRecords != 0 {
		t.Errorf("no records may be counted as written, got %d", stats.TotalRecords)
	}
	if len(db.records) != 0 {
		t.Errorf("store must hold nothing after the aborted flush, got %d", len(db.records))
	}
}

func TestSessionFatalStorageParallel(t *testing.T) {
	fs := afero.NewMemMapFs()
	var work []model.WorkItem
	for i := 0; i < 16; i++ {
		work = append(work, writeDAT(t, fs, fmt.Sprintf("/dats/Set %d - Games.dat", i), xmlDAT(1, 1, fmt.Sprintf("s%d", i))))
	}

	db := newMemStore()
	db.insertErr = &model.StorageError{
		Kind: model.StorageReadOnly,
		Op:   "insert batch",
		Err:  errors.New("attempt to write a readonly database"),
	}

	session := stages.NewSession(db, 1, 4)
	session.SetFS(fs)

	_, err := session.Run(context.Background(), work, work)
	var fatal *stages.ErrFatalStorage
	if !errors.As(err, &fatal) {
		t.Fatalf("expected ErrFatalStorage, got %v", err)
	}
	if len(db.processed) != 0 {
		t.Error("no file may be marked committed after the abort")
	}
}

func TestSessionResourceLimit(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := writeDAT(t, fs, "/dats/A - Games.dat", xmlDAT(1, 1, "a"))

	db := newMemStore()
	db.insertErr = &model.StorageError{
		Kind: model.StorageOther,
		Op:   "insert batch",
		Err:  errors.New("out of memory"),
	}

	session := stages.NewSession(db, 1, 1)
	session.SetFS(fs)

	_, err := session.Run(context.Background(), []model.WorkItem{a}, []model.WorkItem{a})
	var limit *stages.ErrResourceLimit
	if !errors.As(err, &limit) {
		t.Fatalf("expected ErrResourceLimit, got %v", err)
	}
}

func TestSessionSerialParallelSameContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	var work []model.WorkItem
	for i := 0; i < 10; i++ {
		work = append(work, writeDAT(t, fs, fmt.Sprintf("/dats/g%d/Set %d - Games.dat", i, i), xmlDAT(2, 3, fmt.Sprintf("s%d", i))))
	}

	serial := newMemStore()
	s1 := stages.NewSession(serial, 7, 1)
	s1.SetFS(fs)
	if _, err := s1.Run(context.Background(), work, work); err != nil {
		t.Fatalf("serial run: %v", err)
	}

	parallel := newMemStore()
	s2 := stages.NewSession(parallel, 7, 4)
	s2.SetFS(fs)
	if _, err := s2.Run(context.Background(), work, work); err != nil {
		t.Fatalf("parallel run: %v", err)
	}

	got, want := parallel.entryNames(), serial.entryNames()
	if len(got) != len(want) {
		t.Fatalf("record counts differ: parallel %d, serial %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("record sets differ at %d: %q vs %q", i, got[i], want[i])
		}
	}
}

// interruptStore cancels the run's context after the first successful
// commit mark, simulating an operator interrupt mid-run.
type interruptStore struct {
	*memStore
	cancel context.CancelFunc
	once   sync.Once
}

func (s *interruptStore) MarkProcessed(ctx context.Context, names []string) error {
	if err := s.memStore.MarkProcessed(ctx, names); err != nil {
		return err
	}
	s.once.Do(s.cancel)
	return nil
}

func TestSessionIdempotentResume(t *testing.T) {
	fs := afero.NewMemMapFs()
	var files []model.WorkItem
	for i := 0; i < 6; i++ {
		files = append(files, writeDAT(t, fs, fmt.Sprintf("/dats/g/Set %d - Games.dat", i), xmlDAT(1, 2, fmt.Sprintf("s%d", i))))
	}

	// baseline: one uninterrupted run
	baseline := newMemStore()
	s0 := stages.NewSession(baseline, 2, 1)
	s0.SetFS(fs)
	if _, err := s0.Run(context.Background(), files, files); err != nil {
		t.Fatalf("baseline run: %v", err)
	}

	// interrupted run: cancel fires after the first flush commits
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	db := newMemStore()
	s1 := stages.NewSession(&interruptStore{memStore: db, cancel: cancel}, 2, 1)
	s1.SetFS(fs)
	_, err := s1.Run(ctx, files, files)
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("interrupted run: %v", err)
	}
	if len(db.processed) == 0 {
		t.Fatal("test needs at least one flush before the interrupt")
	}
	if len(db.processed) == len(files) {
		t.Fatal("interrupt fired too late to exercise resume")
	}

	// resume: plan against the same store, run the remainder
	plan, err := stages.PlanRun(context.Background(), db, files, model.ReleaseUnknown, stages.PreferResume, nil)
	if err != nil {
		t.Fatalf("resume plan: %v", err)
	}
	s2 := stages.NewSession(db, 2, 1)
	s2.SetFS(fs)
	if _, err := s2.Run(context.Background(), plan.Work, plan.All); err != nil {
		t.Fatalf("resume run: %v", err)
	}

	got, want := db.entryNames(), baseline.entryNames()
	if len(got) != len(want) {
		t.Fatalf("resumed store has %d records, baseline %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("record sets differ at %d: %q vs %q", i, got[i], want[i])
		}
	}
}
