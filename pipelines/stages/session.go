// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import (
	"context"
	"errors"
	"strings"
	"sync"
	"syscall"

	"github.com/mdhender/datvault/model"
	"github.com/mdhender/datvault/pipelines/parsers/datfile"
	"github.com/spf13/afero"
)

// SessionStore is the slice of the catalog store the import session needs.
// Only the session's consumer goroutine ever calls it, which honors the
// store's single-writer constraint by construction.
type SessionStore interface {
	InsertBatch(ctx context.Context, records []model.Record) error
	MarkProcessed(ctx context.Context, fileNames []string) error
}

// Session runs one import: workers parse DAT files, the consumer buffers
// records and flushes them to the store in batches, marking each file
// committed only after its records are durably inserted.
type Session struct {
	store     SessionStore
	fs        afero.Fs
	obs       Observer
	batchSize int
	workers   int

	// owned by the consumer goroutine; workers never touch these
	buffer []model.Record
	stats  model.RunStats
}

// NewSession creates a Session. batchSize below 1 is clamped to 1;
// workers below 2 selects the serial loop.
func NewSession(store SessionStore, batchSize, workers int) *Session {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Session{
		store:     store,
		fs:        afero.NewOsFs(),
		obs:       NopObserver{},
		batchSize: batchSize,
		workers:   workers,
	}
}

// SetFS sets the filesystem for testing.
func (s *Session) SetFS(fsys afero.Fs) {
	s.fs = fsys
}

// SetObserver sets the progress sink. A nil observer is replaced by
// NopObserver.
func (s *Session) SetObserver(obs Observer) {
	if obs == nil {
		obs = NopObserver{}
	}
	s.obs = obs
}

// Run executes the import over work, using all (every discovered file) only
// to weight the progress display. It returns the run totals plus a fatal
// error, if any: parse failures are absorbed into ErrorCount, while
// ErrFatalStorage, ErrResourceLimit, and context cancellation surface to
// the caller.
func (s *Session) Run(ctx context.Context, work, all []model.WorkItem) (model.RunStats, error) {
	var totalBytes, workBytes int64
	for _, item := range all {
		totalBytes += item.Size
	}
	for _, item := range work {
		workBytes += item.Size
	}
	s.obs.OnStart(StartInfo{
		Files:        len(work),
		TotalBytes:   totalBytes,
		InitialBytes: totalBytes - workBytes,
		Workers:      s.workers,
	})

	if len(work) == 0 {
		s.obs.OnFinish(s.stats)
		return s.stats, nil
	}

	var runErr error
	if s.workers < 2 {
		runErr = s.runSerial(ctx, work)
	} else {
		runErr = s.runParallel(ctx, work)
	}

	// Final drain: a partial batch must still be committed. Skipped after a
	// fatal storage error, where no further writes may be attempted. An
	// operator interruption still gets a best-effort drain.
	if runErr == nil || errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		if err := s.flush(context.WithoutCancel(ctx)); err != nil {
			runErr = err
		}
	}

	s.obs.OnFinish(s.stats)
	return s.stats, runErr
}

func (s *Session) runSerial(ctx context.Context, work []model.WorkItem) error {
	for _, item := range work {
		if err := ctx.Err(); err != nil {
			return err
		}
		records, err := datfile.Parse(s.fs, item.Path)
		if err := s.consume(ctx, item, records, err); err != nil {
			return err
		}
	}
	return nil
}

type parseResult struct {
	item    model.WorkItem
	records []model.Record
	err     error
}

func (s *Session) runParallel(ctx context.Context, work []model.WorkItem) error {
	// poolCtx cancellation tells the feeder to stop scheduling queued items
	// and workers to stop picking up new ones. Parses are not preemptible;
	// the context is only checked between items.
	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan model.WorkItem)
	// buffered so abandoned workers can always deliver their last result
	// and exit, even after the consumer has stopped reading
	results := make(chan parseResult, len(work))

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				if poolCtx.Err() != nil {
					return
				}
				records, err := datfile.Parse(s.fs, item.Path)
				results <- parseResult{item: item, records: records, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, item := range work {
			select {
			case jobs <- item:
			case <-poolCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// single consumer: drains completion order, owns buffer and store
	for res := range results {
		if err := s.consume(ctx, res.item, res.records, res.err); err != nil {
			cancel()
			return err
		}
		if err := ctx.Err(); err != nil {
			cancel()
			return err
		}
	}
	return nil
}

// consume handles one completed parse. Parse failures are absorbed into
// the error count; only flush failures escalate.
func (s *Session) consume(ctx context.Context, item model.WorkItem, records []model.Record, parseErr error) error {
	if parseErr != nil {
		s.stats.ErrorCount++
		s.obs.OnFileDone(item, 0, parseErr)
		return nil
	}

	s.buffer = append(s.buffer, records...)
	if len(s.buffer) >= s.batchSize {
		if err := s.flush(ctx); err != nil {
			return err
		}
	}

	s.obs.OnFileDone(item, len(records), nil)
	return nil
}

// flush writes the buffered records in one batch, then marks every distinct
// source file in the buffer as committed, then clears the buffer. The
// ordering is the resume correctness guarantee: a crash between insert and
// mark can at worst cause idempotent re-processing, never silent loss.
func (s *Session) flush(ctx context.Context) error {
	if len(s.buffer) == 0 {
		return nil
	}

	if err := s.store.InsertBatch(ctx, s.buffer); err != nil {
		return s.escalate(err)
	}

	seen := make(map[string]struct{})
	var names []string
	for i := range s.buffer {
		name := s.buffer[i].SourceFile
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	if err := s.store.MarkProcessed(ctx, names); err != nil {
		return s.escalate(err)
	}

	s.stats.TotalRecords += int64(len(s.buffer))
	s.buffer = s.buffer[:0]
	return nil
}

// escalate maps a flush failure to its terminal kind. Full or read-only
// media abort the run distinctly; out-of-memory conditions become a
// configuration hint; anything else propagates as-is.
func (s *Session) escalate(err error) error {
	if model.IsStorageFatal(err) {
		return &ErrFatalStorage{Err: err}
	}
	if isOutOfMemory(err) {
		return &ErrResourceLimit{Workers: s.workers, BatchSize: s.batchSize, Err: err}
	}
	return err
}

func isOutOfMemory(err error) bool {
	if errors.Is(err, syscall.ENOMEM) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "out of memory")
}
