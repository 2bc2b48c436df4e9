// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import "github.com/mdhender/datvault/model"

// StartInfo describes the shape of a run before the first file is parsed.
// InitialBytes is the weight of files committed by earlier runs, so a
// resumed progress display does not restart from zero.
type StartInfo struct {
	Files        int
	TotalBytes   int64
	InitialBytes int64
	Workers      int
}

// Observer receives progress and structured error reports from the import
// session, independent of any console output. Implementations are called
// only from the session's consumer goroutine.
type Observer interface {
	OnStart(info StartInfo)
	// OnFileDone fires once per work item, success or failure; err is nil
	// on success. Byte progress advances either way so the display reaches
	// 100% even when files fail.
	OnFileDone(item model.WorkItem, records int, err error)
	OnFinish(stats model.RunStats)
}

// NopObserver discards all reports.
type NopObserver struct{}

func (NopObserver) OnStart(StartInfo) {}

func (NopObserver) OnFileDone(model.WorkItem, int, error) {}

func (NopObserver) OnFinish(model.RunStats) {}
