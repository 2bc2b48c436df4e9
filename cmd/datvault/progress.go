// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"log"

	"github.com/mdhender/datvault/model"
	"github.com/mdhender/datvault/pipelines/stages"
)

// logObserver reports progress through the standard logger: one line per
// whole percent of byte weight, plus every per-file failure with its path
// and cause.
type logObserver struct {
	totalBytes int64
	doneBytes  int64
	lastPct    int
	records    int64
	errors     int
}

func newLogObserver() *logObserver {
	return &logObserver{lastPct: -1}
}

func (o *logObserver) OnStart(info stages.StartInfo) {
	o.totalBytes = info.TotalBytes
	o.doneBytes = info.InitialBytes
	log.Printf("importing %d files with %d worker(s)\n", info.Files, info.Workers)
}

func (o *logObserver) OnFileDone(item model.WorkItem, records int, err error) {
	o.doneBytes += item.Size
	if err != nil {
		o.errors++
		log.Printf("failed: %s: %v\n", item.Path, err)
	} else {
		o.records += int64(records)
	}

	if o.totalBytes <= 0 {
		return
	}
	pct := int(o.doneBytes * 100 / o.totalBytes)
	if pct == o.lastPct {
		return
	}
	o.lastPct = pct
	log.Printf("%3d%% (%d records, %d errors)\n", pct, o.records, o.errors)
}

func (o *logObserver) OnFinish(stats model.RunStats) {
	log.Printf("done: %d records, %d errors\n", stats.TotalRecords, stats.ErrorCount)
}
