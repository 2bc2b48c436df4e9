// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import (
	"context"
	"regexp"

	"github.com/mdhender/datvault/model"
)

// Preference is the caller's choice between resuming a prior run and
// starting fresh.
type Preference int

const (
	PreferAsk    Preference = iota // delegate to the Decider
	PreferResume                   // skip committed files
	PreferFresh                    // wipe and reimport everything
)

// Decision is a Decider's answer.
type Decision int

const (
	DecideResume Decision = iota
	DecideFresh
	DecideAbort
)

// Decider answers the planner's interactive questions. The CLI owns the
// actual prompt; tests supply a canned answer.
type Decider func(q Question) Decision

// Question is what the planner needs decided.
type Question struct {
	// Mismatch is true when the stored release differs from the detected
	// one. A fresh start is then required to proceed.
	Mismatch       bool
	StoredRelease  string
	CurrentRelease string
	ProcessedCount int
}

// PlannerStore is the slice of the catalog store the planner needs.
type PlannerStore interface {
	ProcessedFiles(ctx context.Context) (map[string]struct{}, error)
	GetMetadata(ctx context.Context, key string) (string, bool, error)
	SetMetadata(ctx context.Context, key, value string) error
	WipeAll(ctx context.Context) error
}

// Plan is the outcome of resume planning.
type Plan struct {
	Work    []model.WorkItem // files still to be parsed
	All     []model.WorkItem // every discovered file, for progress weighting
	Fresh   bool             // true when prior data was wiped
	Release string           // detected release tag, already stored
	Skipped int              // files dropped because they were committed
}

// releaseTagPattern matches the date-stamped release tag in an input path,
// e.g. "TOSEC-v2023-08-15".
var releaseTagPattern = regexp.MustCompile(`(?i)(TOSEC-v\d{4}-\d{2}-\d{2})`)

// ExtractReleaseTag pulls the catalog release tag out of the input
// directory path. No match yields the "Unknown" sentinel, which still
// compares for equality against future runs.
func ExtractReleaseTag(path string) string {
	if m := releaseTagPattern.FindString(path); m != "" {
		return m
	}
	return model.ReleaseUnknown
}

// PlanRun decides the working file list and whether prior data is wiped.
//
// On a release mismatch the default is to refuse: only an explicit
// PreferFresh, or a Decider answering DecideFresh, wipes the store. With a
// matching release and prior progress the default bias is resume.
//
// Resume matching is by base name only (see baseName).
func PlanRun(ctx context.Context, store PlannerStore, files []model.WorkItem, release string, pref Preference, ask Decider) (*Plan, error) {
	stored, haveStored, err := store.GetMetadata(ctx, model.MetaKeyRelease)
	if err != nil {
		return nil, err
	}

	processed, err := store.ProcessedFiles(ctx)
	if err != nil {
		return nil, err
	}

	resume := false
	if haveStored && stored != release {
		switch pref {
		case PreferFresh:
			// wipe below
		case PreferResume:
			return nil, &ErrVersionMismatch{Stored: stored, Detected: release}
		default:
			if ask == nil {
				return nil, &ErrVersionMismatch{Stored: stored, Detected: release}
			}
			q := Question{
				Mismatch:       true,
				StoredRelease:  stored,
				CurrentRelease: release,
				ProcessedCount: len(processed),
			}
			if ask(q) != DecideFresh {
				return nil, &ErrVersionMismatch{Stored: stored, Detected: release}
			}
		}
	} else if len(processed) > 0 {
		switch pref {
		case PreferResume:
			resume = true
		case PreferFresh:
			resume = false
		default:
			resume = true
			if ask != nil {
				q := Question{
					StoredRelease:  stored,
					CurrentRelease: release,
					ProcessedCount: len(processed),
				}
				switch ask(q) {
				case DecideFresh:
					resume = false
				case DecideAbort:
					return nil, ErrAborted
				}
			}
		}
	}

	plan := &Plan{All: files, Release: release}

	if !resume {
		if err := store.WipeAll(ctx); err != nil {
			return nil, err
		}
		if err := store.SetMetadata(ctx, model.MetaKeyRelease, release); err != nil {
			return nil, err
		}
		plan.Fresh = true
		plan.Work = files
		return plan, nil
	}

	for _, item := range files {
		if _, done := processed[baseName(item)]; done {
			plan.Skipped++
			continue
		}
		plan.Work = append(plan.Work, item)
	}
	return plan, nil
}
