// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package stages implements the import pipeline: directory scanning,
// resume planning, and the producer/consumer import session.
package stages

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mdhender/datvault/model"
	"github.com/spf13/afero"
)

// datExtension is matched case-insensitively against file suffixes.
const datExtension = ".dat"

// FindDATFiles walks root recursively and returns every DAT file with its
// byte size, sorted by path for deterministic planning.
func FindDATFiles(fsys afero.Fs, root string) ([]model.WorkItem, error) {
	var items []model.WorkItem
	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(info.Name()), datExtension) {
			return nil
		}
		items = append(items, model.WorkItem{Path: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return items, nil
}

// baseName is the resume-matching key for a work item. Matching is by base
// name only: identical file names under different directories are
// conflated. Known limitation, kept for compatibility with existing
// processed_files data.
func baseName(item model.WorkItem) string {
	return filepath.Base(item.Path)
}
