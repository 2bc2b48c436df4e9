// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package datfile parses DAT catalog files. Two dialects share one output
// schema: a well-formed XML dialect and a legacy clrmamepro text format
// with parenthesis-delimited blocks. Parsing is pure; the package never
// touches the catalog store, which is what makes it safe to fan out across
// worker goroutines.
package datfile

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mdhender/datvault/model"
	"github.com/spf13/afero"
)

// statusDefault is the status recorded when a rom entry carries none.
const statusDefault = "good"

// unknown fills in the group and title when the source offers nothing.
const unknown = "Unknown"

// ParseError is a per-file parse failure. It is recoverable: the session
// counts it, reports it, and moves on to the next file.
type ParseError struct {
	Path   string
	Format string // "xml" or "legacy"
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s (%s): %v", e.Path, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse reads the file at path, detects its dialect, and returns one record
// per rom entry in source order. A file with games but no roms yields an
// empty slice, not an error.
func Parse(fsys afero.Fs, path string) ([]model.Record, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, &ParseError{Path: path, Format: "unknown", Err: err}
	}

	source := filepath.Base(path)
	collection := collectionName(source)
	group := groupName(path)

	if isLegacy(data) {
		return parseLegacy(string(data), source, collection, group), nil
	}

	records, err := parseXML(data, source, collection, group)
	if err != nil {
		return nil, &ParseError{Path: path, Format: "xml", Err: err}
	}
	return records, nil
}

// collectionName derives the collection from the DAT file's own name: the
// segment before the first " - " separator, extension stripped.
// "Commodore 64 - Games - T (TOSEC-v2020-01-01).dat" -> "Commodore 64".
func collectionName(base string) string {
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.Index(name, " - "); i >= 0 {
		return name[:i]
	}
	return name
}

// groupName derives the group from the DAT file's immediate parent
// directory, "Unknown" when there is none.
func groupName(path string) string {
	dir := filepath.Base(filepath.Dir(path))
	if dir == "" || dir == "." || dir == string(filepath.Separator) {
		return unknown
	}
	return dir
}
