// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package model defines the value types shared by the parsers, the import
// session, and the catalog store.
package model

// Record is one catalog entry: a single ROM belonging to one title in one
// DAT file. Records are value objects; they are copied into the session
// buffer and then into the store and carry no ownership beyond the source
// file they were parsed from.
type Record struct {
	SourceFile  string `json:"sourceFile"  db:"source_file"` // base name of the DAT file
	Collection  string `json:"collection"  db:"collection"`  // filename segment before " - "
	Title       string `json:"title"       db:"title"`       // game name attribute
	Description string `json:"description" db:"description"` // defaults to Title when absent
	EntryName   string `json:"entryName"   db:"entry_name"`  // rom name attribute
	Size        int64  `json:"size"        db:"size"`        // bytes, 0 when unknown
	CRC         string `json:"crc"         db:"crc"`
	MD5         string `json:"md5"         db:"md5"`
	SHA1        string `json:"sha1"        db:"sha1"`
	Status      string `json:"status"      db:"status"`      // defaults to "good"
	Group       string `json:"group"       db:"group_name"`  // parent directory of the DAT file
}

// WorkItem is one DAT file queued for parsing. Size is used only to weight
// the progress display; it is never re-read after the directory scan.
type WorkItem struct {
	Path string
	Size int64
}

// RunStats is the final accounting for one import run.
type RunStats struct {
	TotalRecords int64 // records durably written
	ErrorCount   int   // files that failed to parse
}

// MetaKeyRelease is the metadata key holding the catalog release tag
// detected from the input directory on the run that populated the store.
const MetaKeyRelease = "release"

// ReleaseUnknown is stored when no release tag could be detected from the
// input path. It is an ordinary value and compares equal across runs.
const ReleaseUnknown = "Unknown"
