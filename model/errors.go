// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package model

import (
	"errors"
	"fmt"
)

// StorageErrorKind discriminates storage failures. The kind is decided once,
// at the store adapter boundary, so callers never have to sniff error
// message text.
type StorageErrorKind int

const (
	StorageOther StorageErrorKind = iota
	StorageFull                   // the medium is out of space
	StorageReadOnly               // the medium or database is not writable
)

func (k StorageErrorKind) String() string {
	switch k {
	case StorageFull:
		return "full"
	case StorageReadOnly:
		return "read-only"
	default:
		return "other"
	}
}

// StorageError wraps a failure from the catalog store with its kind.
type StorageError struct {
	Kind StorageErrorKind
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageFatal reports whether err is a storage failure that must abort
// the whole run: a full or read-only medium. Treating these as ordinary
// per-file errors would silently drop partial batches and break resume
// bookkeeping.
func IsStorageFatal(err error) bool {
	var se *StorageError
	if !errors.As(err, &se) {
		return false
	}
	return se.Kind == StorageFull || se.Kind == StorageReadOnly
}
