// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"errors"
	"strings"
	"syscall"

	"github.com/mdhender/datvault/model"
)

// classify wraps err in a model.StorageError, deciding the failure kind at
// the adapter boundary. SQLite surfaces ENOSPC/EROFS both as wrapped
// syscall errors and as message text, so both are checked here, once,
// instead of at every call site.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := model.StorageOther
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, syscall.ENOSPC),
		strings.Contains(msg, "database or disk is full"),
		strings.Contains(msg, "not enough space"),
		strings.Contains(msg, "no space left on device"):
		kind = model.StorageFull
	case errors.Is(err, syscall.EROFS),
		strings.Contains(msg, "readonly database"),
		strings.Contains(msg, "read-only file system"):
		kind = model.StorageReadOnly
	}
	return &model.StorageError{Kind: kind, Op: op, Err: err}
}
