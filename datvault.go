// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package datvault imports DAT catalog files into a queryable SQLite store.
package datvault

import (
	"github.com/maloquacious/semver"
)

var (
	version = semver.Version{
		Major: 0,
		Minor: 2,
		Patch: 0,
		Build: semver.Commit(),
	}
)

func Version() semver.Version {
	return version
}
