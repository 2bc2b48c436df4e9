// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package datfile

import (
	"bytes"

	"github.com/spf13/afero"
)

// legacySignature is the header token of the legacy clrmamepro dialect.
var legacySignature = []byte("clrmamepro")

// detectLimit is how much of the file head the detector inspects.
const detectLimit = 128

// IsLegacy reports whether the file at path looks like a legacy clrmamepro
// DAT. Unreadable files are classified "not legacy"; the parser will
// surface the real error when it tries to read them.
func IsLegacy(fsys afero.Fs, path string) bool {
	f, err := fsys.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, detectLimit)
	n, _ := f.Read(head)
	return isLegacy(head[:n])
}

func isLegacy(data []byte) bool {
	head := data
	if len(head) > detectLimit {
		head = head[:detectLimit]
	}
	return bytes.Contains(bytes.ToLower(head), legacySignature)
}
