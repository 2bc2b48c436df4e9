// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package datfile

import (
	"strconv"
	"strings"

	"github.com/mdhender/datvault/model"
)

// The legacy clrmamepro dialect is plain text with nested parenthesized
// blocks and no formal grammar:
//
//	game (
//		name "Some Title (1986)"
//		description "Some Title (1986)(Publisher)"
//		rom ( name "some title.tap" size 49152 crc deadbeef )
//	)
//
// String values may themselves contain parentheses, so a regular expression
// cannot delimit a block. Blocks are found by scanning for the "game" token
// followed by whitespace and an opening paren, then walking forward one
// character at a time with a depth counter until the paren closes.

// parseLegacy extracts records from a legacy DAT. A malformed or truncated
// block is skipped, never fatal: legacy files occasionally carry one
// corrupt entry amid thousands of valid ones.
func parseLegacy(text, source, collection, group string) []model.Record {
	var records []model.Record
	for _, game := range findBlocks(text, "game") {
		title, ok := attrValue(game, "name")
		if !ok {
			title = unknown
		}
		description, ok := attrValue(game, "description")
		if !ok {
			description = title
		}

		for _, rom := range findBlocks(game, "rom") {
			name, ok := attrValue(rom, "name")
			if !ok {
				continue // a rom without a name is unusable
			}
			size := int64(0)
			if v, ok := attrValue(rom, "size"); ok {
				size = parseSizeLegacy(v)
			}
			crc, _ := attrValue(rom, "crc")
			md5, _ := attrValue(rom, "md5")
			sha1, _ := attrValue(rom, "sha1")
			status, ok := attrValue(rom, "status")
			if !ok {
				status = statusDefault
			}

			records = append(records, model.Record{
				SourceFile:  source,
				Collection:  collection,
				Title:       title,
				Description: description,
				EntryName:   name,
				Size:        size,
				CRC:         crc,
				MD5:         md5,
				SHA1:        sha1,
				Status:      status,
				Group:       group,
			})
		}
	}
	return records
}

// findBlocks returns the body of every balanced "token ( ... )" block in s.
// The token must stand at a word boundary and be separated from the paren
// by whitespace. An anchor whose block never balances before end of input
// is discarded and the scan continues past the token.
func findBlocks(s, token string) []string {
	var blocks []string
	lower := strings.ToLower(s)
	for i := 0; i < len(s); {
		j := strings.Index(lower[i:], token)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(token)
		if start > 0 && isWordByte(s[start-1]) {
			i = start + 1
			continue
		}
		if end < len(s) && isWordByte(s[end]) {
			i = end
			continue
		}
		k := end
		for k < len(s) && isSpaceByte(s[k]) {
			k++
		}
		if k == end || k >= len(s) || s[k] != '(' {
			i = end
			continue
		}
		body, _, ok := balanced(s, k+1)
		if !ok {
			i = end
			continue
		}
		blocks = append(blocks, body)
		// keep scanning right after the token: anchors are located by the
		// token scan alone, independent of block nesting
		i = end
	}
	return blocks
}

// balanced walks s from pos with the opening paren already counted
// (depth 1) and returns the body up to the matching close paren plus the
// index just past it. ok is false if the input ends before depth returns
// to zero.
func balanced(s string, pos int) (body string, next int, ok bool) {
	depth := 1
	for i := pos; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[pos:i], i + 1, true
			}
		}
	}
	return "", 0, false
}

// attrValue finds the first "key value" pair in block. The key match is
// case-insensitive at a word boundary; the value is either a quoted string
// or a bare token ending at whitespace or a paren. First match wins.
func attrValue(block, key string) (string, bool) {
	lower := strings.ToLower(block)
	for i := 0; i < len(block); {
		j := strings.Index(lower[i:], key)
		if j < 0 {
			return "", false
		}
		start := i + j
		end := start + len(key)
		if start > 0 && isWordByte(block[start-1]) {
			i = start + 1
			continue
		}
		if end < len(block) && isWordByte(block[end]) {
			i = end
			continue
		}
		k := end
		for k < len(block) && isSpaceByte(block[k]) {
			k++
		}
		if k == end || k >= len(block) {
			i = end
			continue
		}
		if block[k] == '"' {
			if m := strings.IndexByte(block[k+1:], '"'); m >= 0 {
				return block[k+1 : k+1+m], true
			}
			i = end
			continue
		}
		if block[k] == '(' || block[k] == ')' {
			i = end
			continue
		}
		m := k
		for m < len(block) && !isSpaceByte(block[m]) && block[m] != '(' && block[m] != ')' {
			m++
		}
		return block[k:m], true
	}
	return "", false
}

// parseSizeLegacy tolerates quoted and bare size values; anything that is
// not a non-negative integer collapses to 0.
func parseSizeLegacy(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func isWordByte(b byte) bool {
	return b == '_' ||
		('a' <= b && b <= 'z') ||
		('A' <= b && b <= 'Z') ||
		('0' <= b && b <= '9')
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
