// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mdhender/datvault/model"
)

// bulkColumns is the CSV header for bulk export/import. Import validates
// against it so a schema drift between tool versions fails loudly instead
// of shifting fields.
var bulkColumns = []string{
	"source_file", "collection", "title", "description", "entry_name",
	"size", "crc", "md5", "sha1", "status", "group_name",
}

// ctxCheckInterval is how many rows to stream between context checks.
const ctxCheckInterval = 1000

// ExportCSV writes every catalog record to path as CSV with a header row.
// threads is a hint for SQLite's auxiliary thread limit.
func (s *CatalogStore) ExportCSV(ctx context.Context, path string, threads int) (int64, error) {
	if err := s.ConfigureThreads(threads); err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, classify("create export file", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(bulkColumns); err != nil {
		return 0, classify("write export header", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source_file, collection, title, description, entry_name,
		       size, crc, md5, sha1, status, group_name
		FROM roms
	`)
	if err != nil {
		return 0, classify("query export", err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		var r model.Record
		if err := rows.Scan(
			&r.SourceFile, &r.Collection, &r.Title, &r.Description, &r.EntryName,
			&r.Size, &r.CRC, &r.MD5, &r.SHA1, &r.Status, &r.Group,
		); err != nil {
			return count, classify("scan export row", err)
		}
		rec := []string{
			r.SourceFile, r.Collection, r.Title, r.Description, r.EntryName,
			strconv.FormatInt(r.Size, 10), r.CRC, r.MD5, r.SHA1, r.Status, r.Group,
		}
		if err := w.Write(rec); err != nil {
			return count, classify("write export row", err)
		}
		count++
		if count%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return count, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return count, classify("iterate export", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return count, classify("flush export", err)
	}
	if err := f.Close(); err != nil {
		return count, classify("close export file", err)
	}
	return count, nil
}

// ImportCSV loads records from a CSV file previously written by ExportCSV.
// Rows are inserted in batches; the header must match bulkColumns exactly.
func (s *CatalogStore) ImportCSV(ctx context.Context, path string, threads int) (int64, error) {
	if err := s.ConfigureThreads(threads); err != nil {
		return 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, classify("open import file", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(bulkColumns)

	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read import header: %w", err)
	}
	for i, col := range bulkColumns {
		if header[i] != col {
			return 0, fmt.Errorf("import header mismatch: column %d is %q, want %q", i, header[i], col)
		}
	}

	var count int64
	batch := make([]model.Record, 0, ctxCheckInterval)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("read import row: %w", err)
		}

		size, err := strconv.ParseInt(row[5], 10, 64)
		if err != nil {
			return count, fmt.Errorf("import row %d: bad size %q: %w", count+1, row[5], err)
		}
		batch = append(batch, model.Record{
			SourceFile:  row[0],
			Collection:  row[1],
			Title:       row[2],
			Description: row[3],
			EntryName:   row[4],
			Size:        size,
			CRC:         row[6],
			MD5:         row[7],
			SHA1:        row[8],
			Status:      row[9],
			Group:       row[10],
		})

		if len(batch) >= ctxCheckInterval {
			if err := ctx.Err(); err != nil {
				return count, err
			}
			if err := s.InsertBatch(ctx, batch); err != nil {
				return count, err
			}
			count += int64(len(batch))
			batch = batch[:0]
		}
	}

	if err := s.InsertBatch(ctx, batch); err != nil {
		return count, err
	}
	count += int64(len(batch))
	return count, nil
}
