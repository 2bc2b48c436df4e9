// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mdhender/datvault/model"
)

// CreateSchema applies the embedded schema. It is idempotent.
func (s *CatalogStore) CreateSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return classify("create schema", err)
	}
	return nil
}

// InsertBatch writes all records in a single transaction. Either every
// record in the batch is committed or none is; batches are the unit of
// atomicity for the importer.
func (s *CatalogStore) InsertBatch(ctx context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin insert batch", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO roms (
			source_file, collection, title, description, entry_name,
			size, crc, md5, sha1, status, group_name
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return classify("prepare insert batch", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		_, err := stmt.ExecContext(ctx,
			r.SourceFile,
			r.Collection,
			r.Title,
			r.Description,
			r.EntryName,
			r.Size,
			r.CRC,
			r.MD5,
			r.SHA1,
			r.Status,
			r.Group,
		)
		if err != nil {
			return classify("insert batch", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classify("commit insert batch", err)
	}
	return nil
}

// MarkProcessed records the given DAT file base names as committed. Called
// only after the batch containing their records has been durably inserted.
func (s *CatalogStore) MarkProcessed(ctx context.Context, fileNames []string) error {
	if len(fileNames) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin mark processed", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO processed_files (file_name, processed_at)
		VALUES (?, ?)
		ON CONFLICT (file_name) DO UPDATE SET processed_at = excluded.processed_at
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return classify("prepare mark processed", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, name := range fileNames {
		if _, err := stmt.ExecContext(ctx, name, now); err != nil {
			return classify("mark processed", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classify("commit mark processed", err)
	}
	return nil
}

// ProcessedFiles returns the set of committed DAT file base names.
func (s *CatalogStore) ProcessedFiles(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_name FROM processed_files`)
	if err != nil {
		return nil, classify("query processed files", err)
	}
	defer rows.Close()

	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, classify("scan processed file", err)
		}
		names[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate processed files", err)
	}
	return names, nil
}

// GetMetadata returns the value for key and whether it was present.
func (s *CatalogStore) GetMetadata(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, classify("get metadata", err)
	}
	return value, true, nil
}

// SetMetadata stores a key/value pair, replacing any prior value.
func (s *CatalogStore) SetMetadata(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO metadata (key, value)
		VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return classify("set metadata", err)
	}
	return nil
}

// WipeAll removes every record, committed-file mark, and metadata entry.
// Used when the planner decides on a fresh start.
func (s *CatalogStore) WipeAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin wipe", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM roms`,
		`DELETE FROM processed_files`,
		`DELETE FROM metadata`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return classify("wipe", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classify("commit wipe", err)
	}
	return nil
}

// CountRecords returns the number of catalog records currently stored.
func (s *CatalogStore) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM roms`).Scan(&n); err != nil {
		return 0, classify("count records", err)
	}
	return n, nil
}
