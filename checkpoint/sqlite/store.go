// Copyright 2026 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2026 Charles University, Faculty of Arts,
//                Institute of the Czech National Corpus
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlite implements checkpoint.Store against a single sqlite3
// file, for a single-machine training run.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/czcorpus/wordalign/checkpoint"
	"github.com/czcorpus/wordalign/fs"
	"github.com/rs/zerolog/log"

	_ "github.com/mattn/go-sqlite3" // load the driver
)

// Store is a checkpoint.Store backed by a sqlite3 file holding one row
// per (model_kind, table_name).
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the checkpoint database at path.
func Open(path string) (*Store, error) {
	existed := fs.IsFile(path)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to configure checkpoint db: %w", err)
	}
	if !existed {
		if err := createSchema(db); err != nil {
			return nil, err
		}
		log.Info().Str("path", path).Msg("created new checkpoint database")
	}
	return &Store{db: db, path: path}, nil
}

func createSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS checkpoint_meta (
			model_kind TEXT PRIMARY KEY,
			iter INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS checkpoint_table (
			model_kind TEXT NOT NULL,
			table_name TEXT NOT NULL,
			data BLOB NOT NULL,
			PRIMARY KEY (model_kind, table_name)
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("failed to create checkpoint schema: %w", err)
		}
	}
	return nil
}

// Save implements checkpoint.Store.
func (s *Store) Save(snap checkpoint.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin checkpoint transaction: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM checkpoint_table WHERE model_kind = ?", snap.ModelKind); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear prior checkpoint tables: %w", err)
	}
	stmt, err := tx.Prepare("INSERT INTO checkpoint_table (model_kind, table_name, data) VALUES (?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare checkpoint insert: %w", err)
	}
	for name, data := range snap.Tables {
		if _, err := stmt.Exec(snap.ModelKind, name, data); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("failed to write checkpoint table %q: %w", name, err)
		}
	}
	stmt.Close()
	_, err = tx.Exec(
		`INSERT INTO checkpoint_meta (model_kind, iter, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(model_kind) DO UPDATE SET iter = excluded.iter, created_at = excluded.created_at`,
		snap.ModelKind, snap.Iter, snap.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to write checkpoint metadata: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	log.Info().Str("modelKind", snap.ModelKind).Int("iter", snap.Iter).Msg("wrote checkpoint")
	return nil
}

// Load implements checkpoint.Store.
func (s *Store) Load(modelKind string) (checkpoint.Snapshot, bool, error) {
	var iter int
	var createdAtStr string
	row := s.db.QueryRow("SELECT iter, created_at FROM checkpoint_meta WHERE model_kind = ?", modelKind)
	if err := row.Scan(&iter, &createdAtStr); err != nil {
		if err == sql.ErrNoRows {
			return checkpoint.Snapshot{}, false, nil
		}
		return checkpoint.Snapshot{}, false, fmt.Errorf("failed to load checkpoint metadata: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return checkpoint.Snapshot{}, false, fmt.Errorf("malformed checkpoint timestamp: %w", err)
	}

	rows, err := s.db.Query("SELECT table_name, data FROM checkpoint_table WHERE model_kind = ?", modelKind)
	if err != nil {
		return checkpoint.Snapshot{}, false, fmt.Errorf("failed to load checkpoint tables: %w", err)
	}
	defer rows.Close()
	tables := make(map[string][]byte)
	for rows.Next() {
		var name string
		var data []byte
		if err := rows.Scan(&name, &data); err != nil {
			return checkpoint.Snapshot{}, false, fmt.Errorf("failed to read checkpoint table row: %w", err)
		}
		tables[name] = data
	}
	if err := rows.Err(); err != nil {
		return checkpoint.Snapshot{}, false, fmt.Errorf("failed to read checkpoint tables: %w", err)
	}
	return checkpoint.Snapshot{ModelKind: modelKind, Iter: iter, Tables: tables, CreatedAt: createdAt}, true, nil
}

// Close implements checkpoint.Store.
func (s *Store) Close() error {
	return s.db.Close()
}
