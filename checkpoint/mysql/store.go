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

// Package mysql implements checkpoint.Store against a shared MySQL
// database, for resuming training coordinated across a cluster rather
// than a single machine.
package mysql

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/czcorpus/wordalign/checkpoint"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
)

// Store is a checkpoint.Store backed by a MySQL database holding one
// row per (model_kind, table_name).
type Store struct {
	db *sql.DB
}

// Open connects to a MySQL server using a DSN built from the supplied
// host/user/password/dbName, then ensures the checkpoint schema exists.
func Open(host, user, password, dbName string) (*Store, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", user, password, host, dbName)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to reach checkpoint db: %w", err)
	}
	if err := createSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS checkpoint_meta (
			model_kind VARCHAR(64) PRIMARY KEY,
			iter INT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS checkpoint_table (
			model_kind VARCHAR(64) NOT NULL,
			table_name VARCHAR(64) NOT NULL,
			data LONGBLOB NOT NULL,
			PRIMARY KEY (model_kind, table_name)
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			// a concurrent trainer process may have created the schema
			// between our check and this statement; MySQL reports that
			// as error 1050 (table already exists) rather than letting
			// CREATE TABLE IF NOT EXISTS silently win the race.
			var merr *mysql.MySQLError
			if errors.As(err, &merr) && merr.Number == 1050 {
				continue
			}
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
	stmt, err := tx.Prepare(
		`INSERT INTO checkpoint_table (model_kind, table_name, data) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE data = VALUES(data)`)
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
		 ON DUPLICATE KEY UPDATE iter = VALUES(iter), created_at = VALUES(created_at)`,
		snap.ModelKind, snap.Iter, snap.CreatedAt,
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
	var createdAt time.Time
	row := s.db.QueryRow("SELECT iter, created_at FROM checkpoint_meta WHERE model_kind = ?", modelKind)
	if err := row.Scan(&iter, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return checkpoint.Snapshot{}, false, nil
		}
		return checkpoint.Snapshot{}, false, fmt.Errorf("failed to load checkpoint metadata: %w", err)
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
