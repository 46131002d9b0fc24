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

// Package checkpoint defines the resumable-training snapshot contract
// used to make an EM trainer checkpointable between iterations.
// Concrete backends (checkpoint/sqlite, checkpoint/mysql) implement
// Store.
package checkpoint

import "time"

// Snapshot is a serialized set of a model's owned parameter tables at
// one iteration boundary. Tables holds, per table name (e.g. "lex",
// "alignd", "hmm_alignd", "distnd", "fertilnd", "p1", "slmodel"), the
// binary-format bytes produced by that table's PrintBinary.
type Snapshot struct {
	ModelKind string
	Iter      int
	Tables    map[string][]byte
	CreatedAt time.Time
}

// Store persists and retrieves Snapshots keyed by model kind. A caller
// resumes a cancelled run by loading the most recent snapshot for a
// model kind and re-populating its tables from Tables before continuing
// training at Iter+1.
type Store interface {
	// Save writes snap, replacing any prior snapshot for the same
	// ModelKind.
	Save(snap Snapshot) error

	// Load returns the most recently saved snapshot for modelKind, or
	// ok=false if none exists.
	Load(modelKind string) (snap Snapshot, ok bool, err error)

	// Close releases backend resources.
	Close() error
}
