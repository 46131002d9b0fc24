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

// Package corpus implements the sentence-pair store external
// collaborator: an enumerable, indexed, immutable-during-training-pass
// sequence of (src, trg, weight) triples read from three parallel
// line-oriented files.
package corpus

import (
	"bufio"
	"fmt"
	"os"
)

// lineScanner wraps a single file for sequential line-by-line reading,
// adapted from the multi-file scanning idiom used elsewhere in this
// lineage for corpora spread across several files; here each of the
// three parallel corpus files gets its own instance kept in lock-step
// by Store.Load.
type lineScanner struct {
	file    *os.File
	scanner *bufio.Scanner
}

func openLineScanner(path string) (*lineScanner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &lineScanner{file: f, scanner: bufio.NewScanner(f)}, nil
}

func (s *lineScanner) next() (string, bool, error) {
	if s.scanner.Scan() {
		return s.scanner.Text(), true, nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", false, err
	}
	return "", false, nil
}

func (s *lineScanner) close() {
	s.file.Close()
}
