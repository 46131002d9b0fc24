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

package table

import (
	"bufio"
	"fmt"
	"os"
)

// SentLenTable holds p(tlen|slen): a dense vector over tlen per slen,
// fitted from training-pass counts. A freshly cleared table is
// "untrained" and SentLenProb returns a uniform floor for every slen
// until the next training pass calls MaximizeRow again.
type SentLenTable struct {
	outer   map[int][]NumDen
	maxLen  int
	trained bool
}

// NewSentLenTable creates an empty, untrained table bounded by maxLen.
func NewSentLenTable(maxLen int) *SentLenTable {
	return &SentLenTable{outer: make(map[int][]NumDen), maxLen: maxLen}
}

func (t *SentLenTable) ensureRow(slen int) []NumDen {
	row, ok := t.outer[slen]
	if !ok {
		row = make([]NumDen, t.maxLen+1)
		t.outer[slen] = row
	}
	return row
}

// AddNum accumulates an observation of (slen, tlen) into the running
// counts; the model only becomes trained once MaximizeRow normalizes
// the accumulated counts into probabilities.
func (t *SentLenTable) AddNum(slen, tlen int, delta float64) {
	if tlen < 0 || tlen > t.maxLen {
		return
	}
	t.ensureRow(slen)[tlen].Num += delta
}

// MaximizeRow renormalizes the tlen distribution for slen and marks the
// table as trained.
func (t *SentLenTable) MaximizeRow(slen int) {
	row, ok := t.outer[slen]
	if !ok {
		return
	}
	var total float64
	for _, nd := range row {
		total += nd.Num
	}
	for i := range row {
		row[i].Den = total
	}
	t.trained = true
}

// SentLenProb returns p(tlen|slen); an untrained table (including one
// just cleared) returns the uniform floor 1/(maxLen+1) regardless of
// slen.
func (t *SentLenTable) SentLenProb(slen, tlen int) float64 {
	uniform := 1.0 / float64(t.maxLen+1)
	if !t.trained {
		return uniform
	}
	row, ok := t.outer[slen]
	if !ok || tlen < 0 || tlen >= len(row) {
		return uniform
	}
	return row[tlen].Prob(uniform)
}

// Clear discards all counts and resets the table to its untrained
// state, so SentLenProb falls back to the uniform floor until the next
// training pass repopulates it.
func (t *SentLenTable) Clear() {
	t.outer = make(map[int][]NumDen)
	t.trained = false
}

// Trained reports whether at least one MaximizeRow call has run since
// the table was created or last cleared.
func (t *SentLenTable) Trained() bool {
	return t.trained
}

// PrintText writes "slen tlen num den\n" records.
func (t *SentLenTable) PrintText(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print sentence-length table: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for slen, row := range t.outer {
		for tlen, nd := range row {
			if _, err := fmt.Fprintf(w, "%d %d %.8g %.8g\n", slen, tlen, nd.Num, nd.Den); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

// LoadSentLenTableText reads the format written by PrintText and marks
// the result trained.
func LoadSentLenTableText(path string, maxLen int) (*SentLenTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load sentence-length table: %w", err)
	}
	defer f.Close()
	t := NewSentLenTable(maxLen)
	sc := bufio.NewScanner(f)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if line == "" {
			continue
		}
		var slen, tlen int
		var num, den float64
		if _, err := fmt.Sscanf(line, "%d %d %g %g", &slen, &tlen, &num, &den); err != nil {
			t.Clear()
			return nil, fmt.Errorf("malformed sentence-length record at line %d: %w", lineNum, err)
		}
		row := t.ensureRow(slen)
		row[tlen].Num = num
		row[tlen].Den = den
	}
	if err := sc.Err(); err != nil {
		t.Clear()
		return nil, fmt.Errorf("failed to load sentence-length table: %w", err)
	}
	t.trained = true
	return t, nil
}
