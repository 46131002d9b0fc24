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

// Package vocab implements the vocabulary service consumed by the
// alignment core: a bidirectional mapping between surface tokens and
// word indices (W), with the two reserved entries required by the
// external interfaces.
package vocab

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/czcorpus/cnc-gokit/collections"
	"github.com/rs/zerolog/log"
)

const (
	// NullWordStr is the reserved surface form for the null source word.
	NullWordStr = "<NULL>"

	// UnkWordStr is the reserved surface form for out-of-vocabulary
	// tokens encountered while reading a corpus against a fixed
	// vocabulary.
	UnkWordStr = "<UNK>"

	// NullWord is the reserved index of the null source word.
	NullWord = 0

	// UnkWord is the reserved index of the out-of-vocabulary token.
	UnkWord = 1
)

// Vocabulary is a bidirectional word <-> index map. It is created empty
// (populated with the two reserved entries) and grows monotonically as
// AddWord is called; indices are never reused or renumbered, matching
// the append-only semantics the parameter tables rely on for stable
// keys across an EM run.
type Vocabulary struct {
	wordToIdx map[string]int
	idxToWord []string
	seen      *collections.Set[string]
}

// New creates a vocabulary pre-populated with the NULL and UNK tokens
// at indices 0 and 1.
func New() *Vocabulary {
	v := &Vocabulary{
		wordToIdx: make(map[string]int),
		idxToWord: make([]string, 0, 64),
		seen:      collections.NewSet[string](),
	}
	v.addReserved(NullWordStr)
	v.addReserved(UnkWordStr)
	return v
}

func (v *Vocabulary) addReserved(w string) {
	idx := len(v.idxToWord)
	v.idxToWord = append(v.idxToWord, w)
	v.wordToIdx[w] = idx
	v.seen.Add(w)
}

// Size returns the number of distinct surface forms known to the
// vocabulary, including the two reserved entries.
func (v *Vocabulary) Size() int {
	return len(v.idxToWord)
}

// AddWord returns the index for w, allocating a new one if w has not
// been seen before.
func (v *Vocabulary) AddWord(w string) int {
	if idx, ok := v.wordToIdx[w]; ok {
		return idx
	}
	idx := len(v.idxToWord)
	v.idxToWord = append(v.idxToWord, w)
	v.wordToIdx[w] = idx
	v.seen.Add(w)
	return idx
}

// IndexOf looks up w without mutating the vocabulary, returning
// UnkWord when w is unknown.
func (v *Vocabulary) IndexOf(w string) int {
	if idx, ok := v.wordToIdx[w]; ok {
		return idx
	}
	return UnkWord
}

// Word returns the surface form for idx, and false if idx is out of
// range.
func (v *Vocabulary) Word(idx int) (string, bool) {
	if idx < 0 || idx >= len(v.idxToWord) {
		return "", false
	}
	return v.idxToWord[idx], true
}

// Contains reports whether w has already been assigned an index.
func (v *Vocabulary) Contains(w string) bool {
	return v.seen.Contains(w)
}

// Print serializes the vocabulary as "index surface\n" records.
func (v *Vocabulary) Print(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print vocabulary: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for idx, word := range v.idxToWord {
		if _, err := fmt.Fprintf(w, "%d %s\n", idx, word); err != nil {
			return fmt.Errorf("failed to print vocabulary: %w", err)
		}
	}
	return w.Flush()
}

// Load replaces the vocabulary contents by reading "index surface"
// records from path. A malformed record is a hard I/O-class error and
// the vocabulary is left unmodified.
func Load(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	defer f.Close()
	v := &Vocabulary{
		wordToIdx: make(map[string]int),
		idxToWord: make([]string, 0, 64),
		seen:      collections.NewSet[string](),
	}
	sc := bufio.NewScanner(f)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if line == "" {
			continue
		}
		var idx int
		var word string
		if _, err := fmt.Sscanf(line, "%d %s", &idx, &word); err != nil {
			return nil, fmt.Errorf("malformed vocabulary record at line %d: %w", lineNum, err)
		}
		for idx >= len(v.idxToWord) {
			v.idxToWord = append(v.idxToWord, "")
		}
		v.idxToWord[idx] = word
		v.wordToIdx[word] = idx
		v.seen.Add(word)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	log.Debug().Str("path", path).Int("size", len(v.idxToWord)).Msg("loaded vocabulary")
	return v, nil
}

// PrintBinary writes fixed-width little-endian (index uint32, surface
// length uint32, surface bytes) records, one per entry, with no
// terminator (EOF terminates the stream).
func (v *Vocabulary) PrintBinary(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print vocabulary: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for idx, word := range v.idxToWord {
		if err := binary.Write(w, binary.LittleEndian, uint32(idx)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(word))); err != nil {
			return err
		}
		if _, err := w.WriteString(word); err != nil {
			return err
		}
	}
	return w.Flush()
}

// LoadBinary reads the format written by PrintBinary until EOF.
func LoadBinary(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	defer f.Close()
	v := &Vocabulary{
		wordToIdx: make(map[string]int),
		idxToWord: make([]string, 0, 64),
		seen:      collections.NewSet[string](),
	}
	r := bufio.NewReader(f)
	for {
		var idx, slen uint32
		if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to load vocabulary: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &slen); err != nil {
			return nil, fmt.Errorf("failed to load vocabulary: %w", err)
		}
		buf := make([]byte, slen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("failed to load vocabulary: %w", err)
		}
		word := string(buf)
		for int(idx) >= len(v.idxToWord) {
			v.idxToWord = append(v.idxToWord, "")
		}
		v.idxToWord[idx] = word
		v.wordToIdx[word] = int(idx)
		v.seen.Add(word)
	}
	return v, nil
}
