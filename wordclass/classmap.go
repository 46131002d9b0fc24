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

// Package wordclass implements the word-class service: a mapping from
// word indices (W) to class indices (C), used to condition IBM4's
// head/non-head distortion tables.
package wordclass

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/czcorpus/cnc-gokit/collections"
)

// NullClass is the reserved class index for unclassified words.
const NullClass = 0

// ClassMap maps word indices to class indices. Unknown words default to
// NullClass.
type ClassMap struct {
	classes map[int]int
	names   *collections.Set[string]
}

// New creates an empty class map; every lookup defaults to NullClass
// until Set is called.
func New() *ClassMap {
	return &ClassMap{
		classes: make(map[int]int),
		names:   collections.NewSet[string](),
	}
}

// Set assigns word w to class c.
func (m *ClassMap) Set(w, c int) {
	m.classes[w] = c
}

// ClassOf returns the class of w, defaulting to NullClass.
func (m *ClassMap) ClassOf(w int) int {
	if c, ok := m.classes[w]; ok {
		return c
	}
	return NullClass
}

// NumClasses returns one past the highest class index observed (used
// to size dense per-class tables).
func (m *ClassMap) NumClasses() int {
	max := NullClass
	for _, c := range m.classes {
		if c > max {
			max = c
		}
	}
	return max + 1
}

// Print serializes the class map as "word class\n" text records.
func (m *ClassMap) Print(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print class map: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for word, class := range m.classes {
		if _, err := fmt.Fprintf(w, "%d %d\n", word, class); err != nil {
			return fmt.Errorf("failed to print class map: %w", err)
		}
	}
	return w.Flush()
}

// Load reads a class map in the text format produced by Print.
func Load(path string) (*ClassMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load class map: %w", err)
	}
	defer f.Close()
	m := New()
	sc := bufio.NewScanner(f)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if line == "" {
			continue
		}
		var word, class int
		if _, err := fmt.Sscanf(line, "%d %d", &word, &class); err != nil {
			return nil, fmt.Errorf("malformed class map record at line %d: %w", lineNum, err)
		}
		m.Set(word, class)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to load class map: %w", err)
	}
	return m, nil
}

// PrintBinary writes fixed-width little-endian (word uint32, class
// uint32) records until EOF.
func (m *ClassMap) PrintBinary(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print class map: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for word, class := range m.classes {
		if err := binary.Write(w, binary.LittleEndian, uint32(word)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(class)); err != nil {
			return err
		}
	}
	return w.Flush()
}

// LoadBinary reads the format written by PrintBinary until EOF.
func LoadBinary(path string) (*ClassMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load class map: %w", err)
	}
	defer f.Close()
	m := New()
	r := bufio.NewReader(f)
	for {
		var word, class uint32
		if err := binary.Read(r, binary.LittleEndian, &word); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to load class map: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &class); err != nil {
			return nil, fmt.Errorf("failed to load class map: %w", err)
		}
		m.Set(int(word), int(class))
	}
	return m, nil
}
