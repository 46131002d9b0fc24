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
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// FertilityTable holds (s, phi) -> (num, den), phi in [0, MaxFertility],
// dense over the fertility axis per source word.
type FertilityTable struct {
	outer       map[int][]NumDen
	maxFertility int
}

// NewFertilityTable creates an empty table bounded by maxFertility.
func NewFertilityTable(maxFertility int) *FertilityTable {
	return &FertilityTable{outer: make(map[int][]NumDen), maxFertility: maxFertility}
}

func (t *FertilityTable) ensureRow(s int) []NumDen {
	row, ok := t.outer[s]
	if !ok {
		row = make([]NumDen, t.maxFertility+1)
		t.outer[s] = row
	}
	return row
}

// ReserveSpace ensures (s, phi) exists with zero counts.
func (t *FertilityTable) ReserveSpace(s, phi int) {
	t.ensureRow(s)
}

// SetNum sets the numerator at (s, phi).
func (t *FertilityTable) SetNum(s, phi int, v float64) {
	t.ensureRow(s)[phi].Num = v
}

// SetDen sets the denominator at (s, phi).
func (t *FertilityTable) SetDen(s, phi int, v float64) {
	t.ensureRow(s)[phi].Den = v
}

// SetNumDen sets both fields at (s, phi).
func (t *FertilityTable) SetNumDen(s, phi int, num, den float64) {
	row := t.ensureRow(s)
	row[phi].Num = num
	row[phi].Den = den
}

// AddNum accumulates delta into the numerator at (s, phi).
func (t *FertilityTable) AddNum(s, phi int, delta float64) {
	t.ensureRow(s)[phi].Num += delta
}

// AddDen accumulates delta into the denominator at (s, phi).
func (t *FertilityTable) AddDen(s, phi int, delta float64) {
	t.ensureRow(s)[phi].Den += delta
}

// GetNum returns the numerator at (s, phi); found is false when phi is
// out of [0, maxFertility] or s was never observed.
func (t *FertilityTable) GetNum(s, phi int) (float64, bool) {
	row, ok := t.outer[s]
	if !ok || phi < 0 || phi >= len(row) {
		return 0, false
	}
	return row[phi].Num, true
}

// GetDen returns the denominator at (s, phi).
func (t *FertilityTable) GetDen(s, phi int) (float64, bool) {
	row, ok := t.outer[s]
	if !ok || phi < 0 || phi >= len(row) {
		return 0, false
	}
	return row[phi].Den, true
}

// Prob returns p(phi|s), falling back to SWProbSmooth when absent.
func (t *FertilityTable) Prob(s, phi int) float64 {
	row, ok := t.outer[s]
	if !ok || phi < 0 || phi >= len(row) {
		return SWProbSmooth
	}
	return row[phi].Prob(SWProbSmooth)
}

// MaximizeRow renormalizes the fertility vector of source word s.
func (t *FertilityTable) MaximizeRow(s int) {
	row, ok := t.outer[s]
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
}

// Keys returns every source word with at least one entry.
func (t *FertilityTable) Keys() []int {
	ans := make([]int, 0, len(t.outer))
	for k := range t.outer {
		ans = append(ans, k)
	}
	return ans
}

// Clear discards all entries.
func (t *FertilityTable) Clear() {
	t.outer = make(map[int][]NumDen)
}

// ZeroCounts resets every entry's counts while keeping the reserved key
// skeleton.
func (t *FertilityTable) ZeroCounts() {
	for _, row := range t.outer {
		for i := range row {
			row[i] = NumDen{}
		}
	}
}

// PrintText writes "s phi num den\n" records.
func (t *FertilityTable) PrintText(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print fertility table: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for s, row := range t.outer {
		for phi, nd := range row {
			if _, err := fmt.Fprintf(w, "%d %d %.8g %.8g\n", s, phi, nd.Num, nd.Den); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

// LoadFertilityTableText reads the format written by PrintText.
func LoadFertilityTableText(path string, maxFertility int) (*FertilityTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load fertility table: %w", err)
	}
	defer f.Close()
	t := NewFertilityTable(maxFertility)
	sc := bufio.NewScanner(f)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if line == "" {
			continue
		}
		var s, phi int
		var num, den float64
		if _, err := fmt.Sscanf(line, "%d %d %g %g", &s, &phi, &num, &den); err != nil {
			t.Clear()
			return nil, fmt.Errorf("malformed fertility record at line %d: %w", lineNum, err)
		}
		t.SetNumDen(s, phi, num, den)
	}
	if err := sc.Err(); err != nil {
		t.Clear()
		return nil, fmt.Errorf("failed to load fertility table: %w", err)
	}
	return t, nil
}

// PrintBinary writes fixed-width little-endian (s,phi uint32, num,den
// float32) records until EOF.
func (t *FertilityTable) PrintBinary(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print fertility table: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for s, row := range t.outer {
		for phi, nd := range row {
			if err := binary.Write(w, binary.LittleEndian, uint32(s)); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, uint32(phi)); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, float32(nd.Num)); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, float32(nd.Den)); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

// LoadFertilityTableBinary reads until io.EOF.
func LoadFertilityTableBinary(path string, maxFertility int) (*FertilityTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load fertility table: %w", err)
	}
	defer f.Close()
	t := NewFertilityTable(maxFertility)
	r := bufio.NewReader(f)
	for {
		var s uint32
		if err := binary.Read(r, binary.LittleEndian, &s); err != nil {
			if err == io.EOF {
				break
			}
			t.Clear()
			return nil, fmt.Errorf("failed to load fertility table: %w", err)
		}
		var phi uint32
		var num, den float32
		for _, dst := range []interface{}{&phi, &num, &den} {
			if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
				t.Clear()
				return nil, fmt.Errorf("failed to load fertility table: %w", err)
			}
		}
		t.SetNumDen(int(s), int(phi), float64(num), float64(den))
	}
	return t, nil
}
