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

// HMMAligKey identifies an outer conditioning entry of the HMM
// transition table: the previous source position (0 = the sentence
// start, before the first target word) and the sentence length.
type HMMAligKey struct {
	PrevI, SLen int
}

// HMMAligTable holds the HMM transition table: (prev_i, slen, i) ->
// (num, den), dense over i in [0, slen].
type HMMAligTable struct {
	outer map[HMMAligKey][]NumDen
}

// NewHMMAligTable creates an empty table.
func NewHMMAligTable() *HMMAligTable {
	return &HMMAligTable{outer: make(map[HMMAligKey][]NumDen)}
}

func (t *HMMAligTable) ensureRow(k HMMAligKey) []NumDen {
	row, ok := t.outer[k]
	if !ok || len(row) < k.SLen+1 {
		newRow := make([]NumDen, k.SLen+1)
		copy(newRow, row)
		t.outer[k] = newRow
		return newRow
	}
	return row
}

// ReserveSpace ensures (k, i) exists with zero counts.
func (t *HMMAligTable) ReserveSpace(k HMMAligKey, i int) {
	t.ensureRow(k)
}

// SetNum sets the numerator at (k, i).
func (t *HMMAligTable) SetNum(k HMMAligKey, i int, v float64) {
	t.ensureRow(k)[i].Num = v
}

// SetDen sets the denominator at (k, i).
func (t *HMMAligTable) SetDen(k HMMAligKey, i int, v float64) {
	t.ensureRow(k)[i].Den = v
}

// SetNumDen sets both fields at (k, i).
func (t *HMMAligTable) SetNumDen(k HMMAligKey, i int, num, den float64) {
	row := t.ensureRow(k)
	row[i].Num = num
	row[i].Den = den
}

// AddNum accumulates delta into the numerator at (k, i).
func (t *HMMAligTable) AddNum(k HMMAligKey, i int, delta float64) {
	t.ensureRow(k)[i].Num += delta
}

// AddDen accumulates delta into the denominator at (k, i).
func (t *HMMAligTable) AddDen(k HMMAligKey, i int, delta float64) {
	t.ensureRow(k)[i].Den += delta
}

// GetNum returns the numerator at (k, i); found is false beyond the
// stored vector.
func (t *HMMAligTable) GetNum(k HMMAligKey, i int) (float64, bool) {
	row, ok := t.outer[k]
	if !ok || i < 0 || i >= len(row) {
		return 0, false
	}
	return row[i].Num, true
}

// GetDen returns the denominator at (k, i).
func (t *HMMAligTable) GetDen(k HMMAligKey, i int) (float64, bool) {
	row, ok := t.outer[k]
	if !ok || i < 0 || i >= len(row) {
		return 0, false
	}
	return row[i].Den, true
}

// Prob derives a(i | prev_i, slen), smoothed by interpolation with a
// uniform distribution, applied by
// the caller; this returns the raw estimate only.
func (t *HMMAligTable) Prob(k HMMAligKey, i int) float64 {
	row, ok := t.outer[k]
	if !ok || i < 0 || i >= len(row) {
		return 1.0 / float64(k.SLen+1)
	}
	return row[i].Prob(1.0 / float64(k.SLen+1))
}

// MaximizeRow renormalizes the inner vector at k.
func (t *HMMAligTable) MaximizeRow(k HMMAligKey) {
	row, ok := t.outer[k]
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

// Keys returns every outer key with at least one entry.
func (t *HMMAligTable) Keys() []HMMAligKey {
	ans := make([]HMMAligKey, 0, len(t.outer))
	for k := range t.outer {
		ans = append(ans, k)
	}
	return ans
}

// Clear discards all entries.
func (t *HMMAligTable) Clear() {
	t.outer = make(map[HMMAligKey][]NumDen)
}

// ZeroCounts resets every entry's numerator and denominator to zero
// while keeping the reserved skeleton intact.
func (t *HMMAligTable) ZeroCounts() {
	for k, row := range t.outer {
		for i := range row {
			row[i] = NumDen{}
		}
		t.outer[k] = row
	}
}

// PrintText writes "prevI slen i num den\n" records.
func (t *HMMAligTable) PrintText(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print HMM alignment table: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for k, row := range t.outer {
		for i, nd := range row {
			if _, err := fmt.Fprintf(w, "%d %d %d %.8g %.8g\n", k.PrevI, k.SLen, i, nd.Num, nd.Den); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

// LoadHMMAligTableText reads the format written by PrintText.
//
// Note: the reference implementation's binary load routine was found to
// contain a loop that unconditionally terminates after the first
// record, truncating the table. This implementation (and its binary
// counterpart below) deliberately loops until EOF instead.
func LoadHMMAligTableText(path string) (*HMMAligTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load HMM alignment table: %w", err)
	}
	defer f.Close()
	t := NewHMMAligTable()
	sc := bufio.NewScanner(f)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if line == "" {
			continue
		}
		var prevI, slen, i int
		var num, den float64
		if _, err := fmt.Sscanf(line, "%d %d %d %g %g", &prevI, &slen, &i, &num, &den); err != nil {
			t.Clear()
			return nil, fmt.Errorf("malformed HMM alignment record at line %d: %w", lineNum, err)
		}
		t.SetNumDen(HMMAligKey{PrevI: prevI, SLen: slen}, i, num, den)
	}
	if err := sc.Err(); err != nil {
		t.Clear()
		return nil, fmt.Errorf("failed to load HMM alignment table: %w", err)
	}
	return t, nil
}

// PrintBinary writes fixed-width little-endian (prevI,slen,i uint32,
// num,den float32) records until EOF.
func (t *HMMAligTable) PrintBinary(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print HMM alignment table: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for k, row := range t.outer {
		for i, nd := range row {
			vals := []uint32{uint32(k.PrevI), uint32(k.SLen), uint32(i)}
			for _, v := range vals {
				if err := binary.Write(w, binary.LittleEndian, v); err != nil {
					return err
				}
			}
			for _, v := range []float32{float32(nd.Num), float32(nd.Den)} {
				if err := binary.Write(w, binary.LittleEndian, v); err != nil {
					return err
				}
			}
		}
	}
	return w.Flush()
}

// LoadHMMAligTableBinary reads until io.EOF — see the note on
// LoadHMMAligTableText regarding the truncation bug this deliberately
// avoids.
func LoadHMMAligTableBinary(path string) (*HMMAligTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load HMM alignment table: %w", err)
	}
	defer f.Close()
	t := NewHMMAligTable()
	r := bufio.NewReader(f)
	for {
		var prevI uint32
		if err := binary.Read(r, binary.LittleEndian, &prevI); err != nil {
			if err == io.EOF {
				break
			}
			t.Clear()
			return nil, fmt.Errorf("failed to load HMM alignment table: %w", err)
		}
		var slen, i uint32
		var num, den float32
		for _, dst := range []interface{}{&slen, &i, &num, &den} {
			if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
				t.Clear()
				return nil, fmt.Errorf("failed to load HMM alignment table: %w", err)
			}
		}
		t.SetNumDen(HMMAligKey{PrevI: int(prevI), SLen: int(slen)}, int(i), float64(num), float64(den))
	}
	return t, nil
}
