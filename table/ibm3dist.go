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

// IBM3DistortionKey identifies an outer conditioning entry of the IBM3
// position-dependent distortion table: source position, source length
// and target length.
type IBM3DistortionKey struct {
	I, SLen, TLen int
}

// IBM3DistortionTable holds d(j | i, slen, tlen): (i, slen, tlen, j) ->
// (num, den), dense over j in [0, tlen].
type IBM3DistortionTable struct {
	outer map[IBM3DistortionKey][]NumDen
}

// NewIBM3DistortionTable creates an empty table.
func NewIBM3DistortionTable() *IBM3DistortionTable {
	return &IBM3DistortionTable{outer: make(map[IBM3DistortionKey][]NumDen)}
}

func (t *IBM3DistortionTable) ensureRow(k IBM3DistortionKey) []NumDen {
	row, ok := t.outer[k]
	if !ok || len(row) < k.TLen+1 {
		newRow := make([]NumDen, k.TLen+1)
		copy(newRow, row)
		t.outer[k] = newRow
		return newRow
	}
	return row
}

// ReserveSpace ensures (k, j) exists with zero counts.
func (t *IBM3DistortionTable) ReserveSpace(k IBM3DistortionKey, j int) {
	t.ensureRow(k)
}

// SetNum sets the numerator at (k, j).
func (t *IBM3DistortionTable) SetNum(k IBM3DistortionKey, j int, v float64) {
	t.ensureRow(k)[j].Num = v
}

// SetDen sets the denominator at (k, j).
func (t *IBM3DistortionTable) SetDen(k IBM3DistortionKey, j int, v float64) {
	t.ensureRow(k)[j].Den = v
}

// SetNumDen sets both fields at (k, j).
func (t *IBM3DistortionTable) SetNumDen(k IBM3DistortionKey, j int, num, den float64) {
	row := t.ensureRow(k)
	row[j].Num = num
	row[j].Den = den
}

// AddNum accumulates delta into the numerator at (k, j).
func (t *IBM3DistortionTable) AddNum(k IBM3DistortionKey, j int, delta float64) {
	t.ensureRow(k)[j].Num += delta
}

// AddDen accumulates delta into the denominator at (k, j).
func (t *IBM3DistortionTable) AddDen(k IBM3DistortionKey, j int, delta float64) {
	t.ensureRow(k)[j].Den += delta
}

// GetNum returns the numerator at (k, j); found is false beyond the
// stored vector.
func (t *IBM3DistortionTable) GetNum(k IBM3DistortionKey, j int) (float64, bool) {
	row, ok := t.outer[k]
	if !ok || j < 0 || j >= len(row) {
		return 0, false
	}
	return row[j].Num, true
}

// GetDen returns the denominator at (k, j).
func (t *IBM3DistortionTable) GetDen(k IBM3DistortionKey, j int) (float64, bool) {
	row, ok := t.outer[k]
	if !ok || j < 0 || j >= len(row) {
		return 0, false
	}
	return row[j].Den, true
}

// Prob derives d(j|i,slen,tlen) with a uniform fallback when absent.
func (t *IBM3DistortionTable) Prob(k IBM3DistortionKey, j int) float64 {
	row, ok := t.outer[k]
	if !ok || j < 0 || j >= len(row) {
		return 1.0 / float64(k.TLen+1)
	}
	return row[j].Prob(1.0 / float64(k.TLen+1))
}

// MaximizeRow renormalizes the inner vector at k.
func (t *IBM3DistortionTable) MaximizeRow(k IBM3DistortionKey) {
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
func (t *IBM3DistortionTable) Keys() []IBM3DistortionKey {
	ans := make([]IBM3DistortionKey, 0, len(t.outer))
	for k := range t.outer {
		ans = append(ans, k)
	}
	return ans
}

// Clear discards all entries.
func (t *IBM3DistortionTable) Clear() {
	t.outer = make(map[IBM3DistortionKey][]NumDen)
}

// ZeroCounts resets every entry's counts while keeping the reserved key
// skeleton.
func (t *IBM3DistortionTable) ZeroCounts() {
	for _, row := range t.outer {
		for i := range row {
			row[i] = NumDen{}
		}
	}
}

// PrintText writes "i slen tlen j num den\n" records.
func (t *IBM3DistortionTable) PrintText(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print IBM3 distortion table: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for k, row := range t.outer {
		for j, nd := range row {
			if _, err := fmt.Fprintf(w, "%d %d %d %d %.8g %.8g\n", k.I, k.SLen, k.TLen, j, nd.Num, nd.Den); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

// LoadIBM3DistortionTableText reads the format written by PrintText.
func LoadIBM3DistortionTableText(path string) (*IBM3DistortionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load IBM3 distortion table: %w", err)
	}
	defer f.Close()
	t := NewIBM3DistortionTable()
	sc := bufio.NewScanner(f)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if line == "" {
			continue
		}
		var i, slen, tlen, j int
		var num, den float64
		if _, err := fmt.Sscanf(line, "%d %d %d %d %g %g", &i, &slen, &tlen, &j, &num, &den); err != nil {
			t.Clear()
			return nil, fmt.Errorf("malformed IBM3 distortion record at line %d: %w", lineNum, err)
		}
		t.SetNumDen(IBM3DistortionKey{I: i, SLen: slen, TLen: tlen}, j, num, den)
	}
	if err := sc.Err(); err != nil {
		t.Clear()
		return nil, fmt.Errorf("failed to load IBM3 distortion table: %w", err)
	}
	return t, nil
}

// PrintBinary writes fixed-width little-endian (i,slen,tlen,j uint32,
// num,den float32) records until EOF.
func (t *IBM3DistortionTable) PrintBinary(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print IBM3 distortion table: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for k, row := range t.outer {
		for j, nd := range row {
			vals := []uint32{uint32(k.I), uint32(k.SLen), uint32(k.TLen), uint32(j)}
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

// LoadIBM3DistortionTableBinary reads until io.EOF.
func LoadIBM3DistortionTableBinary(path string) (*IBM3DistortionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load IBM3 distortion table: %w", err)
	}
	defer f.Close()
	t := NewIBM3DistortionTable()
	r := bufio.NewReader(f)
	for {
		var i uint32
		if err := binary.Read(r, binary.LittleEndian, &i); err != nil {
			if err == io.EOF {
				break
			}
			t.Clear()
			return nil, fmt.Errorf("failed to load IBM3 distortion table: %w", err)
		}
		var slen, tlen, j uint32
		var num, den float32
		for _, dst := range []interface{}{&slen, &tlen, &j, &num, &den} {
			if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
				t.Clear()
				return nil, fmt.Errorf("failed to load IBM3 distortion table: %w", err)
			}
		}
		t.SetNumDen(IBM3DistortionKey{I: int(i), SLen: int(slen), TLen: int(tlen)}, int(j), float64(num), float64(den))
	}
	return t, nil
}
