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

// IBM2AligKey identifies an outer conditioning entry of the IBM2
// positional alignment table.
type IBM2AligKey struct {
	J, SLen, TLen int
}

// IBM2AligTable holds the IBM2 positional alignment table: (j, slen,
// tlen, i) -> (num, den), with the inner vector dense over i in [0,
// slen] — a lookup past the stored vector's length reports
// found = false rather than growing it implicitly.
type IBM2AligTable struct {
	outer map[IBM2AligKey][]NumDen
}

// NewIBM2AligTable creates an empty table.
func NewIBM2AligTable() *IBM2AligTable {
	return &IBM2AligTable{outer: make(map[IBM2AligKey][]NumDen)}
}

func (t *IBM2AligTable) ensureRow(k IBM2AligKey) []NumDen {
	row, ok := t.outer[k]
	if !ok || len(row) < k.SLen+1 {
		newRow := make([]NumDen, k.SLen+1)
		copy(newRow, row)
		t.outer[k] = newRow
		return newRow
	}
	return row
}

// ReserveSpace ensures (k, i) exists with zero counts; idempotent.
func (t *IBM2AligTable) ReserveSpace(k IBM2AligKey, i int) {
	t.ensureRow(k)
}

// SetNum sets the numerator at (k, i).
func (t *IBM2AligTable) SetNum(k IBM2AligKey, i int, v float64) {
	row := t.ensureRow(k)
	row[i].Num = v
}

// SetDen sets the denominator at (k, i).
func (t *IBM2AligTable) SetDen(k IBM2AligKey, i int, v float64) {
	row := t.ensureRow(k)
	row[i].Den = v
}

// SetNumDen sets both fields at (k, i).
func (t *IBM2AligTable) SetNumDen(k IBM2AligKey, i int, num, den float64) {
	row := t.ensureRow(k)
	row[i].Num = num
	row[i].Den = den
}

// AddNum accumulates delta into the numerator at (k, i).
func (t *IBM2AligTable) AddNum(k IBM2AligKey, i int, delta float64) {
	row := t.ensureRow(k)
	row[i].Num += delta
}

// AddDen accumulates delta into the denominator at (k, i).
func (t *IBM2AligTable) AddDen(k IBM2AligKey, i int, delta float64) {
	row := t.ensureRow(k)
	row[i].Den += delta
}

// GetNum returns the numerator at (k, i); found is false when i lies
// beyond the stored vector.
func (t *IBM2AligTable) GetNum(k IBM2AligKey, i int) (float64, bool) {
	row, ok := t.outer[k]
	if !ok || i < 0 || i >= len(row) {
		return 0, false
	}
	return row[i].Num, true
}

// GetDen returns the denominator at (k, i); same bounds rule as GetNum.
func (t *IBM2AligTable) GetDen(k IBM2AligKey, i int) (float64, bool) {
	row, ok := t.outer[k]
	if !ok || i < 0 || i >= len(row) {
		return 0, false
	}
	return row[i].Den, true
}

// Prob derives a(i|j,slen,tlen) with a uniform fallback when absent.
func (t *IBM2AligTable) Prob(k IBM2AligKey, i int) float64 {
	row, ok := t.outer[k]
	if !ok || i < 0 || i >= len(row) {
		return 1.0 / float64(k.SLen+1)
	}
	return row[i].Prob(1.0 / float64(k.SLen+1))
}

// MaximizeRow renormalizes the inner vector at k so sum(num) == den for
// every entry.
func (t *IBM2AligTable) MaximizeRow(k IBM2AligKey) {
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
func (t *IBM2AligTable) Keys() []IBM2AligKey {
	ans := make([]IBM2AligKey, 0, len(t.outer))
	for k := range t.outer {
		ans = append(ans, k)
	}
	return ans
}

// Clear discards all entries.
func (t *IBM2AligTable) Clear() {
	t.outer = make(map[IBM2AligKey][]NumDen)
}

// ZeroCounts resets every entry's counts while keeping the reserved key
// skeleton, so each EM iteration overwrites rather than accumulates.
func (t *IBM2AligTable) ZeroCounts() {
	for _, row := range t.outer {
		for i := range row {
			row[i] = NumDen{}
		}
	}
}

// PrintText writes "j slen tlen i num den\n" records.
func (t *IBM2AligTable) PrintText(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print IBM2 alignment table: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for k, row := range t.outer {
		for i, nd := range row {
			if _, err := fmt.Fprintf(w, "%d %d %d %d %.8g %.8g\n", k.J, k.SLen, k.TLen, i, nd.Num, nd.Den); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

// LoadIBM2AligTableText reads the format written by PrintText.
func LoadIBM2AligTableText(path string) (*IBM2AligTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load IBM2 alignment table: %w", err)
	}
	defer f.Close()
	t := NewIBM2AligTable()
	sc := bufio.NewScanner(f)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if line == "" {
			continue
		}
		var j, slen, tlen, i int
		var num, den float64
		if _, err := fmt.Sscanf(line, "%d %d %d %d %g %g", &j, &slen, &tlen, &i, &num, &den); err != nil {
			t.Clear()
			return nil, fmt.Errorf("malformed IBM2 alignment record at line %d: %w", lineNum, err)
		}
		t.SetNumDen(IBM2AligKey{J: j, SLen: slen, TLen: tlen}, i, num, den)
	}
	if err := sc.Err(); err != nil {
		t.Clear()
		return nil, fmt.Errorf("failed to load IBM2 alignment table: %w", err)
	}
	return t, nil
}

// PrintBinary writes fixed-width little-endian (j,slen,tlen,i uint32,
// num,den float32) records until EOF.
func (t *IBM2AligTable) PrintBinary(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print IBM2 alignment table: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for k, row := range t.outer {
		for i, nd := range row {
			vals := []uint32{uint32(k.J), uint32(k.SLen), uint32(k.TLen), uint32(i)}
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

// LoadIBM2AligTableBinary reads the format written by PrintBinary,
// looping until io.EOF.
func LoadIBM2AligTableBinary(path string) (*IBM2AligTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load IBM2 alignment table: %w", err)
	}
	defer f.Close()
	t := NewIBM2AligTable()
	r := bufio.NewReader(f)
	for {
		var j uint32
		if err := binary.Read(r, binary.LittleEndian, &j); err != nil {
			if err == io.EOF {
				break
			}
			t.Clear()
			return nil, fmt.Errorf("failed to load IBM2 alignment table: %w", err)
		}
		var slen, tlen, i uint32
		var num, den float32
		for _, dst := range []interface{}{&slen, &tlen, &i, &num, &den} {
			if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
				t.Clear()
				return nil, fmt.Errorf("failed to load IBM2 alignment table: %w", err)
			}
		}
		t.SetNumDen(IBM2AligKey{J: int(j), SLen: int(slen), TLen: int(tlen)}, int(i), float64(num), float64(den))
	}
	return t, nil
}
