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
	"math"
	"os"
)

// LexTable holds the lexical translation table: (s, t) -> (num, den),
// with p(t|s) = (num+eps)/(den+eps*|Vt|) smoothed against SWProbSmooth.
// It is a two-level sparse map keyed by the conditioning word s on the
// outside and the predicted word t on the inside.
type LexTable struct {
	outer map[int]map[int]*NumDen
	vSize int // |V_t|, used by the epsilon-smoothed probability formula
}

// NewLexTable creates an empty lexical table. vocabSize is the target
// vocabulary size |V_t| used in the epsilon-smoothing formula.
func NewLexTable(vocabSize int) *LexTable {
	return &LexTable{outer: make(map[int]map[int]*NumDen), vSize: vocabSize}
}

func (t *LexTable) entry(s, trg int) (*NumDen, bool) {
	inner, ok := t.outer[s]
	if !ok {
		return nil, false
	}
	nd, ok := inner[trg]
	return nd, ok
}

func (t *LexTable) ensure(s, trg int) *NumDen {
	inner, ok := t.outer[s]
	if !ok {
		inner = make(map[int]*NumDen)
		t.outer[s] = inner
	}
	nd, ok := inner[trg]
	if !ok {
		nd = &NumDen{}
		inner[trg] = nd
	}
	return nd
}

// ReserveSpace ensures (s, trg) exists with zero counts; idempotent.
func (t *LexTable) ReserveSpace(s, trg int) {
	t.ensure(s, trg)
}

// SetNum sets the numerator of (s, trg).
func (t *LexTable) SetNum(s, trg int, v float64) {
	t.ensure(s, trg).Num = v
}

// SetDen sets the denominator of (s, trg).
func (t *LexTable) SetDen(s, trg int, v float64) {
	t.ensure(s, trg).Den = v
}

// SetNumDen sets both fields of (s, trg) at once.
func (t *LexTable) SetNumDen(s, trg int, num, den float64) {
	nd := t.ensure(s, trg)
	nd.Num = num
	nd.Den = den
}

// AddNum accumulates delta into the numerator of (s, trg), creating the
// entry if necessary. Used by the E-step accumulators.
func (t *LexTable) AddNum(s, trg int, delta float64) {
	t.ensure(s, trg).Num += delta
}

// AddDen accumulates delta into the denominator of (s, trg).
func (t *LexTable) AddDen(s, trg int, delta float64) {
	t.ensure(s, trg).Den += delta
}

// GetNum returns the numerator of (s, trg) and whether it was present.
func (t *LexTable) GetNum(s, trg int) (float64, bool) {
	nd, ok := t.entry(s, trg)
	if !ok {
		return 0, false
	}
	return nd.Num, true
}

// GetDen returns the denominator of (s, trg) and whether it was present.
func (t *LexTable) GetDen(s, trg int) (float64, bool) {
	nd, ok := t.entry(s, trg)
	if !ok {
		return 0, false
	}
	return nd.Den, true
}

// InnerKeys returns the target words observed for conditioning word s,
// the iteration order the M-step (batchMaximizeProbs) relies on to
// process one inner vector at a time.
func (t *LexTable) InnerKeys(s int) []int {
	inner, ok := t.outer[s]
	if !ok {
		return nil
	}
	ans := make([]int, 0, len(inner))
	for k := range inner {
		ans = append(ans, k)
	}
	return ans
}

// OuterKeys returns every conditioning word s with at least one entry.
func (t *LexTable) OuterKeys() []int {
	ans := make([]int, 0, len(t.outer))
	for k := range t.outer {
		ans = append(ans, k)
	}
	return ans
}

// Prob computes p(trg|s) with epsilon smoothing against a uniform
// floor. eps is typically SWProbSmooth.
func (t *LexTable) Prob(s, trg int, eps float64) float64 {
	nd, ok := t.entry(s, trg)
	den := 0.0
	num := 0.0
	if ok {
		den = nd.Den
		num = nd.Num
	}
	if den == 0 && num == 0 {
		return SWProbSmooth
	}
	p := (num + eps) / (den + eps*float64(t.vSize))
	if p <= 0 {
		return SWProbSmooth
	}
	return p
}

// LogProb returns log p(trg|s), the logarithm of what Prob returns.
func (t *LexTable) LogProb(s, trg int, eps float64) float64 {
	return math.Log(t.Prob(s, trg, eps))
}

// Clear discards all entries.
func (t *LexTable) Clear() {
	t.outer = make(map[int]map[int]*NumDen)
}

// ZeroCounts resets every entry's numerator and denominator to zero
// while keeping the reserved (s, t) skeleton intact, so a fresh EM
// iteration's E-step overwrites rather than accumulates onto the
// previous iteration's counts.
func (t *LexTable) ZeroCounts() {
	for _, inner := range t.outer {
		for _, nd := range inner {
			nd.Num = 0
			nd.Den = 0
		}
	}
}

// MaximizeRow normalizes the inner vector for conditioning word s so
// that sum(num) == den for each entry's shared denominator.
func (t *LexTable) MaximizeRow(s int) {
	inner, ok := t.outer[s]
	if !ok {
		return
	}
	var total float64
	for _, nd := range inner {
		total += nd.Num
	}
	for _, nd := range inner {
		nd.Den = total
	}
}

// PrintText writes "s t num den\n" records.
func (t *LexTable) PrintText(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print lex table: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for s, inner := range t.outer {
		for trg, nd := range inner {
			if _, err := fmt.Fprintf(w, "%d %d %.8g %.8g\n", s, trg, nd.Num, nd.Den); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

// LoadLexTableText reads the format written by PrintText.
func LoadLexTableText(path string, vocabSize int) (*LexTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load lex table: %w", err)
	}
	defer f.Close()
	t := NewLexTable(vocabSize)
	sc := bufio.NewScanner(f)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if line == "" {
			continue
		}
		var s, trg int
		var num, den float64
		if _, err := fmt.Sscanf(line, "%d %d %g %g", &s, &trg, &num, &den); err != nil {
			t.Clear()
			return nil, fmt.Errorf("malformed lex record at line %d: %w", lineNum, err)
		}
		t.SetNumDen(s, trg, num, den)
	}
	if err := sc.Err(); err != nil {
		t.Clear()
		return nil, fmt.Errorf("failed to load lex table: %w", err)
	}
	return t, nil
}

// PrintBinary writes fixed-width little-endian (s uint32, t uint32,
// num float32, den float32) records until EOF.
func (t *LexTable) PrintBinary(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print lex table: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for s, inner := range t.outer {
		for trg, nd := range inner {
			if err := writeLexRecord(w, s, trg, nd); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

func writeLexRecord(w io.Writer, s, trg int, nd *NumDen) error {
	for _, v := range []uint32{uint32(s), uint32(trg)} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for _, v := range []float32{float32(nd.Num), float32(nd.Den)} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

// LoadLexTableBinary reads the format written by PrintBinary, looping
// until io.EOF rather than stopping after the first record.
func LoadLexTableBinary(path string, vocabSize int) (*LexTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load lex table: %w", err)
	}
	defer f.Close()
	t := NewLexTable(vocabSize)
	r := bufio.NewReader(f)
	for {
		var s, trg uint32
		var num, den float32
		if err := binary.Read(r, binary.LittleEndian, &s); err != nil {
			if err == io.EOF {
				break
			}
			t.Clear()
			return nil, fmt.Errorf("failed to load lex table: %w", err)
		}
		for _, dst := range []interface{}{&trg, &num, &den} {
			if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
				t.Clear()
				return nil, fmt.Errorf("failed to load lex table: %w", err)
			}
		}
		t.SetNumDen(int(s), int(trg), float64(num), float64(den))
	}
	return t, nil
}
