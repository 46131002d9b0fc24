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

// HeadDistortionKey conditions a cept's head displacement on the source
// word class of the previous cept (NullClass for a sentence's first
// cept) and the target word class of the cept's head target word.
type HeadDistortionKey struct {
	SrcClass, TrgClass int
}

// HeadDistortionTable holds (srcClass, trgClass, dj) -> (num, den), dj
// signed (head_j - center_of_previous_cept) and unbounded, so the inner
// level is a sparse map rather than a dense vector.
type HeadDistortionTable struct {
	outer  map[HeadDistortionKey]map[int]*NumDen
	smooth float64
}

// NewHeadDistortionTable creates an empty table. smoothFactor is the
// interpolation weight against a uniform distribution used by Prob; 0
// disables smoothing and returns the raw estimate.
func NewHeadDistortionTable(smoothFactor float64) *HeadDistortionTable {
	return &HeadDistortionTable{outer: make(map[HeadDistortionKey]map[int]*NumDen), smooth: smoothFactor}
}

func (t *HeadDistortionTable) ensure(k HeadDistortionKey, dj int) *NumDen {
	inner, ok := t.outer[k]
	if !ok {
		inner = make(map[int]*NumDen)
		t.outer[k] = inner
	}
	nd, ok := inner[dj]
	if !ok {
		nd = &NumDen{}
		inner[dj] = nd
	}
	return nd
}

func (t *HeadDistortionTable) entry(k HeadDistortionKey, dj int) (*NumDen, bool) {
	inner, ok := t.outer[k]
	if !ok {
		return nil, false
	}
	nd, ok := inner[dj]
	return nd, ok
}

// ReserveSpace ensures (k, dj) exists with zero counts.
func (t *HeadDistortionTable) ReserveSpace(k HeadDistortionKey, dj int) {
	t.ensure(k, dj)
}

// SetNum sets the numerator at (k, dj).
func (t *HeadDistortionTable) SetNum(k HeadDistortionKey, dj int, v float64) {
	t.ensure(k, dj).Num = v
}

// SetDen sets the denominator at (k, dj).
func (t *HeadDistortionTable) SetDen(k HeadDistortionKey, dj int, v float64) {
	t.ensure(k, dj).Den = v
}

// SetNumDen sets both fields at (k, dj).
func (t *HeadDistortionTable) SetNumDen(k HeadDistortionKey, dj int, num, den float64) {
	nd := t.ensure(k, dj)
	nd.Num = num
	nd.Den = den
}

// AddNum accumulates delta into the numerator at (k, dj).
func (t *HeadDistortionTable) AddNum(k HeadDistortionKey, dj int, delta float64) {
	t.ensure(k, dj).Num += delta
}

// AddDen accumulates delta into the denominator at (k, dj).
func (t *HeadDistortionTable) AddDen(k HeadDistortionKey, dj int, delta float64) {
	t.ensure(k, dj).Den += delta
}

// GetNum returns the numerator at (k, dj).
func (t *HeadDistortionTable) GetNum(k HeadDistortionKey, dj int) (float64, bool) {
	nd, ok := t.entry(k, dj)
	if !ok {
		return 0, false
	}
	return nd.Num, true
}

// GetDen returns the denominator at (k, dj).
func (t *HeadDistortionTable) GetDen(k HeadDistortionKey, dj int) (float64, bool) {
	nd, ok := t.entry(k, dj)
	if !ok {
		return 0, false
	}
	return nd.Den, true
}

// Prob returns the head displacement probability for a sentence of
// target length tlen, linearly interpolated with a uniform distribution
// over the tlen-1 distinct displacement magnitudes; at smooth == 0 the
// raw estimate is returned, and a missing entry defaults to
// SWProbSmooth.
func (t *HeadDistortionTable) Prob(k HeadDistortionKey, dj, tlen int) float64 {
	raw := SWProbSmooth
	if nd, ok := t.entry(k, dj); ok {
		raw = nd.Prob(SWProbSmooth)
	}
	if t.smooth == 0 || tlen <= 1 {
		return raw
	}
	uniform := 1.0 / float64(tlen-1)
	return (1-t.smooth)*raw + t.smooth*uniform
}

// MaximizeRow renormalizes the inner map at k.
func (t *HeadDistortionTable) MaximizeRow(k HeadDistortionKey) {
	inner, ok := t.outer[k]
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

// Keys returns every (srcClass, trgClass) pair with at least one entry.
func (t *HeadDistortionTable) Keys() []HeadDistortionKey {
	ans := make([]HeadDistortionKey, 0, len(t.outer))
	for k := range t.outer {
		ans = append(ans, k)
	}
	return ans
}

// Clear discards all entries.
func (t *HeadDistortionTable) Clear() {
	t.outer = make(map[HeadDistortionKey]map[int]*NumDen)
}

// ZeroCounts resets every entry's counts while keeping the reserved key
// skeleton.
func (t *HeadDistortionTable) ZeroCounts() {
	for _, inner := range t.outer {
		for _, nd := range inner {
			nd.Num = 0
			nd.Den = 0
		}
	}
}

// PrintText writes "srcClass trgClass dj num den\n" records.
func (t *HeadDistortionTable) PrintText(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print head distortion table: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for k, inner := range t.outer {
		for dj, nd := range inner {
			if _, err := fmt.Fprintf(w, "%d %d %d %.8g %.8g\n", k.SrcClass, k.TrgClass, dj, nd.Num, nd.Den); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

// LoadHeadDistortionTableText reads the format written by PrintText.
func LoadHeadDistortionTableText(path string, smoothFactor float64) (*HeadDistortionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load head distortion table: %w", err)
	}
	defer f.Close()
	t := NewHeadDistortionTable(smoothFactor)
	sc := bufio.NewScanner(f)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if line == "" {
			continue
		}
		var srcClass, trgClass, dj int
		var num, den float64
		if _, err := fmt.Sscanf(line, "%d %d %d %g %g", &srcClass, &trgClass, &dj, &num, &den); err != nil {
			t.Clear()
			return nil, fmt.Errorf("malformed head distortion record at line %d: %w", lineNum, err)
		}
		t.SetNumDen(HeadDistortionKey{SrcClass: srcClass, TrgClass: trgClass}, dj, num, den)
	}
	if err := sc.Err(); err != nil {
		t.Clear()
		return nil, fmt.Errorf("failed to load head distortion table: %w", err)
	}
	return t, nil
}

// PrintBinary writes fixed-width little-endian (srcClass,trgClass
// uint32, dj int32, num,den float32) records until EOF.
func (t *HeadDistortionTable) PrintBinary(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print head distortion table: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for k, inner := range t.outer {
		for dj, nd := range inner {
			if err := binary.Write(w, binary.LittleEndian, uint32(k.SrcClass)); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, uint32(k.TrgClass)); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, int32(dj)); err != nil {
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

// LoadHeadDistortionTableBinary reads until io.EOF.
func LoadHeadDistortionTableBinary(path string, smoothFactor float64) (*HeadDistortionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load head distortion table: %w", err)
	}
	defer f.Close()
	t := NewHeadDistortionTable(smoothFactor)
	r := bufio.NewReader(f)
	for {
		var srcClass uint32
		if err := binary.Read(r, binary.LittleEndian, &srcClass); err != nil {
			if err == io.EOF {
				break
			}
			t.Clear()
			return nil, fmt.Errorf("failed to load head distortion table: %w", err)
		}
		var trgClass uint32
		var dj int32
		var num, den float32
		for _, dst := range []interface{}{&trgClass, &dj, &num, &den} {
			if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
				t.Clear()
				return nil, fmt.Errorf("failed to load head distortion table: %w", err)
			}
		}
		t.SetNumDen(HeadDistortionKey{SrcClass: int(srcClass), TrgClass: int(trgClass)}, int(dj), float64(num), float64(den))
	}
	return t, nil
}

// NonHeadDistortionTable holds (trgClass, dj) -> (num, den) for
// non-head cept members, dj = j - j_prev_in_cept strictly positive.
type NonHeadDistortionTable struct {
	outer  map[int]map[int]*NumDen
	smooth float64
}

// NewNonHeadDistortionTable creates an empty table.
func NewNonHeadDistortionTable(smoothFactor float64) *NonHeadDistortionTable {
	return &NonHeadDistortionTable{outer: make(map[int]map[int]*NumDen), smooth: smoothFactor}
}

func (t *NonHeadDistortionTable) ensure(trgClass, dj int) *NumDen {
	inner, ok := t.outer[trgClass]
	if !ok {
		inner = make(map[int]*NumDen)
		t.outer[trgClass] = inner
	}
	nd, ok := inner[dj]
	if !ok {
		nd = &NumDen{}
		inner[dj] = nd
	}
	return nd
}

func (t *NonHeadDistortionTable) entry(trgClass, dj int) (*NumDen, bool) {
	inner, ok := t.outer[trgClass]
	if !ok {
		return nil, false
	}
	nd, ok := inner[dj]
	return nd, ok
}

// ReserveSpace ensures (trgClass, dj) exists with zero counts.
func (t *NonHeadDistortionTable) ReserveSpace(trgClass, dj int) {
	t.ensure(trgClass, dj)
}

// SetNum sets the numerator at (trgClass, dj).
func (t *NonHeadDistortionTable) SetNum(trgClass, dj int, v float64) {
	t.ensure(trgClass, dj).Num = v
}

// SetDen sets the denominator at (trgClass, dj).
func (t *NonHeadDistortionTable) SetDen(trgClass, dj int, v float64) {
	t.ensure(trgClass, dj).Den = v
}

// SetNumDen sets both fields at (trgClass, dj).
func (t *NonHeadDistortionTable) SetNumDen(trgClass, dj int, num, den float64) {
	nd := t.ensure(trgClass, dj)
	nd.Num = num
	nd.Den = den
}

// AddNum accumulates delta into the numerator at (trgClass, dj).
func (t *NonHeadDistortionTable) AddNum(trgClass, dj int, delta float64) {
	t.ensure(trgClass, dj).Num += delta
}

// AddDen accumulates delta into the denominator at (trgClass, dj).
func (t *NonHeadDistortionTable) AddDen(trgClass, dj int, delta float64) {
	t.ensure(trgClass, dj).Den += delta
}

// GetNum returns the numerator at (trgClass, dj).
func (t *NonHeadDistortionTable) GetNum(trgClass, dj int) (float64, bool) {
	nd, ok := t.entry(trgClass, dj)
	if !ok {
		return 0, false
	}
	return nd.Num, true
}

// GetDen returns the denominator at (trgClass, dj).
func (t *NonHeadDistortionTable) GetDen(trgClass, dj int) (float64, bool) {
	nd, ok := t.entry(trgClass, dj)
	if !ok {
		return 0, false
	}
	return nd.Den, true
}

// Prob returns the non-head displacement probability for a sentence of
// target length tlen, interpolated with a uniform distribution over the
// tlen-1 distinct displacement magnitudes; 0 disables smoothing and a
// missing entry defaults to SWProbSmooth.
func (t *NonHeadDistortionTable) Prob(trgClass, dj, tlen int) float64 {
	raw := SWProbSmooth
	if nd, ok := t.entry(trgClass, dj); ok {
		raw = nd.Prob(SWProbSmooth)
	}
	if t.smooth == 0 || tlen <= 1 {
		return raw
	}
	uniform := 1.0 / float64(tlen-1)
	return (1-t.smooth)*raw + t.smooth*uniform
}

// MaximizeRow renormalizes the inner map at trgClass.
func (t *NonHeadDistortionTable) MaximizeRow(trgClass int) {
	inner, ok := t.outer[trgClass]
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

// Keys returns every target class with at least one entry.
func (t *NonHeadDistortionTable) Keys() []int {
	ans := make([]int, 0, len(t.outer))
	for k := range t.outer {
		ans = append(ans, k)
	}
	return ans
}

// Clear discards all entries.
func (t *NonHeadDistortionTable) Clear() {
	t.outer = make(map[int]map[int]*NumDen)
}

// ZeroCounts resets every entry's counts while keeping the reserved key
// skeleton.
func (t *NonHeadDistortionTable) ZeroCounts() {
	for _, inner := range t.outer {
		for _, nd := range inner {
			nd.Num = 0
			nd.Den = 0
		}
	}
}

// PrintText writes "trgClass dj num den\n" records.
func (t *NonHeadDistortionTable) PrintText(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print non-head distortion table: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for trgClass, inner := range t.outer {
		for dj, nd := range inner {
			if _, err := fmt.Fprintf(w, "%d %d %.8g %.8g\n", trgClass, dj, nd.Num, nd.Den); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

// LoadNonHeadDistortionTableText reads the format written by PrintText.
func LoadNonHeadDistortionTableText(path string, smoothFactor float64) (*NonHeadDistortionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load non-head distortion table: %w", err)
	}
	defer f.Close()
	t := NewNonHeadDistortionTable(smoothFactor)
	sc := bufio.NewScanner(f)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if line == "" {
			continue
		}
		var trgClass, dj int
		var num, den float64
		if _, err := fmt.Sscanf(line, "%d %d %g %g", &trgClass, &dj, &num, &den); err != nil {
			t.Clear()
			return nil, fmt.Errorf("malformed non-head distortion record at line %d: %w", lineNum, err)
		}
		t.SetNumDen(trgClass, dj, num, den)
	}
	if err := sc.Err(); err != nil {
		t.Clear()
		return nil, fmt.Errorf("failed to load non-head distortion table: %w", err)
	}
	return t, nil
}

// PrintBinary writes fixed-width little-endian (trgClass uint32, dj
// int32, num,den float32) records until EOF.
func (t *NonHeadDistortionTable) PrintBinary(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print non-head distortion table: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for trgClass, inner := range t.outer {
		for dj, nd := range inner {
			if err := binary.Write(w, binary.LittleEndian, uint32(trgClass)); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, int32(dj)); err != nil {
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

// LoadNonHeadDistortionTableBinary reads until io.EOF.
func LoadNonHeadDistortionTableBinary(path string, smoothFactor float64) (*NonHeadDistortionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load non-head distortion table: %w", err)
	}
	defer f.Close()
	t := NewNonHeadDistortionTable(smoothFactor)
	r := bufio.NewReader(f)
	for {
		var trgClass uint32
		if err := binary.Read(r, binary.LittleEndian, &trgClass); err != nil {
			if err == io.EOF {
				break
			}
			t.Clear()
			return nil, fmt.Errorf("failed to load non-head distortion table: %w", err)
		}
		var dj int32
		var num, den float32
		for _, dst := range []interface{}{&dj, &num, &den} {
			if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
				t.Clear()
				return nil, fmt.Errorf("failed to load non-head distortion table: %w", err)
			}
		}
		t.SetNumDen(int(trgClass), int(dj), float64(num), float64(den))
	}
	return t, nil
}
