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

package table_test

import (
	"path/filepath"
	"testing"

	"github.com/czcorpus/wordalign/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexTableNormalization(t *testing.T) {
	tbl := table.NewLexTable(100)
	tbl.AddNum(3, 7, 2)
	tbl.AddNum(3, 8, 6)
	tbl.MaximizeRow(3)

	num, ok := tbl.GetNum(3, 7)
	require.True(t, ok)
	assert.Equal(t, 2.0, num)
	den, ok := tbl.GetDen(3, 7)
	require.True(t, ok)
	assert.Equal(t, 8.0, den)
	assert.InDelta(t, 0.25, tbl.Prob(3, 7, 0), 1e-9)
}

func TestLexTableSmoothingFloor(t *testing.T) {
	tbl := table.NewLexTable(100)
	assert.Equal(t, table.SWProbSmooth, tbl.Prob(1, 2, table.SWProbSmooth))
	tbl.ReserveSpace(1, 2)
	p := tbl.Prob(1, 2, table.SWProbSmooth)
	assert.Greater(t, p, 0.0)
	assert.LessOrEqual(t, p, 1.0)
}

func TestLexTableZeroCountsKeepsSkeleton(t *testing.T) {
	tbl := table.NewLexTable(10)
	tbl.SetNumDen(1, 2, 3, 4)
	tbl.ZeroCounts()
	num, ok := tbl.GetNum(1, 2)
	require.True(t, ok)
	assert.Equal(t, 0.0, num)
}

func TestLexTableTextRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tbl := table.NewLexTable(10)
	tbl.SetNumDen(1, 2, 0.125, 1)
	tbl.SetNumDen(1, 3, 0.875, 1)
	tbl.SetNumDen(4, 2, 2.5, 2.5)

	p := filepath.Join(dir, "lex.txt")
	require.NoError(t, tbl.PrintText(p))
	got, err := table.LoadLexTableText(p, 10)
	require.NoError(t, err)

	for _, s := range tbl.OuterKeys() {
		for _, trg := range tbl.InnerKeys(s) {
			wantNum, _ := tbl.GetNum(s, trg)
			gotNum, ok := got.GetNum(s, trg)
			require.True(t, ok)
			assert.InDelta(t, wantNum, gotNum, 1e-9)
		}
	}
}

func TestLexTableBinaryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tbl := table.NewLexTable(10)
	tbl.SetNumDen(1, 2, 0.125, 1)
	tbl.SetNumDen(7, 9, 42, 50)

	p := filepath.Join(dir, "lex.bin")
	require.NoError(t, tbl.PrintBinary(p))
	got, err := table.LoadLexTableBinary(p, 10)
	require.NoError(t, err)

	// 0.125 and 42 are exactly representable in float32
	gotNum, ok := got.GetNum(1, 2)
	require.True(t, ok)
	assert.Equal(t, 0.125, gotNum)
	gotNum, ok = got.GetNum(7, 9)
	require.True(t, ok)
	assert.Equal(t, 42.0, gotNum)
}

func TestLoadLexTableMissingFile(t *testing.T) {
	_, err := table.LoadLexTableText(filepath.Join(t.TempDir(), "nope"), 10)
	assert.Error(t, err)
}
