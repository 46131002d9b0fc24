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

func TestHMMAligTableLookupBeyondVector(t *testing.T) {
	tbl := table.NewHMMAligTable()
	k := table.HMMAligKey{PrevI: 1, SLen: 3}
	tbl.ReserveSpace(k, 0)

	_, ok := tbl.GetNum(k, 3)
	assert.True(t, ok)
	_, ok = tbl.GetNum(k, 4)
	assert.False(t, ok)
	_, ok = tbl.GetNum(table.HMMAligKey{PrevI: 9, SLen: 3}, 0)
	assert.False(t, ok)
}

// Binary loading must consume every record up to EOF, not stop after
// the first one.
func TestHMMAligTableBinaryReadsAllRecords(t *testing.T) {
	dir := t.TempDir()
	tbl := table.NewHMMAligTable()
	for prevI := 0; prevI <= 4; prevI++ {
		for i := 0; i <= 4; i++ {
			tbl.SetNumDen(table.HMMAligKey{PrevI: prevI, SLen: 4}, i, float64(prevI*10+i), 100)
		}
	}

	p := filepath.Join(dir, "alig.bin")
	require.NoError(t, tbl.PrintBinary(p))
	got, err := table.LoadHMMAligTableBinary(p)
	require.NoError(t, err)

	require.Equal(t, len(tbl.Keys()), len(got.Keys()))
	for prevI := 0; prevI <= 4; prevI++ {
		for i := 0; i <= 4; i++ {
			num, ok := got.GetNum(table.HMMAligKey{PrevI: prevI, SLen: 4}, i)
			require.True(t, ok)
			assert.Equal(t, float64(prevI*10+i), num)
		}
	}
}

func TestHMMAligTableTextRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tbl := table.NewHMMAligTable()
	k := table.HMMAligKey{PrevI: 2, SLen: 5}
	tbl.SetNumDen(k, 0, 0.5, 2)
	tbl.SetNumDen(k, 3, 1.5, 2)

	p := filepath.Join(dir, "alig.txt")
	require.NoError(t, tbl.PrintText(p))
	got, err := table.LoadHMMAligTableText(p)
	require.NoError(t, err)

	num, ok := got.GetNum(k, 3)
	require.True(t, ok)
	assert.InDelta(t, 1.5, num, 1e-9)
	den, ok := got.GetDen(k, 3)
	require.True(t, ok)
	assert.InDelta(t, 2.0, den, 1e-9)
}

func TestHMMAligTableMaximizeRow(t *testing.T) {
	tbl := table.NewHMMAligTable()
	k := table.HMMAligKey{PrevI: 1, SLen: 2}
	tbl.SetNum(k, 0, 1)
	tbl.SetNum(k, 1, 2)
	tbl.SetNum(k, 2, 1)
	tbl.MaximizeRow(k)

	assert.InDelta(t, 0.5, tbl.Prob(k, 1), 1e-9)
	var sum float64
	for i := 0; i <= 2; i++ {
		sum += tbl.Prob(k, i)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
