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

func TestFertilityBasic(t *testing.T) {
	tbl := table.NewFertilityTable(5)
	tbl.AddNum(7, 0, 1)
	tbl.AddNum(7, 1, 3)
	tbl.MaximizeRow(7)

	assert.InDelta(t, 0.75, tbl.Prob(7, 1), 1e-9)
	assert.Equal(t, table.SWProbSmooth, tbl.Prob(7, 99))
	assert.Equal(t, table.SWProbSmooth, tbl.Prob(8, 0))
}

func TestFertilityOutOfRangeLookup(t *testing.T) {
	tbl := table.NewFertilityTable(3)
	tbl.SetNumDen(1, 2, 1, 1)
	_, ok := tbl.GetNum(1, 99)
	assert.False(t, ok)
}

func TestFertilityTextRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tbl := table.NewFertilityTable(4)
	tbl.SetNumDen(2, 3, 5, 20)
	p := filepath.Join(dir, "fert.txt")
	require.NoError(t, tbl.PrintText(p))

	loaded, err := table.LoadFertilityTableText(p, 4)
	require.NoError(t, err)
	num, ok := loaded.GetNum(2, 3)
	require.True(t, ok)
	assert.Equal(t, 5.0, num)
}

func TestFertilityBinaryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tbl := table.NewFertilityTable(2)
	tbl.SetNumDen(9, 0, 1, 2)
	tbl.SetNumDen(9, 2, 1, 2)
	p := filepath.Join(dir, "fert.bin")
	require.NoError(t, tbl.PrintBinary(p))

	loaded, err := table.LoadFertilityTableBinary(p, 2)
	require.NoError(t, err)
	num, ok := loaded.GetNum(9, 2)
	require.True(t, ok)
	assert.Equal(t, 1.0, num)
}
