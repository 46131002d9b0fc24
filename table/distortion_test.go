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

func TestHeadDistortionBasic(t *testing.T) {
	tbl := table.NewHeadDistortionTable(0)
	k := table.HeadDistortionKey{SrcClass: 1, TrgClass: 2}
	tbl.AddNum(k, -1, 3)
	tbl.AddNum(k, 2, 1)
	tbl.MaximizeRow(k)

	num, ok := tbl.GetNum(k, -1)
	require.True(t, ok)
	assert.Equal(t, 3.0, num)

	den, ok := tbl.GetDen(k, -1)
	require.True(t, ok)
	assert.Equal(t, 4.0, den)

	assert.InDelta(t, 0.75, tbl.Prob(k, -1, 0), 1e-9)
	assert.Equal(t, table.SWProbSmooth, tbl.Prob(k, 99, 0))
}

func TestHeadDistortionSmoothing(t *testing.T) {
	tbl := table.NewHeadDistortionTable(0.5)
	k := table.HeadDistortionKey{SrcClass: 1, TrgClass: 1}
	tbl.SetNumDen(k, 0, 1, 1)
	// uniform component is 1/(tlen-1) = 0.5 at tlen = 3
	got := tbl.Prob(k, 0, 3)
	assert.InDelta(t, 0.75, got, 1e-9)
}

func TestHeadDistortionTextRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tbl := table.NewHeadDistortionTable(0)
	k := table.HeadDistortionKey{SrcClass: 2, TrgClass: 3}
	tbl.SetNumDen(k, -2, 4, 10)
	p := filepath.Join(dir, "hd.txt")
	require.NoError(t, tbl.PrintText(p))

	loaded, err := table.LoadHeadDistortionTableText(p, 0)
	require.NoError(t, err)
	num, ok := loaded.GetNum(k, -2)
	require.True(t, ok)
	assert.Equal(t, 4.0, num)
}

func TestHeadDistortionBinaryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tbl := table.NewHeadDistortionTable(0)
	k := table.HeadDistortionKey{SrcClass: 5, TrgClass: 6}
	tbl.SetNumDen(k, -3, 2, 8)
	tbl.SetNumDen(k, 1, 6, 8)
	p := filepath.Join(dir, "hd.bin")
	require.NoError(t, tbl.PrintBinary(p))

	loaded, err := table.LoadHeadDistortionTableBinary(p, 0)
	require.NoError(t, err)
	num, ok := loaded.GetNum(k, 1)
	require.True(t, ok)
	assert.Equal(t, 6.0, num)
}

func TestNonHeadDistortionBasic(t *testing.T) {
	tbl := table.NewNonHeadDistortionTable(0)
	tbl.AddNum(3, 1, 2)
	tbl.AddNum(3, 2, 2)
	tbl.MaximizeRow(3)

	assert.InDelta(t, 0.5, tbl.Prob(3, 1, 0), 1e-9)
	assert.Equal(t, table.SWProbSmooth, tbl.Prob(3, 99, 0))
}

func TestNonHeadDistortionBinaryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tbl := table.NewNonHeadDistortionTable(0)
	tbl.SetNumDen(4, 1, 3, 9)
	p := filepath.Join(dir, "nhd.bin")
	require.NoError(t, tbl.PrintBinary(p))

	loaded, err := table.LoadNonHeadDistortionTableBinary(p, 0)
	require.NoError(t, err)
	num, ok := loaded.GetNum(4, 1)
	require.True(t, ok)
	assert.Equal(t, 3.0, num)
}
