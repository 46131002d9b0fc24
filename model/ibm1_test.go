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

package model_test

import (
	"testing"

	"github.com/czcorpus/wordalign/model"
	"github.com/czcorpus/wordalign/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIBM1TrainingMonotonicLikelihood(t *testing.T) {
	store, voc := buildPigLatinCorpus(t)
	m := model.NewIBM1(voc, pigLatinClasses(voc), 0)

	var prev float64
	for iter := 0; iter < 5; iter++ {
		trainBatch(m, store, 1)
		var ll float64
		for _, pair := range store.Range(0, store.Len()) {
			ll += m.SentenceLogLikelihood(pair)
		}
		if iter > 0 {
			assert.GreaterOrEqual(t, ll, prev-1e-4,
				"log-likelihood decreased at iteration %d", iter)
		}
		prev = ll
	}
}

func TestIBM1BestAlignmentRecoversWordMapping(t *testing.T) {
	store, voc := buildPigLatinCorpus(t)
	m := model.NewIBM1(voc, pigLatinClasses(voc), 0)
	trainBatch(m, store, 5)

	pair := pairOf(voc, "isthay isyay otnay ayay esttay", "this is not a test")
	got := m.BestAlignment(pair)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
}

func TestIBM1LexNormalizationInvariant(t *testing.T) {
	store, voc := buildPigLatinCorpus(t)
	m := model.NewIBM1(voc, pigLatinClasses(voc), 0)
	trainBatch(m, store, 3)

	for _, s := range m.Lex.OuterKeys() {
		var sum float64
		var den float64
		for _, trg := range m.Lex.InnerKeys(s) {
			num, ok := m.Lex.GetNum(s, trg)
			require.True(t, ok)
			sum += num
			den, _ = m.Lex.GetDen(s, trg)
		}
		if den == 0 {
			continue
		}
		assert.InDelta(t, den, sum, 1e-5*den, "row %d not normalized", s)
	}
}

func TestIBM1LexProbStrictlyPositive(t *testing.T) {
	store, voc := buildPigLatinCorpus(t)
	m := model.NewIBM1(voc, pigLatinClasses(voc), 0)
	trainBatch(m, store, 2)

	for s := 0; s < voc.Size(); s++ {
		for trg := 0; trg < voc.Size(); trg++ {
			p := m.Lex.Prob(s, trg, table.SWProbSmooth)
			assert.Greater(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
		}
	}
}

func TestIBM1Lifecycle(t *testing.T) {
	store, voc := buildPigLatinCorpus(t)
	m := model.NewIBM1(voc, pigLatinClasses(voc), 0)
	assert.Equal(t, model.StateEmpty, m.State())

	trainBatch(m, store, 1)
	assert.Equal(t, model.StateTrained, m.State())
	assert.Equal(t, 1, m.Iter())

	trainBatch(m, store, 1)
	assert.Equal(t, 2, m.Iter())

	m.ClearTempVars()
	m.ClearTempVars()
	assert.Equal(t, model.StateTrained, m.State())

	m.Clear()
	assert.Equal(t, model.StateEmpty, m.State())
	assert.Equal(t, 0, m.Iter())
}

func TestIBM1SkipsDegeneratePairs(t *testing.T) {
	store, voc := buildPigLatinCorpus(t)
	m := model.NewIBM1(voc, pigLatinClasses(voc), 3)

	acc := model.NewSuffStats()
	m.InitPassHooks(store, 0, store.Len())
	for _, pair := range store.Range(0, store.Len()) {
		m.EStepPair(pair, acc)
	}
	// the fixture contains sentences longer than 3 tokens
	assert.Greater(t, acc.Skipped, 0)
	m.MStepFinalize(acc)
	assert.Equal(t, acc.Skipped, m.SkippedCount())
}
