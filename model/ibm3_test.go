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
	"math"
	"testing"

	"github.com/czcorpus/wordalign/corpus"
	"github.com/czcorpus/wordalign/decode"
	"github.com/czcorpus/wordalign/model"
	"github.com/czcorpus/wordalign/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trainedIBM3 runs the production predecessor chain: IBM1 bootstraps
// IBM2 and an HMM stage, the HMM's memoized Viterbi decoder seeds the
// hillclimbing.
func trainedIBM3(t *testing.T) (*model.IBM3Model, *corpus.Store, *vocab.Vocabulary) {
	t.Helper()
	store, voc := buildPigLatinCorpus(t)
	ibm1 := model.NewIBM1(voc, pigLatinClasses(voc), 0)
	trainBatch(ibm1, store, 3)
	ibm2 := model.NewIBM2FromIBM1(ibm1)
	trainBatch(ibm2, store, 3)
	hmm := model.NewHMMFromIBM1(ibm1)
	trainBatch(hmm, store, 3)
	ibm3 := model.NewIBM3FromIBM2(ibm2)
	ibm3.Seeder = decode.NewHMMSeeder(hmm)
	trainBatch(ibm3, store, 2)
	return ibm3, store, voc
}

func TestIBM3TransferIsDeepCopy(t *testing.T) {
	store, voc := buildPigLatinCorpus(t)
	ibm1 := model.NewIBM1(voc, pigLatinClasses(voc), 0)
	trainBatch(ibm1, store, 2)
	ibm2 := model.NewIBM2FromIBM1(ibm1)
	trainBatch(ibm2, store, 2)

	srcIdx := voc.IndexOf("esttay")
	trgIdx := voc.IndexOf("test")
	before, ok := ibm2.Lex.GetNum(srcIdx, trgIdx)
	require.True(t, ok)

	ibm3 := model.NewIBM3FromIBM2(ibm2)
	ibm3.Lex.SetNum(srcIdx, trgIdx, 99)
	after, _ := ibm2.Lex.GetNum(srcIdx, trgIdx)
	assert.Equal(t, before, after)
}

func TestIBM3BestAlignmentMonotonePair(t *testing.T) {
	ibm3, _, voc := trainedIBM3(t)
	pair := pairOf(voc, "isthay isyay ayay esttay", "this is a test")
	assert.Equal(t, []int{1, 2, 3, 4}, ibm3.BestAlignment(pair))
}

func TestIBM3HillclimbDominatesNeighbors(t *testing.T) {
	ibm3, _, voc := trainedIBM3(t)
	pair := pairOf(voc, "isthay isyay oodgay", "this is good")
	best := ibm3.BestAlignment(pair)
	bestScore := ibm3.ScoreAlignment(pair, best)
	require.False(t, math.IsInf(bestScore, -1))

	// a local optimum beats every single move of one target token
	slen := len(pair.Src)
	for j := range best {
		for i := 0; i <= slen; i++ {
			if i == best[j] {
				continue
			}
			cand := append([]int(nil), best...)
			cand[j] = i
			assert.LessOrEqual(t, ibm3.ScoreAlignment(pair, cand), bestScore+1e-9)
		}
	}
}

func TestIBM3EStepAccumulatesFertilityAndP1(t *testing.T) {
	store, voc := buildPigLatinCorpus(t)
	ibm1 := model.NewIBM1(voc, pigLatinClasses(voc), 0)
	trainBatch(ibm1, store, 2)
	ibm2 := model.NewIBM2FromIBM1(ibm1)
	trainBatch(ibm2, store, 2)
	hmm := model.NewHMMFromIBM1(ibm1)
	trainBatch(hmm, store, 2)
	ibm3 := model.NewIBM3FromIBM2(ibm2)
	ibm3.Seeder = decode.NewHMMSeeder(hmm)

	ibm3.InitPassHooks(store, 0, store.Len())
	acc := model.NewSuffStats()
	for _, pair := range store.Range(0, store.Len()) {
		ibm3.EStepPair(pair, acc)
	}
	assert.Greater(t, acc.P1Den, 0.0)
	assert.NotEmpty(t, acc.Fert)
	assert.NotEmpty(t, acc.IBM3Dist)

	ibm3.MStepFinalize(acc)
	assert.GreaterOrEqual(t, ibm3.P1, 0.0)
	assert.LessOrEqual(t, ibm3.P1, 1.0)

	for _, s := range ibm3.Fertility.Keys() {
		var sum, den float64
		for phi := 0; phi <= model.MaxFertility; phi++ {
			num, ok := ibm3.Fertility.GetNum(s, phi)
			if !ok {
				break
			}
			sum += num
			den, _ = ibm3.Fertility.GetDen(s, phi)
		}
		if den == 0 {
			continue
		}
		assert.InDelta(t, den, sum, 1e-5*den)
	}
}

// Hillclimbing starts from the configured seeder's HMM Viterbi
// alignment and can only improve on it.
func TestIBM3HillclimbImprovesOnSeed(t *testing.T) {
	ibm3, _, voc := trainedIBM3(t)
	pair := pairOf(voc, "isthay isyay otnay ayay esttay", "this is not a test")

	seed := ibm3.Seeder.BestAlignment(pair)
	require.Equal(t, len(pair.Trg), len(seed))
	best := ibm3.BestAlignment(pair)
	assert.GreaterOrEqual(t,
		ibm3.ScoreAlignment(pair, best),
		ibm3.ScoreAlignment(pair, seed)-1e-9)
}
