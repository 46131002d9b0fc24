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

	"github.com/czcorpus/wordalign/model"
	"github.com/czcorpus/wordalign/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMMTrainingMonotonicLikelihood(t *testing.T) {
	store, voc := buildPigLatinCorpus(t)
	ibm1 := model.NewIBM1(voc, pigLatinClasses(voc), 0)
	trainBatch(ibm1, store, 3)
	hmm := model.NewHMMFromIBM1(ibm1)

	var prev float64
	for iter := 0; iter < 4; iter++ {
		trainBatch(hmm, store, 1)
		var ll float64
		for _, pair := range store.Range(0, store.Len()) {
			ll += hmm.SentenceLogLikelihood(pair)
		}
		if iter > 0 {
			assert.GreaterOrEqual(t, ll, prev-1e-4,
				"log-likelihood decreased at iteration %d", iter)
		}
		prev = ll
	}
}

func TestHMMBestAlignmentMonotonePair(t *testing.T) {
	store, voc := buildPigLatinCorpus(t)
	ibm1 := model.NewIBM1(voc, pigLatinClasses(voc), 0)
	trainBatch(ibm1, store, 3)
	hmm := model.NewHMMFromIBM1(ibm1)
	trainBatch(hmm, store, 3)

	pair := pairOf(voc, "isthay isyay ayay esttay", "this is a test")
	assert.Equal(t, []int{1, 2, 3, 4}, hmm.BestAlignment(pair))
}

// enumerateAlignments yields every vector in {0..slen}^tlen.
func enumerateAlignments(slen, tlen int) [][]int {
	var ans [][]int
	cur := make([]int, tlen)
	var rec func(j int)
	rec = func(j int) {
		if j == tlen {
			ans = append(ans, append([]int(nil), cur...))
			return
		}
		for i := 0; i <= slen; i++ {
			cur[j] = i
			rec(j + 1)
		}
	}
	rec(0)
	return ans
}

// With a single-word source sentence the sticky-null trellis has
// exactly one null state, so alignment vectors and trellis paths are in
// bijection and the forward log-likelihood must equal the log-sum of
// all path likelihoods.
func TestHMMForwardBackwardIdentity(t *testing.T) {
	store, voc := buildPigLatinCorpus(t)
	ibm1 := model.NewIBM1(voc, pigLatinClasses(voc), 0)
	trainBatch(ibm1, store, 2)
	hmm := model.NewHMMFromIBM1(ibm1)
	trainBatch(hmm, store, 2)

	pair := pairOf(voc, "esttay", "a test")
	require.Equal(t, 1, len(pair.Src))

	scores := make([]float64, 0, 4)
	for _, a := range enumerateAlignments(1, len(pair.Trg)) {
		scores = append(scores, hmm.ScoreAlignment(pair, a))
	}
	want := table.LogSumExp(scores...)
	got := hmm.SentenceLogLikelihood(pair)
	assert.InDelta(t, want, got, 1e-6)
}

// The Viterbi path's joint probability must dominate every enumerable
// alignment and must round-trip through ScoreAlignment unchanged.
func TestHMMViterbiScoreConsistency(t *testing.T) {
	store, voc := buildPigLatinCorpus(t)
	ibm1 := model.NewIBM1(voc, pigLatinClasses(voc), 0)
	trainBatch(ibm1, store, 3)
	hmm := model.NewHMMFromIBM1(ibm1)
	trainBatch(hmm, store, 3)

	pair := pairOf(voc, "isthay isyay oodgay", "this is good")
	best := hmm.BestAlignment(pair)
	require.Equal(t, len(pair.Trg), len(best))
	bestScore := hmm.ScoreAlignment(pair, best)
	require.False(t, math.IsInf(bestScore, -1))

	for _, a := range enumerateAlignments(len(pair.Src), len(pair.Trg)) {
		assert.LessOrEqual(t, hmm.ScoreAlignment(pair, a), bestScore+1e-6)
	}
}

func TestHMMTransitionNormalizationInvariant(t *testing.T) {
	store, voc := buildPigLatinCorpus(t)
	ibm1 := model.NewIBM1(voc, pigLatinClasses(voc), 0)
	trainBatch(ibm1, store, 2)
	hmm := model.NewHMMFromIBM1(ibm1)
	trainBatch(hmm, store, 2)

	for _, k := range hmm.Alig.Keys() {
		var sum, den float64
		for i := 0; ; i++ {
			num, ok := hmm.Alig.GetNum(k, i)
			if !ok {
				break
			}
			sum += num
			den, _ = hmm.Alig.GetDen(k, i)
		}
		if den == 0 {
			continue
		}
		assert.InDelta(t, den, sum, 1e-5*den)
	}
}

func TestHMMClearDiscardsTransitions(t *testing.T) {
	store, voc := buildPigLatinCorpus(t)
	hmm := model.NewHMM(voc, pigLatinClasses(voc), 0)
	trainBatch(hmm, store, 1)
	require.NotEmpty(t, hmm.Alig.Keys())

	hmm.Clear()
	assert.Equal(t, model.StateEmpty, hmm.State())
	assert.Empty(t, hmm.Alig.Keys())
}
