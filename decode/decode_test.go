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

package decode_test

import (
	"math"
	"strings"
	"testing"

	"github.com/czcorpus/wordalign/corpus"
	"github.com/czcorpus/wordalign/decode"
	"github.com/czcorpus/wordalign/model"
	"github.com/czcorpus/wordalign/table"
	"github.com/czcorpus/wordalign/vocab"
	"github.com/czcorpus/wordalign/wordclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainedHMM(t *testing.T) (*model.HMMModel, *vocab.Vocabulary) {
	t.Helper()
	voc := vocab.New()
	lines := [][2]string{
		{"isthay isyay ayay esttay", "this is a test"},
		{"isthay isyay otnay ayay esttay", "this is not a test"},
		{"isyay isthay ayay esttay ?", "is this a test ?"},
		{"isthay isyay oodgay", "this is good"},
	}
	pairs := make([]corpus.SentencePair, 0, len(lines))
	for _, pp := range lines {
		idx := func(line string) []int {
			fields := strings.Fields(line)
			ans := make([]int, len(fields))
			for i, f := range fields {
				ans[i] = voc.AddWord(f)
			}
			return ans
		}
		pairs = append(pairs, corpus.SentencePair{Src: idx(pp[0]), Trg: idx(pp[1]), Weight: 1})
	}
	store := corpus.NewStore(pairs)

	m := model.NewHMM(voc, wordclass.New(), 0)
	for i := 0; i < 3; i++ {
		m.InitPassHooks(store, 0, store.Len())
		acc := model.NewSuffStats()
		for _, pair := range store.Range(0, store.Len()) {
			m.EStepPair(pair, acc)
		}
		m.MStepFinalize(acc)
	}
	return m, voc
}

func TestBestAlignmentAndScoreAgree(t *testing.T) {
	m, voc := trainedHMM(t)
	pair := corpus.SentencePair{
		Src:    []int{voc.IndexOf("isthay"), voc.IndexOf("isyay"), voc.IndexOf("oodgay")},
		Trg:    []int{voc.IndexOf("this"), voc.IndexOf("is"), voc.IndexOf("good")},
		Weight: 1,
	}
	best := decode.BestAlignment(m, pair)
	require.Equal(t, len(pair.Trg), len(best))

	lp := decode.AlignmentLgProb(m, pair, best)
	assert.False(t, math.IsInf(lp, -1))
	assert.Equal(t, m.ScoreAlignment(pair, best), lp)

	// the total likelihood dominates any single path
	total := decode.SentenceLogLikelihood(m, pair)
	assert.GreaterOrEqual(t, total, lp-1e-9)
}

func TestHMMCandidateScorerMatchesDirectScoring(t *testing.T) {
	m, voc := trainedHMM(t)
	pair := corpus.SentencePair{
		Src:    []int{voc.IndexOf("isthay"), voc.IndexOf("isyay"), voc.IndexOf("ayay"), voc.IndexOf("esttay")},
		Trg:    []int{voc.IndexOf("this"), voc.IndexOf("is"), voc.IndexOf("a"), voc.IndexOf("test")},
		Weight: 1,
	}
	scorer := decode.NewHMMCandidateScorer(m)
	candidates := [][]int{
		{1, 2, 3, 4},
		{1, 2, 0, 4},
		{4, 3, 2, 1},
		{1, 1, 3, 4},
	}
	for _, cand := range candidates {
		assert.InDelta(t, m.ScoreAlignment(pair, cand), scorer.Score(pair, cand), 1e-12)
	}
	// scoring the same candidate again hits the memoized transitions
	assert.InDelta(t, m.ScoreAlignment(pair, candidates[0]), scorer.Score(pair, candidates[0]), 1e-12)
	scorer.Invalidate()
	assert.InDelta(t, m.ScoreAlignment(pair, candidates[0]), scorer.Score(pair, candidates[0]), 1e-12)
}

// The memoizing seeder must decode exactly what the model's own
// Viterbi search decodes.
func TestHMMSeederMatchesBestAlignment(t *testing.T) {
	m, voc := trainedHMM(t)
	seeder := decode.NewHMMSeeder(m)
	pairs := []corpus.SentencePair{
		{
			Src: []int{voc.IndexOf("isthay"), voc.IndexOf("isyay"), voc.IndexOf("oodgay")},
			Trg: []int{voc.IndexOf("this"), voc.IndexOf("is"), voc.IndexOf("good")},
		},
		{
			Src: []int{voc.IndexOf("isthay"), voc.IndexOf("isyay"), voc.IndexOf("ayay"), voc.IndexOf("esttay")},
			Trg: []int{voc.IndexOf("this"), voc.IndexOf("is"), voc.IndexOf("a"), voc.IndexOf("test")},
		},
	}
	for _, pair := range pairs {
		assert.Equal(t, m.BestAlignment(pair), seeder.BestAlignment(pair))
		// second decode hits the memoized transitions
		assert.Equal(t, m.BestAlignment(pair), seeder.BestAlignment(pair))
	}
	seeder.Invalidate()
	assert.Equal(t, m.BestAlignment(pairs[0]), seeder.BestAlignment(pairs[0]))
}

func TestCachedHmmAligLgProb(t *testing.T) {
	alig := table.NewHMMAligTable()
	k := table.HMMAligKey{PrevI: 1, SLen: 3}
	alig.SetNumDen(k, 2, 3, 4)

	cache := decode.NewCachedHmmAligLgProb(alig)
	want := math.Log(0.75)
	assert.InDelta(t, want, cache.Get(k, 2), 1e-12)

	// a stale cache keeps serving the memoized value until invalidated
	alig.SetNumDen(k, 2, 1, 4)
	assert.InDelta(t, want, cache.Get(k, 2), 1e-12)
	cache.Invalidate()
	assert.InDelta(t, math.Log(0.25), cache.Get(k, 2), 1e-12)
}
