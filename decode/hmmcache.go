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

package decode

import (
	"math"
	"sync"

	"github.com/czcorpus/wordalign/corpus"
	"github.com/czcorpus/wordalign/model"
	"github.com/czcorpus/wordalign/table"
)

// CachedHmmAligLgProb memoizes log a(i | prev_i, slen), amortizing
// repeated trellis evaluations across many BestAlignment or
// AlignmentLgProb calls against the same source sentence. The cache
// holds no view of parameter updates — callers must create a fresh
// cache (or call Invalidate) after any training iteration changes the
// underlying values.
type CachedHmmAligLgProb struct {
	mu      sync.Mutex
	compute func(k table.HMMAligKey, i int) float64
	values  map[table.HMMAligKey][]float64
}

// NewCachedHmmAligLgProb wraps alig, the table consulted on a miss.
func NewCachedHmmAligLgProb(alig *table.HMMAligTable) *CachedHmmAligLgProb {
	return NewCachedHmmLgProbFunc(func(k table.HMMAligKey, i int) float64 {
		return math.Log(alig.Prob(k, i))
	})
}

// NewCachedHmmLgProbFunc memoizes an arbitrary transition log-prob
// function, e.g. a model's smoothed transition probability rather than
// the raw table estimate.
func NewCachedHmmLgProbFunc(compute func(k table.HMMAligKey, i int) float64) *CachedHmmAligLgProb {
	return &CachedHmmAligLgProb{compute: compute, values: make(map[table.HMMAligKey][]float64)}
}

// Get returns log a(i | k.PrevI, k.SLen), computing and caching it on
// first access for (k, i).
func (c *CachedHmmAligLgProb) Get(k table.HMMAligKey, i int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	row, ok := c.values[k]
	if ok && i < len(row) && !math.IsNaN(row[i]) {
		return row[i]
	}
	if !ok || i >= len(row) {
		row = make([]float64, k.SLen+1)
		for j := range row {
			row[j] = math.NaN()
		}
		c.values[k] = row
	}
	lp := c.compute(k, i)
	row[i] = lp
	return lp
}

// Invalidate discards every cached entry; call it after the underlying
// values change (e.g. at an M-step boundary).
func (c *CachedHmmAligLgProb) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = make(map[table.HMMAligKey][]float64)
}

// HMMCandidateScorer scores many candidate alignments of sentence pairs
// sharing a model, memoizing the smoothed transition log-probabilities
// through CachedHmmAligLgProb so repeated candidates for the same
// source sentence do not recompute them.
type HMMCandidateScorer struct {
	m     *model.HMMModel
	cache *CachedHmmAligLgProb
}

// NewHMMCandidateScorer wraps m for bulk candidate scoring.
func NewHMMCandidateScorer(m *model.HMMModel) *HMMCandidateScorer {
	return &HMMCandidateScorer{
		m: m,
		cache: NewCachedHmmLgProbFunc(func(k table.HMMAligKey, i int) float64 {
			return m.TransLogProb(k.PrevI, i, k.SLen)
		}),
	}
}

// Score returns log p(t, alignment | s) using the memoized transitions.
func (s *HMMCandidateScorer) Score(pair corpus.SentencePair, alignment []int) float64 {
	return s.m.ScoreAlignmentWith(pair, alignment, s.cache.Get)
}

// Invalidate drops the memoized transitions; call it after the model
// trains further.
func (s *HMMCandidateScorer) Invalidate() {
	s.cache.Invalidate()
}

// HMMSeeder decodes Viterbi alignments against a frozen HMM model with
// the transition log-probabilities memoized, so the fertility models'
// hillclimbing amortizes trellis evaluations across every sentence
// sharing a source length. It satisfies model.SeedAligner.
type HMMSeeder struct {
	m     *model.HMMModel
	cache *CachedHmmAligLgProb
}

// NewHMMSeeder wraps a trained HMM model as a hillclimb seeder.
func NewHMMSeeder(m *model.HMMModel) *HMMSeeder {
	return &HMMSeeder{
		m: m,
		cache: NewCachedHmmLgProbFunc(func(k table.HMMAligKey, i int) float64 {
			return m.TransLogProb(k.PrevI, i, k.SLen)
		}),
	}
}

// BestAlignment returns the HMM Viterbi alignment for pair.
func (s *HMMSeeder) BestAlignment(pair corpus.SentencePair) []int {
	return s.m.BestAlignmentWith(pair, s.cache.Get)
}

// Invalidate drops the memoized transitions; call it if the wrapped
// model trains further.
func (s *HMMSeeder) Invalidate() {
	s.cache.Invalidate()
}

var _ model.SeedAligner = (*HMMSeeder)(nil)
