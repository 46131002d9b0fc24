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

package model

import (
	"math"

	"github.com/czcorpus/wordalign/corpus"
	"github.com/czcorpus/wordalign/table"
	"github.com/czcorpus/wordalign/vocab"
	"github.com/czcorpus/wordalign/wordclass"
)

// IBM1Model implements lexical-only translation with a uniform
// alignment distribution a(i|j,slen,tlen) = 1/(slen+1).
type IBM1Model struct {
	Base
}

// NewIBM1 creates an untrained IBM1 model.
func NewIBM1(voc *vocab.Vocabulary, classes *wordclass.ClassMap, maxSentLen int) *IBM1Model {
	return &IBM1Model{Base: NewBase(voc, classes, maxSentLen)}
}

func (m *IBM1Model) Kind() Kind { return IBM1 }

// InitPassHooks walks [lo, hi) once, reserving lex-table skeleton
// entries for every (s, t) pair observed, including the null word as a
// source candidate for every target token.
func (m *IBM1Model) InitPassHooks(store *corpus.Store, lo, hi int) {
	if m.InitialPassDone() {
		return
	}
	for _, pair := range store.Range(lo, hi) {
		if !m.SentenceLengthIsOk(pair) {
			continue
		}
		for _, s := range append([]int{vocab.NullWord}, pair.Src...) {
			for _, t := range pair.Trg {
				m.Lex.ReserveSpace(s, t)
			}
		}
	}
	m.MarkInitialPassDone()
}

// EStepPair accumulates posterior lexical counts for one sentence pair:
// γ(i,j) = p(t_j|s_i) / Σ_i' p(t_j|s_i').
func (m *IBM1Model) EStepPair(pair corpus.SentencePair, acc *SuffStats) {
	if !m.SentenceLengthIsOk(pair) {
		acc.MarkSkipped()
		return
	}
	extSrc := append([]int{vocab.NullWord}, pair.Src...)
	w := float64(pair.Weight)
	acc.AddSentLen(len(pair.Src), len(pair.Trg), w)
	for _, t := range pair.Trg {
		var denom float64
		probs := make([]float64, len(extSrc))
		for idx, s := range extSrc {
			p := m.Lex.Prob(s, t, table.SWProbSmooth)
			probs[idx] = p
			denom += p
		}
		if denom <= 0 {
			continue
		}
		for idx, s := range extSrc {
			gamma := probs[idx] / denom
			acc.AddLex(s, t, gamma*w)
		}
	}
}

// MStepFinalize writes the merged accumulator back and advances iter.
func (m *IBM1Model) MStepFinalize(acc *SuffStats) {
	m.ApplyLexAndSentLen(acc)
	m.BumpIter()
	m.SetState(StateTrained)
}

// ScoreAlignment returns log p(t, a | s) for a fixed alignment, a[j]
// being the source index (0 = null) aligned to target position j.
func (m *IBM1Model) ScoreAlignment(pair corpus.SentencePair, alignment []int) float64 {
	extSrc := append([]int{vocab.NullWord}, pair.Src...)
	slen := len(pair.Src)
	lp := m.SentLen.SentLenProb(slen, len(pair.Trg))
	total := math.Log(lp)
	for j, t := range pair.Trg {
		i := alignment[j]
		s := extSrc[i]
		total += math.Log(1.0/float64(slen+1)) + m.Lex.LogProb(s, t, table.SWProbSmooth)
	}
	return total
}

// SentenceLogLikelihood returns log p(t|s), summing over all hidden
// alignments rather than scoring a single one: log p(tlen|slen) +
// Σ_j log( (1/(slen+1)) Σ_i p(t_j|s_i) ).
func (m *IBM1Model) SentenceLogLikelihood(pair corpus.SentencePair) float64 {
	extSrc := append([]int{vocab.NullWord}, pair.Src...)
	slen := len(pair.Src)
	total := math.Log(m.SentLen.SentLenProb(slen, len(pair.Trg)))
	for _, t := range pair.Trg {
		var sum float64
		for _, s := range extSrc {
			sum += m.Lex.Prob(s, t, table.SWProbSmooth)
		}
		total += math.Log(1.0/float64(slen+1)) + math.Log(sum)
	}
	return total
}

// BestAlignment picks, independently per target position, the source
// word maximizing p(t_j|s_i).
func (m *IBM1Model) BestAlignment(pair corpus.SentencePair) []int {
	extSrc := append([]int{vocab.NullWord}, pair.Src...)
	ans := make([]int, len(pair.Trg))
	for j, t := range pair.Trg {
		bestI, bestP := 0, -1.0
		for i, s := range extSrc {
			p := m.Lex.Prob(s, t, table.SWProbSmooth)
			if p > bestP {
				bestP = p
				bestI = i
			}
		}
		ans[j] = bestI
	}
	return ans
}
