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

// IBM2Model adds a position-dependent alignment table on top of IBM1's
// lexical table: a(i|j,slen,tlen) replaces the uniform distribution.
type IBM2Model struct {
	Base
	Alig *table.IBM2AligTable
}

// NewIBM2 creates an untrained IBM2 model.
func NewIBM2(voc *vocab.Vocabulary, classes *wordclass.ClassMap, maxSentLen int) *IBM2Model {
	return &IBM2Model{Base: NewBase(voc, classes, maxSentLen), Alig: table.NewIBM2AligTable()}
}

// NewIBM2FromIBM1 transfers the lexical table from a trained IBM1
// predecessor. The transfer is a one-shot deep copy: the two models are
// independent afterwards.
func NewIBM2FromIBM1(pred *IBM1Model) *IBM2Model {
	m := &IBM2Model{
		Base: Base{
			Lex:        cloneLexTable(pred.Lex, pred.Vocab.Size()),
			SentLen:    table.NewSentLenTable(sentLenCap(pred.MaxSentLen)),
			Vocab:      pred.Vocab,
			Classes:    pred.Classes,
			LexCache:   table.NewBestLgProbForTrgWordCache(),
			MaxSentLen: pred.MaxSentLen,
		},
		Alig: table.NewIBM2AligTable(),
	}
	m.SetState(StateInitialized)
	return m
}

func (m *IBM2Model) Kind() Kind { return IBM2 }

// Clear resets shared state and discards the alignment table.
func (m *IBM2Model) Clear() {
	m.Base.Clear()
	m.Alig.Clear()
}

// InitPassHooks reserves lex and alignment skeleton entries.
func (m *IBM2Model) InitPassHooks(store *corpus.Store, lo, hi int) {
	if m.InitialPassDone() {
		return
	}
	for _, pair := range store.Range(lo, hi) {
		if !m.SentenceLengthIsOk(pair) {
			continue
		}
		slen, tlen := len(pair.Src), len(pair.Trg)
		extSrc := append([]int{vocab.NullWord}, pair.Src...)
		for j, t := range pair.Trg {
			for i, s := range extSrc {
				m.Lex.ReserveSpace(s, t)
				m.Alig.ReserveSpace(table.IBM2AligKey{J: j, SLen: slen, TLen: tlen}, i)
			}
		}
	}
	m.MarkInitialPassDone()
}

// EStepPair accumulates lexical and positional-alignment posteriors.
func (m *IBM2Model) EStepPair(pair corpus.SentencePair, acc *SuffStats) {
	if !m.SentenceLengthIsOk(pair) {
		acc.MarkSkipped()
		return
	}
	slen, tlen := len(pair.Src), len(pair.Trg)
	extSrc := append([]int{vocab.NullWord}, pair.Src...)
	w := float64(pair.Weight)
	acc.AddSentLen(slen, tlen, w)
	for j, t := range pair.Trg {
		k := table.IBM2AligKey{J: j, SLen: slen, TLen: tlen}
		probs := make([]float64, len(extSrc))
		var denom float64
		for i, s := range extSrc {
			p := m.Alig.Prob(k, i) * m.Lex.Prob(s, t, table.SWProbSmooth)
			probs[i] = p
			denom += p
		}
		if denom <= 0 {
			continue
		}
		for i, s := range extSrc {
			gamma := probs[i] / denom
			acc.AddLex(s, t, gamma*w)
			acc.AddIBM2Alig(k, i, gamma*w)
		}
	}
}

// MStepFinalize normalizes lex and alignment tables and advances iter.
func (m *IBM2Model) MStepFinalize(acc *SuffStats) {
	m.ApplyLexAndSentLen(acc)
	m.Alig.ZeroCounts()
	for k, row := range acc.IBM2Alig {
		for i, num := range row {
			m.Alig.SetNum(k, i, num)
		}
	}
	for _, k := range m.Alig.Keys() {
		m.Alig.MaximizeRow(k)
	}
	m.BumpIter()
	m.SetState(StateTrained)
}

// ScoreAlignment returns log p(t, a | s) under the positional model.
func (m *IBM2Model) ScoreAlignment(pair corpus.SentencePair, alignment []int) float64 {
	slen, tlen := len(pair.Src), len(pair.Trg)
	extSrc := append([]int{vocab.NullWord}, pair.Src...)
	total := math.Log(m.SentLen.SentLenProb(slen, tlen))
	for j, t := range pair.Trg {
		i := alignment[j]
		s := extSrc[i]
		k := table.IBM2AligKey{J: j, SLen: slen, TLen: tlen}
		total += math.Log(m.Alig.Prob(k, i)) + m.Lex.LogProb(s, t, table.SWProbSmooth)
	}
	return total
}

// SentenceLogLikelihood returns log p(t|s) summed over all hidden
// alignments: log p(tlen|slen) + Σ_j log( Σ_i a(i|j,slen,tlen)·p(t_j|s_i) ).
func (m *IBM2Model) SentenceLogLikelihood(pair corpus.SentencePair) float64 {
	slen, tlen := len(pair.Src), len(pair.Trg)
	extSrc := append([]int{vocab.NullWord}, pair.Src...)
	total := math.Log(m.SentLen.SentLenProb(slen, tlen))
	for j, t := range pair.Trg {
		k := table.IBM2AligKey{J: j, SLen: slen, TLen: tlen}
		var sum float64
		for i, s := range extSrc {
			sum += m.Alig.Prob(k, i) * m.Lex.Prob(s, t, table.SWProbSmooth)
		}
		total += math.Log(sum)
	}
	return total
}

// BestAlignment picks, per target position, argmax_i a(i|j,slen,tlen)
// * p(t_j|s_i).
func (m *IBM2Model) BestAlignment(pair corpus.SentencePair) []int {
	slen, tlen := len(pair.Src), len(pair.Trg)
	extSrc := append([]int{vocab.NullWord}, pair.Src...)
	ans := make([]int, len(pair.Trg))
	for j, t := range pair.Trg {
		k := table.IBM2AligKey{J: j, SLen: slen, TLen: tlen}
		bestI, bestP := 0, -1.0
		for i, s := range extSrc {
			p := m.Alig.Prob(k, i) * m.Lex.Prob(s, t, table.SWProbSmooth)
			if p > bestP {
				bestP = p
				bestI = i
			}
		}
		ans[j] = bestI
	}
	return ans
}
