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

// MaxFertility bounds the fertility table's phi axis.
const MaxFertility = 9

// IBM3Model adds fertility, position-dependent distortion and a
// null-generation Bernoulli parameter p1 on top of IBM2's lexical
// table. Exact EM is intractable, so the E-step hillclimbs from a seed
// alignment and accumulates posteriors over the pegged neighborhood of
// the resulting local optimum.
type IBM3Model struct {
	Base
	Fertility *table.FertilityTable
	Dist      *table.IBM3DistortionTable
	P1        float64

	// Seeder supplies the HMM Viterbi alignment hillclimbing starts
	// from; when absent (e.g. a model loaded standalone from parameter
	// files) a per-target lexical argmax is used instead.
	Seeder SeedAligner

	hillclimbSteps int
}

// NewIBM3 creates an untrained IBM3 model with a default null-
// generation probability.
func NewIBM3(voc *vocab.Vocabulary, classes *wordclass.ClassMap, maxSentLen int) *IBM3Model {
	return &IBM3Model{
		Base:           NewBase(voc, classes, maxSentLen),
		Fertility:      table.NewFertilityTable(MaxFertility),
		Dist:           table.NewIBM3DistortionTable(),
		P1:             0.2,
		hillclimbSteps: 50,
	}
}

// NewIBM3FromIBM2 transfers the lexical table from a trained IBM2
// predecessor by deep copy, per the value-level transfer contract: the
// two models share no mutable state afterwards.
func NewIBM3FromIBM2(pred *IBM2Model) *IBM3Model {
	m := NewIBM3(pred.Vocab, pred.Classes, pred.MaxSentLen)
	m.Lex = cloneLexTable(pred.Lex, pred.Vocab.Size())
	m.SetState(StateInitialized)
	return m
}

func (m *IBM3Model) Kind() Kind { return IBM3 }

// Clear resets shared state and discards the fertility and distortion
// tables.
func (m *IBM3Model) Clear() {
	m.Base.Clear()
	m.Fertility.Clear()
	m.Dist.Clear()
	m.P1 = 0.2
}

// InitPassHooks reserves lex, fertility and distortion skeleton
// entries.
func (m *IBM3Model) InitPassHooks(store *corpus.Store, lo, hi int) {
	if m.InitialPassDone() {
		return
	}
	for _, pair := range store.Range(lo, hi) {
		if !m.SentenceLengthIsOk(pair) {
			continue
		}
		slen, tlen := len(pair.Src), len(pair.Trg)
		for _, t := range pair.Trg {
			m.Lex.ReserveSpace(vocab.NullWord, t)
			for _, s := range pair.Src {
				m.Lex.ReserveSpace(s, t)
			}
		}
		for _, s := range pair.Src {
			for phi := 0; phi <= MaxFertility; phi++ {
				m.Fertility.ReserveSpace(s, phi)
			}
		}
		for i := 1; i <= slen; i++ {
			for j := 0; j < tlen; j++ {
				m.Dist.ReserveSpace(table.IBM3DistortionKey{I: i, SLen: slen, TLen: tlen}, j)
			}
		}
	}
	m.MarkInitialPassDone()
}

func logFactorial(n int) float64 {
	lg, _ := math.Lgamma(float64(n + 1))
	return lg
}

func logBinomial(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	return logFactorial(n) - logFactorial(k) - logFactorial(n-k)
}

// fertilities computes phi_i for i=0..slen from an alignment (0 =
// null).
func fertilities(alignment []int, slen int) []int {
	phi := make([]int, slen+1)
	for _, a := range alignment {
		phi[a]++
	}
	return phi
}

// ScoreAlignment returns log p(t, a | s) under the IBM3 joint: sentence
// length, null-generation binomial, per-source fertility, and per-
// target lexical and distortion terms.
func (m *IBM3Model) ScoreAlignment(pair corpus.SentencePair, alignment []int) float64 {
	slen, tlen := len(pair.Src), len(pair.Trg)
	phi := fertilities(alignment, slen)
	phi0 := phi[0]
	p0 := 1 - m.P1

	total := math.Log(m.SentLen.SentLenProb(slen, tlen))
	total += logBinomial(tlen-phi0, phi0)
	if phi0 > 0 {
		total += float64(phi0) * math.Log(m.P1)
	}
	if tlen-2*phi0 > 0 {
		total += float64(tlen-2*phi0) * math.Log(p0)
	}
	for i := 1; i <= slen; i++ {
		total += logFactorial(phi[i]) + math.Log(m.Fertility.Prob(pair.Src[i-1], phi[i]))
	}
	for j, t := range pair.Trg {
		a := alignment[j]
		if a == 0 {
			total += m.Lex.LogProb(vocab.NullWord, t, table.SWProbSmooth)
			continue
		}
		total += m.Lex.LogProb(pair.Src[a-1], t, table.SWProbSmooth)
		total += math.Log(m.Dist.Prob(table.IBM3DistortionKey{I: a, SLen: slen, TLen: tlen}, j))
	}
	return total
}

// seed returns the alignment hillclimbing starts from: the configured
// HMM Viterbi seeder when present, a per-target lexical argmax
// otherwise.
func (m *IBM3Model) seed(pair corpus.SentencePair) []int {
	if m.Seeder != nil {
		if a := m.Seeder.BestAlignment(pair); len(a) == len(pair.Trg) {
			return a
		}
	}
	return m.lexicalSeed(pair)
}

// lexicalSeed picks, per target position, argmax_i p(t_j|s_i) ignoring
// distortion and fertility.
func (m *IBM3Model) lexicalSeed(pair corpus.SentencePair) []int {
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

// moveLexPruneMargin skips scoring a move candidate whose lexical fit
// for the moved target word lies this far (in log domain) below the
// best fit any source word offers it; only near-floor pairings are cut.
const moveLexPruneMargin = 15.0

// hillclimb repeatedly applies the swap and move neighborhood operators
// until no neighbor improves the joint score or the step budget is
// exhausted, returning the local optimum. Move candidates are pruned
// through the per-target best-lexical-logprob memo.
func (m *IBM3Model) hillclimb(pair corpus.SentencePair, seed []int) []int {
	cur := append([]int(nil), seed...)
	curScore := m.ScoreAlignment(pair, cur)
	slen := len(pair.Src)
	for step := 0; step < m.hillclimbSteps; step++ {
		improved := false
		for j, t := range pair.Trg {
			bound := m.BestLgProbForTrgWord(t) - moveLexPruneMargin
			for i := 0; i <= slen; i++ {
				if i == cur[j] {
					continue
				}
				s := vocab.NullWord
				if i > 0 {
					s = pair.Src[i-1]
				}
				if m.Lex.LogProb(s, t, table.SWProbSmooth) < bound {
					continue
				}
				cand := append([]int(nil), cur...)
				cand[j] = i
				if sc := m.ScoreAlignment(pair, cand); sc > curScore {
					curScore = sc
					cur = cand
					improved = true
				}
			}
		}
		for j1 := range cur {
			for j2 := j1 + 1; j2 < len(cur); j2++ {
				if cur[j1] == cur[j2] {
					continue
				}
				cand := append([]int(nil), cur...)
				cand[j1], cand[j2] = cand[j2], cand[j1]
				if sc := m.ScoreAlignment(pair, cand); sc > curScore {
					curScore = sc
					cur = cand
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return cur
}

// neighbors enumerates the move neighborhood (reassign one target's
// source) and the swap neighborhood (exchange two targets' sources) of
// alignment, the pegged set a hillclimbing step searches.
func neighbors(alignment []int, slen int) [][]int {
	ans := make([][]int, 0, len(alignment)*(slen+1)+len(alignment)*len(alignment))
	for j := range alignment {
		for i := 0; i <= slen; i++ {
			if i == alignment[j] {
				continue
			}
			cand := append([]int(nil), alignment...)
			cand[j] = i
			ans = append(ans, cand)
		}
	}
	for j1 := range alignment {
		for j2 := j1 + 1; j2 < len(alignment); j2++ {
			if alignment[j1] == alignment[j2] {
				continue
			}
			cand := append([]int(nil), alignment...)
			cand[j1], cand[j2] = cand[j2], cand[j1]
			ans = append(ans, cand)
		}
	}
	return ans
}

// BestAlignment hillclimbs from the HMM Viterbi seed (falling back to
// a lexical argmax when no seeder is configured).
func (m *IBM3Model) BestAlignment(pair corpus.SentencePair) []int {
	return m.hillclimb(pair, m.seed(pair))
}

// EStepPair hillclimbs to a local optimum, enumerates its pegged
// neighborhood, and accumulates normalized posterior counts over that
// set rather than the full exponential alignment space.
func (m *IBM3Model) EStepPair(pair corpus.SentencePair, acc *SuffStats) {
	if !m.SentenceLengthIsOk(pair) {
		acc.MarkSkipped()
		return
	}
	slen, tlen := len(pair.Src), len(pair.Trg)
	w := float64(pair.Weight)

	best := m.hillclimb(pair, m.seed(pair))
	pegged := append([][]int{best}, neighbors(best, slen)...)
	scores := make([]float64, len(pegged))
	for idx, a := range pegged {
		scores[idx] = m.ScoreAlignment(pair, a)
	}
	logZ := table.LogSumExp(scores...)
	if math.IsInf(logZ, -1) {
		acc.MarkSkipped()
		return
	}
	acc.AddSentLen(slen, tlen, w)

	for idx, a := range pegged {
		post := math.Exp(scores[idx] - logZ)
		if post <= 0 {
			continue
		}
		phi := fertilities(a, slen)
		acc.AddP1(post*w, phi[0], tlen)
		for i := 1; i <= slen; i++ {
			if phi[i] > MaxFertility {
				continue
			}
			acc.AddFertility(pair.Src[i-1], phi[i], post*w)
		}
		for j, t := range pair.Trg {
			ai := a[j]
			if ai == 0 {
				acc.AddLex(vocab.NullWord, t, post*w)
				continue
			}
			acc.AddLex(pair.Src[ai-1], t, post*w)
			acc.AddIBM3Dist(table.IBM3DistortionKey{I: ai, SLen: slen, TLen: tlen}, j, post*w)
		}
	}
}

// MStepFinalize normalizes lex, fertility and distortion tables,
// re-estimates p1 from the accumulated null-generation counts, and
// advances iter.
func (m *IBM3Model) MStepFinalize(acc *SuffStats) {
	m.ApplyLexAndSentLen(acc)
	m.Fertility.ZeroCounts()
	for k, num := range acc.Fert {
		m.Fertility.SetNum(k[0], k[1], num)
	}
	for _, s := range m.Fertility.Keys() {
		m.Fertility.MaximizeRow(s)
	}
	m.Dist.ZeroCounts()
	for k, row := range acc.IBM3Dist {
		for j, num := range row {
			m.Dist.SetNum(k, j, num)
		}
	}
	for _, k := range m.Dist.Keys() {
		m.Dist.MaximizeRow(k)
	}
	if acc.P1Den > 0 {
		m.P1 = acc.P1Num / acc.P1Den
	}
	m.BumpIter()
	m.SetState(StateTrained)
}
