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
	"sort"

	"github.com/czcorpus/wordalign/corpus"
	"github.com/czcorpus/wordalign/table"
	"github.com/czcorpus/wordalign/vocab"
	"github.com/czcorpus/wordalign/wordclass"
)

// DistortionSmoothFactor is the default interpolation weight used by
// IBM4's head/nonhead distortion tables, applied against a uniform
// distribution; 0 returns the raw estimate.
const DistortionSmoothFactor = 0.2

// IBM4Model replaces IBM3's position-dependent distortion with two
// class-conditioned tables: head displacement keyed by (srcClass,
// trgClass) and non-head displacement keyed by trgClass alone.
type IBM4Model struct {
	Base
	Fertility *table.FertilityTable
	Head      *table.HeadDistortionTable
	NonHead   *table.NonHeadDistortionTable
	P1        float64

	// DistSmooth is the interpolation weight both distortion tables
	// were constructed with; kept so reloading from disk can rebuild
	// them identically.
	DistSmooth float64

	// Seeder supplies the HMM Viterbi alignment hillclimbing starts
	// from; when absent a per-target lexical argmax is used instead.
	Seeder SeedAligner

	hillclimbSteps int
}

// NewIBM4 creates an untrained IBM4 model.
func NewIBM4(voc *vocab.Vocabulary, classes *wordclass.ClassMap, maxSentLen int) *IBM4Model {
	return &IBM4Model{
		Base:           NewBase(voc, classes, maxSentLen),
		Fertility:      table.NewFertilityTable(MaxFertility),
		Head:           table.NewHeadDistortionTable(DistortionSmoothFactor),
		NonHead:        table.NewNonHeadDistortionTable(DistortionSmoothFactor),
		P1:             0.2,
		DistSmooth:     DistortionSmoothFactor,
		hillclimbSteps: 50,
	}
}

// NewIBM4FromIBM3 transfers lex, fertility and p1 from a trained IBM3
// predecessor by deep copy; the distortion tables start empty since
// IBM4's distortion parameterization has no IBM3 analogue to transfer.
func NewIBM4FromIBM3(pred *IBM3Model) *IBM4Model {
	m := NewIBM4(pred.Vocab, pred.Classes, pred.MaxSentLen)
	m.Lex = cloneLexTable(pred.Lex, pred.Vocab.Size())
	m.Fertility = cloneFertilityTable(pred.Fertility)
	m.P1 = pred.P1
	m.SetState(StateInitialized)
	return m
}

func (m *IBM4Model) Kind() Kind { return IBM4 }

// Clear resets shared state and discards the fertility and distortion
// tables.
func (m *IBM4Model) Clear() {
	m.Base.Clear()
	m.Fertility.Clear()
	m.Head.Clear()
	m.NonHead.Clear()
	m.P1 = 0.2
}

// InitPassHooks reserves lex and fertility skeleton entries; the
// head/nonhead distortion tables are populated lazily during the E-step
// since their keys depend on word classes resolved per cept.
func (m *IBM4Model) InitPassHooks(store *corpus.Store, lo, hi int) {
	if m.InitialPassDone() {
		return
	}
	for _, pair := range store.Range(lo, hi) {
		if !m.SentenceLengthIsOk(pair) {
			continue
		}
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
	}
	m.MarkInitialPassDone()
}

// cept is one non-null source position's generated target positions
// (1-based target positions, ascending).
type cept struct {
	SrcPos  int
	Targets []int
}

// ceptsOf groups an alignment into ordered cepts by source position;
// target positions are stored 1-based so displacement arithmetic
// matches the position-index convention.
func ceptsOf(alignment []int, slen int) []cept {
	byPos := make(map[int][]int)
	for j, a := range alignment {
		if a == 0 {
			continue
		}
		byPos[a] = append(byPos[a], j+1)
	}
	ans := make([]cept, 0, len(byPos))
	for i := 1; i <= slen; i++ {
		if targets, ok := byPos[i]; ok {
			sort.Ints(targets)
			ans = append(ans, cept{SrcPos: i, Targets: targets})
		}
	}
	return ans
}

func ceilMean(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return int(math.Ceil(float64(total) / float64(len(xs))))
}

// ScoreAlignment returns log p(t, a | s) under the IBM4 joint: sentence
// length, null-generation binomial, per-source fertility, lexical
// terms, and class-conditioned head/non-head distortion per cept. The
// head displacement is conditioned on the PREVIOUS cept's source word
// class (NullClass for the sentence's first cept) together with the
// head target word's class.
func (m *IBM4Model) ScoreAlignment(pair corpus.SentencePair, alignment []int) float64 {
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
		total += math.Log(m.Fertility.Prob(pair.Src[i-1], phi[i]))
	}
	for j, t := range pair.Trg {
		a := alignment[j]
		if a == 0 {
			total += m.Lex.LogProb(vocab.NullWord, t, table.SWProbSmooth)
		} else {
			total += m.Lex.LogProb(pair.Src[a-1], t, table.SWProbSmooth)
		}
	}

	prevCenter := 0
	prevClass := wordclass.NullClass
	for _, c := range ceptsOf(alignment, slen) {
		head := c.Targets[0]
		trgClass := m.Classes.ClassOf(pair.Trg[head-1])
		dj := head - prevCenter
		total += math.Log(m.Head.Prob(table.HeadDistortionKey{SrcClass: prevClass, TrgClass: trgClass}, dj, tlen))
		for k := 1; k < len(c.Targets); k++ {
			nhClass := m.Classes.ClassOf(pair.Trg[c.Targets[k]-1])
			dj := c.Targets[k] - c.Targets[k-1]
			total += math.Log(m.NonHead.Prob(nhClass, dj, tlen))
		}
		prevCenter = ceilMean(c.Targets)
		prevClass = m.Classes.ClassOf(pair.Src[c.SrcPos-1])
	}
	return total
}

// seed returns the alignment hillclimbing starts from: the configured
// HMM Viterbi seeder when present, a per-target lexical argmax
// otherwise.
func (m *IBM4Model) seed(pair corpus.SentencePair) []int {
	if m.Seeder != nil {
		if a := m.Seeder.BestAlignment(pair); len(a) == len(pair.Trg) {
			return a
		}
	}
	return m.lexicalSeed(pair)
}

func (m *IBM4Model) lexicalSeed(pair corpus.SentencePair) []int {
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

func (m *IBM4Model) hillclimb(pair corpus.SentencePair, seed []int) []int {
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

// BestAlignment hillclimbs from the HMM Viterbi seed (falling back to
// a lexical argmax when no seeder is configured).
func (m *IBM4Model) BestAlignment(pair corpus.SentencePair) []int {
	return m.hillclimb(pair, m.seed(pair))
}

// EStepPair hillclimbs to a local optimum, enumerates its pegged
// neighborhood, and accumulates normalized posterior counts into the
// lexical, fertility and class-conditioned distortion tables.
func (m *IBM4Model) EStepPair(pair corpus.SentencePair, acc *SuffStats) {
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
			if a[j] == 0 {
				acc.AddLex(vocab.NullWord, t, post*w)
			} else {
				acc.AddLex(pair.Src[a[j]-1], t, post*w)
			}
		}
		prevCenter := 0
		prevClass := wordclass.NullClass
		for _, c := range ceptsOf(a, slen) {
			head := c.Targets[0]
			trgClass := m.Classes.ClassOf(pair.Trg[head-1])
			dj := head - prevCenter
			acc.AddHeadDist(table.HeadDistortionKey{SrcClass: prevClass, TrgClass: trgClass}, dj, post*w)
			for k := 1; k < len(c.Targets); k++ {
				nhClass := m.Classes.ClassOf(pair.Trg[c.Targets[k]-1])
				ndj := c.Targets[k] - c.Targets[k-1]
				acc.AddNonHeadDist(nhClass, ndj, post*w)
			}
			prevCenter = ceilMean(c.Targets)
			prevClass = m.Classes.ClassOf(pair.Src[c.SrcPos-1])
		}
	}
}

// MStepFinalize normalizes lex, fertility and the class-conditioned
// head/non-head distortion tables, re-estimates p1, and advances iter.
func (m *IBM4Model) MStepFinalize(acc *SuffStats) {
	m.ApplyLexAndSentLen(acc)
	m.Fertility.ZeroCounts()
	for k, num := range acc.Fert {
		m.Fertility.SetNum(k[0], k[1], num)
	}
	for _, s := range m.Fertility.Keys() {
		m.Fertility.MaximizeRow(s)
	}
	m.Head.ZeroCounts()
	for k, row := range acc.HeadDist {
		for dj, num := range row {
			m.Head.SetNum(k, dj, num)
		}
	}
	for _, k := range m.Head.Keys() {
		m.Head.MaximizeRow(k)
	}
	m.NonHead.ZeroCounts()
	for k, num := range acc.NonHead {
		m.NonHead.SetNum(k[0], k[1], num)
	}
	for _, k := range m.NonHead.Keys() {
		m.NonHead.MaximizeRow(k)
	}
	if acc.P1Den > 0 {
		m.P1 = acc.P1Num / acc.P1Den
	}
	m.BumpIter()
	m.SetState(StateTrained)
}
