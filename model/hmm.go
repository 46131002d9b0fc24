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

// HMMModel is the HMM alignment model. States are source positions
// 1..slen plus, for every real position k, a "stuck at k" null state:
// once the trellis enters null after position k, it may only stay null
// or return to a real position — never jump to a null state stuck at a
// different k. This realizes the sticky-null invariant without
// widening the table itself: HMMAligTable already stores a(0|k,slen) as
// the probability of the k -> null transition, and a(i|k,slen) for
// i>0 as the probability of resuming at a real position, whether the
// previous step was real or stuck-null at k.
type HMMModel struct {
	Base
	Alig *table.HMMAligTable

	// AligSmooth and LexSmooth are the linear-interpolation weights
	// against a uniform distribution applied to transition and emission
	// probabilities respectively.
	AligSmooth float64
	LexSmooth  float64
}

// Default interpolation weights for the HMM's transition and emission
// smoothing.
const (
	AligSmoothInterpFactor = 0.3
	LexSmoothInterpFactor  = 0.1
)

// NewHMM creates an untrained HMM model.
func NewHMM(voc *vocab.Vocabulary, classes *wordclass.ClassMap, maxSentLen int) *HMMModel {
	return &HMMModel{
		Base:       NewBase(voc, classes, maxSentLen),
		Alig:       table.NewHMMAligTable(),
		AligSmooth: AligSmoothInterpFactor,
		LexSmooth:  LexSmoothInterpFactor,
	}
}

// NewHMMFromIBM1 transfers the lexical table from a trained IBM1
// predecessor by deep copy.
func NewHMMFromIBM1(pred *IBM1Model) *HMMModel {
	m := &HMMModel{
		Base: Base{
			Lex:        cloneLexTable(pred.Lex, pred.Vocab.Size()),
			SentLen:    table.NewSentLenTable(sentLenCap(pred.MaxSentLen)),
			Vocab:      pred.Vocab,
			Classes:    pred.Classes,
			LexCache:   table.NewBestLgProbForTrgWordCache(),
			MaxSentLen: pred.MaxSentLen,
		},
		Alig:       table.NewHMMAligTable(),
		AligSmooth: AligSmoothInterpFactor,
		LexSmooth:  LexSmoothInterpFactor,
	}
	m.SetState(StateInitialized)
	return m
}

func (m *HMMModel) Kind() Kind { return HMM }

// Clear resets shared state and discards the transition table.
func (m *HMMModel) Clear() {
	m.Base.Clear()
	m.Alig.Clear()
}

// hmmState is a trellis state: Pos is the real source position this
// state resolves to (1..slen), Null marks whether the trellis is
// currently parked in the null state stuck at Pos.
type hmmState struct {
	Pos  int
	Null bool
}

func (m *HMMModel) states(slen int) []hmmState {
	ans := make([]hmmState, 0, 2*slen)
	for i := 1; i <= slen; i++ {
		ans = append(ans, hmmState{Pos: i})
	}
	for i := 1; i <= slen; i++ {
		ans = append(ans, hmmState{Pos: i, Null: true})
	}
	return ans
}

// emitWord returns the source word index a state resolves to for
// lexical scoring purposes: the null word when the state is null.
func emitWord(pair corpus.SentencePair, st hmmState) int {
	if st.Null {
		return vocab.NullWord
	}
	return pair.Src[st.Pos-1]
}

// transProb interpolates the raw transition estimate with a uniform
// distribution over the slen+1 reachable positions.
func (m *HMMModel) transProb(prevI, i, slen int) float64 {
	raw := m.Alig.Prob(table.HMMAligKey{PrevI: prevI, SLen: slen}, i)
	uniform := 1.0 / float64(slen+1)
	return (1-m.AligSmooth)*raw + m.AligSmooth*uniform
}

// lexLogProb interpolates the epsilon-smoothed lexical estimate with a
// uniform distribution over the target vocabulary.
func (m *HMMModel) lexLogProb(s, t int) float64 {
	raw := m.Lex.Prob(s, t, table.SWProbSmooth)
	if m.LexSmooth == 0 {
		return math.Log(raw)
	}
	uniform := 1.0 / float64(m.Vocab.Size())
	return math.Log((1-m.LexSmooth)*raw + m.LexSmooth*uniform)
}

// logTransition returns log a(to | from, slen), honoring the sticky
// rule that a null-stuck-at-k state's only real-valued predecessor
// position is k itself.
func (m *HMMModel) logTransition(from, to hmmState, slen int) float64 {
	if to.Null && from.Pos != to.Pos {
		return math.Inf(-1)
	}
	i := to.Pos
	if to.Null {
		i = 0
	}
	return math.Log(m.transProb(from.Pos, i, slen))
}

func (m *HMMModel) logInitial(to hmmState, slen int) float64 {
	i := to.Pos
	if to.Null {
		i = 0
	}
	return math.Log(m.transProb(0, i, slen))
}

// InitPassHooks reserves lex and HMM transition skeleton entries.
func (m *HMMModel) InitPassHooks(store *corpus.Store, lo, hi int) {
	if m.InitialPassDone() {
		return
	}
	for _, pair := range store.Range(lo, hi) {
		if !m.SentenceLengthIsOk(pair) {
			continue
		}
		slen := len(pair.Src)
		for _, t := range pair.Trg {
			m.Lex.ReserveSpace(vocab.NullWord, t)
			for _, s := range pair.Src {
				m.Lex.ReserveSpace(s, t)
			}
		}
		for prevI := 0; prevI <= slen; prevI++ {
			for i := 0; i <= slen; i++ {
				m.Alig.ReserveSpace(table.HMMAligKey{PrevI: prevI, SLen: slen}, i)
			}
		}
	}
	m.MarkInitialPassDone()
}

// forwardBackward runs the forward-backward algorithm in log domain
// over the trellis of size tlen x (2*slen), returning the forward
// and backward log-probability tables plus the list of states.
func (m *HMMModel) forwardBackward(pair corpus.SentencePair) (fwd, bwd [][]float64, states []hmmState, logZ float64) {
	slen := len(pair.Src)
	tlen := len(pair.Trg)
	states = m.states(slen)
	n := len(states)

	fwd = make([][]float64, tlen)
	for j := 0; j < tlen; j++ {
		fwd[j] = make([]float64, n)
		for si := range fwd[j] {
			fwd[j][si] = math.Inf(-1)
		}
	}
	for si, st := range states {
		emit := m.lexLogProb(emitWord(pair, st), pair.Trg[0])
		fwd[0][si] = m.logInitial(st, slen) + emit
	}
	for j := 1; j < tlen; j++ {
		for si, to := range states {
			emit := m.lexLogProb(emitWord(pair, to), pair.Trg[j])
			terms := make([]float64, 0, n)
			for pi, from := range states {
				lt := m.logTransition(from, to, slen)
				if math.IsInf(lt, -1) || math.IsInf(fwd[j-1][pi], -1) {
					continue
				}
				terms = append(terms, fwd[j-1][pi]+lt)
			}
			if len(terms) == 0 {
				fwd[j][si] = math.Inf(-1)
				continue
			}
			fwd[j][si] = table.LogSumExp(terms...) + emit
		}
	}

	bwd = make([][]float64, tlen)
	for j := range bwd {
		bwd[j] = make([]float64, n)
	}
	for si := range bwd[tlen-1] {
		bwd[tlen-1][si] = 0
	}
	for j := tlen - 2; j >= 0; j-- {
		for si, from := range states {
			terms := make([]float64, 0, n)
			for ni, to := range states {
				lt := m.logTransition(from, to, slen)
				if math.IsInf(lt, -1) {
					continue
				}
				emit := m.lexLogProb(emitWord(pair, to), pair.Trg[j+1])
				terms = append(terms, lt+emit+bwd[j+1][ni])
			}
			if len(terms) == 0 {
				bwd[j][si] = math.Inf(-1)
				continue
			}
			bwd[j][si] = table.LogSumExp(terms...)
		}
	}

	finalTerms := make([]float64, n)
	for si := range states {
		finalTerms[si] = fwd[tlen-1][si]
	}
	logZ = table.LogSumExp(finalTerms...)
	return
}

// EStepPair runs forward-backward and accumulates posterior lexical and
// transition counts.
func (m *HMMModel) EStepPair(pair corpus.SentencePair, acc *SuffStats) {
	if !m.SentenceLengthIsOk(pair) {
		acc.MarkSkipped()
		return
	}
	slen := len(pair.Src)
	tlen := len(pair.Trg)
	fwd, bwd, states, logZ := m.forwardBackward(pair)
	if math.IsInf(logZ, -1) {
		acc.MarkSkipped()
		return
	}
	w := float64(pair.Weight)
	acc.AddSentLen(slen, tlen, w)

	// posterior log expectations are clamped into
	// [ExpValLogMin, ExpValLogMax]; a zero posterior is dropped
	// rather than floored
	for j := 0; j < tlen; j++ {
		for si, st := range states {
			lg := fwd[j][si] + bwd[j][si] - logZ
			if math.IsInf(lg, -1) {
				continue
			}
			gamma := math.Exp(table.ClampLog(lg))
			acc.AddLex(emitWord(pair, st), pair.Trg[j], gamma*w)
		}
	}

	for j := 1; j < tlen; j++ {
		emitNext := make([]float64, len(states))
		for si, to := range states {
			emitNext[si] = m.lexLogProb(emitWord(pair, to), pair.Trg[j])
		}
		for pi, from := range states {
			if math.IsInf(fwd[j-1][pi], -1) {
				continue
			}
			for ni, to := range states {
				lt := m.logTransition(from, to, slen)
				if math.IsInf(lt, -1) {
					continue
				}
				lxi := fwd[j-1][pi] + lt + emitNext[ni] + bwd[j][ni] - logZ
				if math.IsInf(lxi, -1) {
					continue
				}
				xi := math.Exp(table.ClampLog(lxi))
				i := to.Pos
				if to.Null {
					i = 0
				}
				acc.AddHMMAlig(table.HMMAligKey{PrevI: from.Pos, SLen: slen}, i, xi*w)
			}
		}
	}

	// initial-step transitions come from the synthetic prev_i = 0 state
	for si, st := range states {
		lg := fwd[0][si] + bwd[0][si] - logZ
		if math.IsInf(lg, -1) {
			continue
		}
		i := st.Pos
		if st.Null {
			i = 0
		}
		acc.AddHMMAlig(table.HMMAligKey{PrevI: 0, SLen: slen}, i, math.Exp(table.ClampLog(lg))*w)
	}
}

// SentenceLogLikelihood returns the forward algorithm's total
// log-probability logZ = log Σ_paths p(t, path | s), for the
// forward-backward identity.
func (m *HMMModel) SentenceLogLikelihood(pair corpus.SentencePair) float64 {
	if len(pair.Trg) == 0 {
		return math.Inf(-1)
	}
	slen := len(pair.Src)
	_, _, _, logZ := m.forwardBackward(pair)
	return math.Log(m.SentLen.SentLenProb(slen, len(pair.Trg))) + logZ
}

// MStepFinalize normalizes lex and transition tables and advances iter.
func (m *HMMModel) MStepFinalize(acc *SuffStats) {
	m.ApplyLexAndSentLen(acc)
	m.Alig.ZeroCounts()
	for k, row := range acc.HMMAlig {
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

// stateForAlignment maps an alignment position i (0 = null, 1..slen
// real) at target position j to the state used when it follows the
// position from alignment[j-1], preferring the sticky-null encoding
// when i is 0.
func stateForAlignment(alignment []int, j int) hmmState {
	if alignment[j] != 0 {
		return hmmState{Pos: alignment[j]}
	}
	for k := j - 1; k >= 0; k-- {
		if alignment[k] != 0 {
			return hmmState{Pos: alignment[k], Null: true}
		}
	}
	return hmmState{Pos: 1, Null: true}
}

// TransLogProb exposes the smoothed transition log-probability
// log a(i | prevI, slen), e.g. for candidate scorers that memoize it.
func (m *HMMModel) TransLogProb(prevI, i, slen int) float64 {
	return math.Log(m.transProb(prevI, i, slen))
}

// ScoreAlignment returns log p(t, a | s) for a fixed alignment, honoring
// the sticky-null encoding.
func (m *HMMModel) ScoreAlignment(pair corpus.SentencePair, alignment []int) float64 {
	return m.ScoreAlignmentWith(pair, alignment, func(k table.HMMAligKey, i int) float64 {
		return m.TransLogProb(k.PrevI, i, k.SLen)
	})
}

// ScoreAlignmentWith scores a fixed alignment, resolving transition
// log-probabilities through trans. The sticky-null state reconstruction
// guarantees consecutive null steps share their return position, so
// trans is only consulted for reachable transitions.
func (m *HMMModel) ScoreAlignmentWith(pair corpus.SentencePair, alignment []int, trans func(k table.HMMAligKey, i int) float64) float64 {
	slen := len(pair.Src)
	total := math.Log(m.SentLen.SentLenProb(slen, len(pair.Trg)))
	var prev hmmState
	for j, t := range pair.Trg {
		st := stateForAlignment(alignment, j)
		emit := m.lexLogProb(emitWord(pair, st), t)
		i := st.Pos
		if st.Null {
			i = 0
		}
		prevPos := 0
		if j > 0 {
			prevPos = prev.Pos
		}
		total += trans(table.HMMAligKey{PrevI: prevPos, SLen: slen}, i) + emit
		prev = st
	}
	return total
}

// BestAlignment runs Viterbi over the sticky-null trellis and returns
// the backpointer path as source positions (0 = null).
func (m *HMMModel) BestAlignment(pair corpus.SentencePair) []int {
	return m.BestAlignmentWith(pair, func(k table.HMMAligKey, i int) float64 {
		return m.TransLogProb(k.PrevI, i, k.SLen)
	})
}

// BestAlignmentWith runs the same Viterbi search with transition
// log-probabilities resolved through trans, letting callers that score
// many sentences against frozen parameters memoize them. The sticky
// rule is enforced structurally before trans is consulted.
func (m *HMMModel) BestAlignmentWith(pair corpus.SentencePair, trans func(k table.HMMAligKey, i int) float64) []int {
	slen := len(pair.Src)
	tlen := len(pair.Trg)
	if tlen == 0 {
		return nil
	}
	states := m.states(slen)
	n := len(states)

	transFor := func(from, to hmmState) float64 {
		if to.Null && from.Pos != to.Pos {
			return math.Inf(-1)
		}
		i := to.Pos
		if to.Null {
			i = 0
		}
		return trans(table.HMMAligKey{PrevI: from.Pos, SLen: slen}, i)
	}

	score := make([][]float64, tlen)
	back := make([][]int, tlen)
	for j := range score {
		score[j] = make([]float64, n)
		back[j] = make([]int, n)
	}
	for si, st := range states {
		emit := m.lexLogProb(emitWord(pair, st), pair.Trg[0])
		i := st.Pos
		if st.Null {
			i = 0
		}
		score[0][si] = trans(table.HMMAligKey{PrevI: 0, SLen: slen}, i) + emit
		back[0][si] = -1
	}
	for j := 1; j < tlen; j++ {
		for si, to := range states {
			emit := m.lexLogProb(emitWord(pair, to), pair.Trg[j])
			best := math.Inf(-1)
			bestPi := 0
			for pi, from := range states {
				lt := transFor(from, to)
				if math.IsInf(lt, -1) || math.IsInf(score[j-1][pi], -1) {
					continue
				}
				cand := score[j-1][pi] + lt
				if cand > best {
					best = cand
					bestPi = pi
				}
			}
			score[j][si] = best + emit
			back[j][si] = bestPi
		}
	}

	bestFinal, bestSi := math.Inf(-1), 0
	for si := range states {
		if score[tlen-1][si] > bestFinal {
			bestFinal = score[tlen-1][si]
			bestSi = si
		}
	}
	path := make([]int, tlen)
	si := bestSi
	for j := tlen - 1; j >= 0; j-- {
		st := states[si]
		if st.Null {
			path[j] = 0
		} else {
			path[j] = st.Pos
		}
		si = back[j][si]
	}
	return path
}
