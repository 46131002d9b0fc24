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

// Package model holds the alignment model family — IBM1, IBM2, HMM,
// IBM3 and IBM4 — as tagged variants dispatching through a shared
// capability interface rather than a class hierarchy. Every model
// composes a lexical table and, where applicable, a sentence-length
// model; model-specific tables (alignment, distortion, fertility) live
// on the concrete variant.
package model

import (
	"fmt"

	"github.com/czcorpus/wordalign/corpus"
	"github.com/czcorpus/wordalign/table"
	"github.com/czcorpus/wordalign/vocab"
	"github.com/czcorpus/wordalign/wordclass"
)

// Kind identifies a model variant.
type Kind int

const (
	IBM1 Kind = iota
	IBM2
	HMM
	IBM3
	IBM4
)

// String renders the kind the way CLI flags and log lines spell it.
func (k Kind) String() string {
	switch k {
	case IBM1:
		return "ibm1"
	case IBM2:
		return "ibm2"
	case HMM:
		return "hmm"
	case IBM3:
		return "ibm3"
	case IBM4:
		return "ibm4"
	default:
		return "unknown"
	}
}

// ParseKind maps a CLI/config model name to its Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "ibm1":
		return IBM1, nil
	case "ibm2":
		return IBM2, nil
	case "hmm":
		return HMM, nil
	case "ibm3":
		return IBM3, nil
	case "ibm4":
		return IBM4, nil
	default:
		return 0, fmt.Errorf("unknown model kind %q", name)
	}
}

// State is a model's lifecycle state.
type State int

const (
	StateEmpty State = iota
	StateLoaded
	StateInitialized
	StateTraining
	StateTrained
	StateSaved
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateInitialized:
		return "initialized"
	case StateTraining:
		return "training"
	case StateTrained:
		return "trained"
	case StateSaved:
		return "saved"
	default:
		return "unknown"
	}
}

// AlignedPair is one sentence pair together with its weight, carried
// alongside a resolved Viterbi alignment for scoring entry points.
type AlignedPair struct {
	Pair      corpus.SentencePair
	Alignment []int
}

// SuffStats accumulates E-step sufficient statistics for one chunk of
// sentence pairs before they are merged into the shared tables. It is
// thread-private: a worker goroutine owns one per chunk and folds it
// into a shared accumulator only at the chunk boundary, so parameter
// tables stay read-only for the whole E-step. Only numerators are
// accumulated — every table's MaximizeRow derives denominators as row
// sums during the M-step.
type SuffStats struct {
	LexNum   map[[2]int]float64
	IBM2Alig map[table.IBM2AligKey]map[int]float64
	HMMAlig  map[table.HMMAligKey]map[int]float64
	Fert     map[[2]int]float64
	IBM3Dist map[table.IBM3DistortionKey]map[int]float64
	HeadDist map[table.HeadDistortionKey]map[int]float64
	NonHead  map[[2]int]float64
	SentLen  map[[2]int]float64

	// P1Num/P1Den accumulate IBM3/IBM4's null-generation Bernoulli
	// counts: P1Num is the posterior-weighted null fertility phi0,
	// P1Den the posterior-weighted target length, summed over every
	// pegged alignment of every pair in the chunk.
	P1Num float64
	P1Den float64

	// Skipped counts pairs rejected by sentenceLengthIsOk or a
	// degenerate posterior within the chunk.
	Skipped int
}

// NewSuffStats creates an empty accumulator.
func NewSuffStats() *SuffStats {
	return &SuffStats{
		LexNum:   make(map[[2]int]float64),
		IBM2Alig: make(map[table.IBM2AligKey]map[int]float64),
		HMMAlig:  make(map[table.HMMAligKey]map[int]float64),
		Fert:     make(map[[2]int]float64),
		IBM3Dist: make(map[table.IBM3DistortionKey]map[int]float64),
		HeadDist: make(map[table.HeadDistortionKey]map[int]float64),
		NonHead:  make(map[[2]int]float64),
		SentLen:  make(map[[2]int]float64),
	}
}

// AddLex accumulates a lexical posterior contribution.
func (s *SuffStats) AddLex(src, trg int, weight float64) {
	s.LexNum[[2]int{src, trg}] += weight
}

// AddIBM2Alig accumulates a positional-alignment posterior.
func (s *SuffStats) AddIBM2Alig(k table.IBM2AligKey, i int, weight float64) {
	row, ok := s.IBM2Alig[k]
	if !ok {
		row = make(map[int]float64)
		s.IBM2Alig[k] = row
	}
	row[i] += weight
}

// AddHMMAlig accumulates a transition posterior xi(j, prev_i, i).
func (s *SuffStats) AddHMMAlig(k table.HMMAligKey, i int, weight float64) {
	row, ok := s.HMMAlig[k]
	if !ok {
		row = make(map[int]float64)
		s.HMMAlig[k] = row
	}
	row[i] += weight
}

// AddFertility accumulates a fertility posterior for (s, phi).
func (s *SuffStats) AddFertility(src, phi int, weight float64) {
	s.Fert[[2]int{src, phi}] += weight
}

// AddIBM3Dist accumulates a distortion posterior for target position j.
func (s *SuffStats) AddIBM3Dist(k table.IBM3DistortionKey, j int, weight float64) {
	row, ok := s.IBM3Dist[k]
	if !ok {
		row = make(map[int]float64)
		s.IBM3Dist[k] = row
	}
	row[j] += weight
}

// AddHeadDist accumulates a head-displacement posterior.
func (s *SuffStats) AddHeadDist(k table.HeadDistortionKey, dj int, weight float64) {
	row, ok := s.HeadDist[k]
	if !ok {
		row = make(map[int]float64)
		s.HeadDist[k] = row
	}
	row[dj] += weight
}

// AddNonHeadDist accumulates a non-head displacement posterior.
func (s *SuffStats) AddNonHeadDist(trgClass, dj int, weight float64) {
	s.NonHead[[2]int{trgClass, dj}] += weight
}

// AddSentLen records one observation of a (slen, tlen) pair.
func (s *SuffStats) AddSentLen(slen, tlen int, weight float64) {
	s.SentLen[[2]int{slen, tlen}] += weight
}

// AddP1 accumulates a null-generation posterior contribution: weight is
// the pegged alignment's posterior mass, phi0 its null fertility, tlen
// the sentence's target length.
func (s *SuffStats) AddP1(weight float64, phi0, tlen int) {
	s.P1Num += weight * float64(phi0)
	s.P1Den += weight * float64(tlen)
}

// MarkSkipped records a pair rejected within the chunk.
func (s *SuffStats) MarkSkipped() {
	s.Skipped++
}

// Merge folds accumulated delta into dst.
func (s *SuffStats) Merge(dst *SuffStats) {
	for k, v := range s.LexNum {
		dst.LexNum[k] += v
	}
	for k, row := range s.IBM2Alig {
		for i, v := range row {
			dst.AddIBM2Alig(k, i, v)
		}
	}
	for k, row := range s.HMMAlig {
		for i, v := range row {
			dst.AddHMMAlig(k, i, v)
		}
	}
	for k, v := range s.Fert {
		dst.Fert[k] += v
	}
	for k, row := range s.IBM3Dist {
		for j, v := range row {
			dst.AddIBM3Dist(k, j, v)
		}
	}
	for k, row := range s.HeadDist {
		for dj, v := range row {
			dst.AddHeadDist(k, dj, v)
		}
	}
	for k, v := range s.NonHead {
		dst.NonHead[k] += v
	}
	for k, v := range s.SentLen {
		dst.SentLen[k] += v
	}
	dst.P1Num += s.P1Num
	dst.P1Den += s.P1Den
	dst.Skipped += s.Skipped
}

// Capability is the small dispatch surface every model variant
// implements in place of virtual methods on a class hierarchy.
type Capability interface {
	// Kind reports which variant this is.
	Kind() Kind

	// State reports the current lifecycle state.
	State() State

	// InitPassHooks performs the one-time initial pass over a sentence
	// range, reserving skeleton entries for every key the model's
	// tables will observe. It is a no-op on every call after the first.
	InitPassHooks(store *corpus.Store, lo, hi int)

	// EStepPair computes posteriors for one sentence pair and folds the
	// contribution into acc.
	EStepPair(pair corpus.SentencePair, acc *SuffStats)

	// MStepFinalize normalizes every conditioning key touched since the
	// last finalize, writing the merged accumulator back into the
	// model's own tables, and advances the iteration counter.
	MStepFinalize(acc *SuffStats)

	// ScoreAlignment returns log p(t, a | s) for a fixed alignment a.
	ScoreAlignment(pair corpus.SentencePair, alignment []int) float64

	// BestAlignment returns the highest-scoring alignment for pair.
	BestAlignment(pair corpus.SentencePair) []int

	// ClearTempVars discards E-step scratch state while keeping
	// parameters; idempotent.
	ClearTempVars()

	// Clear resets the model to StateEmpty, discarding parameters.
	Clear()
}

// SeedAligner produces the seed alignment the fertility models'
// hillclimbing starts from — typically a trained HMM model's Viterbi
// decoder, memoized through the decode package's transition cache.
type SeedAligner interface {
	BestAlignment(pair corpus.SentencePair) []int
}

// Base holds the state and tables every model variant shares: the
// lexical table, sentence-length model, iteration counter, lifecycle
// state and the external collaborators (read-only, never owned).
type Base struct {
	Lex     *table.LexTable
	SentLen *table.SentLenTable
	Vocab   *vocab.Vocabulary
	Classes *wordclass.ClassMap

	LexCache *table.BestLgProbForTrgWordCache

	iter            int
	state           State
	initialPassDone bool
	SkippedPairs    int
	MaxSentLen      int
}

// DefaultSentLenCap bounds the sentence-length table's target axis
// when no explicit sentence-length limit is configured.
const DefaultSentLenCap = 256

// sentLenCap resolves a configured sentence-length limit into the
// table cap, substituting the default for "no limit".
func sentLenCap(maxSentLen int) int {
	if maxSentLen <= 0 {
		return DefaultSentLenCap
	}
	return maxSentLen
}

// NewBase creates shared model state. vocabSize sizes the lexical
// table's epsilon-smoothing denominator.
func NewBase(voc *vocab.Vocabulary, classes *wordclass.ClassMap, maxSentLen int) Base {
	return Base{
		Lex:        table.NewLexTable(voc.Size()),
		SentLen:    table.NewSentLenTable(sentLenCap(maxSentLen)),
		Vocab:      voc,
		Classes:    classes,
		LexCache:   table.NewBestLgProbForTrgWordCache(),
		state:      StateEmpty,
		MaxSentLen: maxSentLen,
	}
}

// State reports the current lifecycle state.
func (b *Base) State() State { return b.state }

// SetState transitions to s directly; used by concrete variants at the
// points the lifecycle state machine defines a transition.
func (b *Base) SetState(s State) { b.state = s }

// Iter reports the current (0-based) iteration counter.
func (b *Base) Iter() int { return b.iter }

// BumpIter advances the iteration counter and invalidates the
// iteration-keyed lexical cache.
func (b *Base) BumpIter() {
	b.iter++
	b.LexCache.Bump(b.iter)
	b.state = StateTraining
}

// MarkInitialPassDone records that the one-time initial pass ran; it is
// idempotent from the caller's perspective since InitPassHooks checks
// it before doing any work.
func (b *Base) MarkInitialPassDone() {
	b.initialPassDone = true
	if b.state == StateEmpty || b.state == StateLoaded {
		b.state = StateInitialized
	}
}

// InitialPassDone reports whether the one-time initial pass already ran.
func (b *Base) InitialPassDone() bool { return b.initialPassDone }

// SkippedCount reports how many pairs have been skipped so far.
func (b *Base) SkippedCount() int { return b.SkippedPairs }

// ClearTempVars is the shared no-op: the base itself holds no E-step
// scratch state (concrete variants with per-sentence trellises override
// this to also release theirs), but it is defined here so embedding
// variants get an idempotent default.
func (b *Base) ClearTempVars() {}

// Clear resets shared state to StateEmpty and discards the lexical and
// sentence-length tables, without touching the external vocabulary,
// word-class map or sentence-pair store references.
func (b *Base) Clear() {
	b.Lex.Clear()
	b.SentLen.Clear()
	b.LexCache = table.NewBestLgProbForTrgWordCache()
	b.iter = 0
	b.initialPassDone = false
	b.state = StateEmpty
	b.SkippedPairs = 0
}

// ApplyLexAndSentLen performs the M-step portion every variant shares:
// the previous iteration's lexical and sentence-length counts are
// overwritten by the merged accumulator and renormalized, and the
// chunk-level skip counter is folded in.
func (b *Base) ApplyLexAndSentLen(acc *SuffStats) {
	b.Lex.ZeroCounts()
	for k, num := range acc.LexNum {
		b.Lex.SetNum(k[0], k[1], num)
	}
	for _, s := range b.Lex.OuterKeys() {
		b.Lex.MaximizeRow(s)
	}
	b.SentLen.Clear()
	slens := make(map[int]bool)
	for k, num := range acc.SentLen {
		b.SentLen.AddNum(k[0], k[1], num)
		slens[k[0]] = true
	}
	for slen := range slens {
		b.SentLen.MaximizeRow(slen)
	}
	b.SkippedPairs += acc.Skipped
}

// BestLgProbForTrgWord returns max_s log p(t|s), memoized per iteration.
func (b *Base) BestLgProbForTrgWord(t int) float64 {
	return b.LexCache.GetOrCompute(t, func() float64 {
		best := table.ExpValLogMin
		for _, s := range b.Lex.OuterKeys() {
			lp := b.Lex.LogProb(s, t, table.SWProbSmooth)
			if lp > best {
				best = lp
			}
		}
		return best
	})
}

// SentenceLengthIsOk re-exports corpus.SentenceLengthIsOk bounded by
// the model's configured maximum sentence length.
func (b *Base) SentenceLengthIsOk(p corpus.SentencePair) bool {
	return corpus.SentenceLengthIsOk(p, b.MaxSentLen)
}
