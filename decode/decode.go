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

// Package decode provides the best-alignment and scoring entry
// points, dispatching through model.Capability rather than
// reimplementing per-variant search: each model family already
// supplies its own BestAlignment/ScoreAlignment (independent argmax for
// IBM1, trellis Viterbi for HMM, hillclimb-from-seed for IBM3/IBM4).
// This package is the external-facing best-alignment query surface
// collaborating front ends consume.
package decode

import (
	"github.com/czcorpus/wordalign/corpus"
	"github.com/czcorpus/wordalign/model"
)

// Aligner is the subset of model.Capability best-alignment queries
// need; every concrete model variant satisfies it.
type Aligner interface {
	BestAlignment(pair corpus.SentencePair) []int
	ScoreAlignment(pair corpus.SentencePair, alignment []int) float64
}

// BestAlignment returns the Viterbi/hillclimb alignment m assigns to
// pair — source position per target token, 0 meaning the null word.
func BestAlignment(m Aligner, pair corpus.SentencePair) []int {
	return m.BestAlignment(pair)
}

// AlignmentLgProb returns log p(t, alignment | s) under m for a fixed
// alignment, e.g. one previously returned by BestAlignment.
func AlignmentLgProb(m Aligner, pair corpus.SentencePair, alignment []int) float64 {
	return m.ScoreAlignment(pair, alignment)
}

// Likelihood is satisfied by the model variants for which an exact
// sum-over-alignments sentence probability is tractable: IBM1, IBM2
// and HMM. The fertility models have no tractable sum-over-alignments;
// callers scoring those use AlignmentLgProb against a hillclimbed
// alignment instead.
type Likelihood interface {
	SentenceLogLikelihood(pair corpus.SentencePair) float64
}

// SentenceLogLikelihood returns log p(t|s) for the exactly-tractable
// model families, matching the forward-backward identity.
func SentenceLogLikelihood(m Likelihood, pair corpus.SentencePair) float64 {
	return m.SentenceLogLikelihood(pair)
}

var (
	_ Aligner    = (*model.IBM1Model)(nil)
	_ Aligner    = (*model.IBM2Model)(nil)
	_ Aligner    = (*model.HMMModel)(nil)
	_ Aligner    = (*model.IBM3Model)(nil)
	_ Aligner    = (*model.IBM4Model)(nil)
	_ Likelihood = (*model.IBM1Model)(nil)
	_ Likelihood = (*model.IBM2Model)(nil)
	_ Likelihood = (*model.HMMModel)(nil)
)
