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

// Package incr implements online EM: instead of a full-corpus M-step,
// each entry keeps a logged running sufficient statistic updated per
// batch as
//
//	lcurr <- log((1-alpha) * exp(lcurr) + alpha * exp(lnew))
//
// computed through log-sum-exp, with alpha = 1/(n+1) where n counts the
// batches that already contributed to the entry. As alpha decays this
// converges to the batch EM fixed point on stationary data; probability
// tables are re-derived after every update, so no end-of-corpus barrier
// exists.
package incr

import (
	"math"

	"github.com/czcorpus/wordalign/model"
	"github.com/czcorpus/wordalign/table"
)

// logSuffStat is one entry's running statistic: the logged value and
// the number of batches folded in so far.
type logSuffStat struct {
	lval float64
	n    int
}

// fold applies the forgetting-average update with alpha = 1/(n+1).
func (s *logSuffStat) fold(lnew float64) {
	if s.n == 0 {
		s.lval = lnew
		s.n = 1
		return
	}
	alpha := 1.0 / float64(s.n+1)
	s.lval = table.LogSumExp(
		math.Log(1-alpha)+s.lval,
		math.Log(alpha)+lnew,
	)
	s.n++
}

// runningStats holds logged running statistics for every accumulator
// family a model's SuffStats can produce.
type runningStats struct {
	lex      map[[2]int]*logSuffStat
	ibm2Alig map[ibm2Entry]*logSuffStat
	hmmAlig  map[hmmEntry]*logSuffStat
	sentLen  map[[2]int]*logSuffStat
}

type ibm2Entry struct {
	key table.IBM2AligKey
	i   int
}

type hmmEntry struct {
	key table.HMMAligKey
	i   int
}

func newRunningStats() *runningStats {
	return &runningStats{
		lex:      make(map[[2]int]*logSuffStat),
		ibm2Alig: make(map[ibm2Entry]*logSuffStat),
		hmmAlig:  make(map[hmmEntry]*logSuffStat),
		sentLen:  make(map[[2]int]*logSuffStat),
	}
}

func (r *runningStats) foldLex(k [2]int, lnew float64) {
	s, ok := r.lex[k]
	if !ok {
		s = &logSuffStat{}
		r.lex[k] = s
	}
	s.fold(lnew)
}

func (r *runningStats) foldIBM2(k table.IBM2AligKey, i int, lnew float64) {
	e := ibm2Entry{key: k, i: i}
	s, ok := r.ibm2Alig[e]
	if !ok {
		s = &logSuffStat{}
		r.ibm2Alig[e] = s
	}
	s.fold(lnew)
}

func (r *runningStats) foldHMM(k table.HMMAligKey, i int, lnew float64) {
	e := hmmEntry{key: k, i: i}
	s, ok := r.hmmAlig[e]
	if !ok {
		s = &logSuffStat{}
		r.hmmAlig[e] = s
	}
	s.fold(lnew)
}

func (r *runningStats) foldSentLen(k [2]int, lnew float64) {
	s, ok := r.sentLen[k]
	if !ok {
		s = &logSuffStat{}
		r.sentLen[k] = s
	}
	s.fold(lnew)
}

// logOrFloor returns log(v), flooring a zero or negative posterior at
// the uniform smoothing constant.
func logOrFloor(v float64) float64 {
	if v <= 0 {
		return math.Log(table.SWProbSmooth)
	}
	return math.Log(v)
}

// foldBatch folds one batch's linear-domain accumulator into the
// running logged statistics.
func (r *runningStats) foldBatch(acc *model.SuffStats) {
	for k, v := range acc.LexNum {
		r.foldLex(k, logOrFloor(v))
	}
	for k, row := range acc.IBM2Alig {
		for i, v := range row {
			r.foldIBM2(k, i, logOrFloor(v))
		}
	}
	for k, row := range acc.HMMAlig {
		for i, v := range row {
			r.foldHMM(k, i, logOrFloor(v))
		}
	}
	for k, v := range acc.SentLen {
		r.foldSentLen(k, logOrFloor(v))
	}
}

// materialize rebuilds a linear-domain accumulator holding the current
// running expectations, suitable for a model's MStepFinalize.
func (r *runningStats) materialize() *model.SuffStats {
	acc := model.NewSuffStats()
	for k, s := range r.lex {
		acc.LexNum[k] = math.Exp(s.lval)
	}
	for e, s := range r.ibm2Alig {
		acc.AddIBM2Alig(e.key, e.i, math.Exp(s.lval))
	}
	for e, s := range r.hmmAlig {
		acc.AddHMMAlig(e.key, e.i, math.Exp(s.lval))
	}
	for k, s := range r.sentLen {
		acc.SentLen[k] = math.Exp(s.lval)
	}
	return acc
}
