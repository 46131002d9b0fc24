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

package incr

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/czcorpus/wordalign/corpus"
	"github.com/czcorpus/wordalign/model"
	"github.com/czcorpus/wordalign/vocab"
	"github.com/czcorpus/wordalign/waerr"
	"github.com/czcorpus/wordalign/wordclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var toyPairs = [][2]string{
	{"isthay isyay ayay esttay", "this is a test"},
	{"isthay isyay otnay ayay esttay", "this is not a test"},
	{"isthay isyay ayay esttay .", "this is a test ."},
	{"isyay isthay ayay esttay ?", "is this a test ?"},
	{"isthay isyay oodgay", "this is good"},
	{"atwhay isyay isthay ?", "what is this ?"},
	{"isthay isyay otnay oodgay .", "this is not good ."},
	{"atwhay isyay ayay esttay ?", "what is a test ?"},
	{"isthay isyay otnay ayay esttay-N .", "this is not a test N ."},
}

func toyCorpus(t *testing.T) (*corpus.Store, *vocab.Vocabulary) {
	t.Helper()
	voc := vocab.New()
	pairs := make([]corpus.SentencePair, 0, len(toyPairs))
	for _, pp := range toyPairs {
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
	return corpus.NewStore(pairs), voc
}

func pairOf(voc *vocab.Vocabulary, src, trg string) corpus.SentencePair {
	lookup := func(line string) []int {
		fields := strings.Fields(line)
		ans := make([]int, len(fields))
		for i, f := range fields {
			ans[i] = voc.IndexOf(f)
		}
		return ans
	}
	return corpus.SentencePair{Src: lookup(src), Trg: lookup(trg), Weight: 1}
}

// The logged running average must equal the plain arithmetic mean when
// every batch carries one observation: with alpha = 1/(n+1) the
// exponential-forgetting update reduces to an exact running mean.
func TestLogSuffStatFoldIsRunningMean(t *testing.T) {
	s := &logSuffStat{}
	values := []float64{0.5, 0.25, 1.5, 0.125}
	var sum float64
	for i, v := range values {
		s.fold(math.Log(v))
		sum += v
		mean := sum / float64(i+1)
		assert.InDelta(t, mean, math.Exp(s.lval), 1e-12)
	}
	assert.Equal(t, len(values), s.n)
}

func TestLogSuffStatFoldAvoidsUnderflow(t *testing.T) {
	s := &logSuffStat{}
	for i := 0; i < 50; i++ {
		s.fold(-700)
	}
	assert.False(t, math.IsInf(s.lval, -1))
	assert.InDelta(t, -700, s.lval, 1e-6)
}

func TestIncrHMMTrainsAndAligns(t *testing.T) {
	store, voc := toyCorpus(t)
	m := model.NewHMM(voc, wordclass.New(), 0)
	tr := NewHMM(m)

	require.NoError(t, tr.TrainIterations(context.Background(), store, 5))
	assert.Greater(t, m.Iter(), 0)

	pair := pairOf(voc, "isthay isyay otnay ayay esttay-N .", "this is not a test N .")
	got := m.BestAlignment(pair)
	require.Equal(t, 7, len(got))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 5, 6}, got)
}

func TestIncrHMMNormalizationInvariant(t *testing.T) {
	store, voc := toyCorpus(t)
	m := model.NewHMM(voc, wordclass.New(), 0)
	tr := NewHMM(m)
	require.NoError(t, tr.TrainSentPairRange(context.Background(), store, 0, store.Len()))

	for _, s := range m.Lex.OuterKeys() {
		var sum, den float64
		for _, trg := range m.Lex.InnerKeys(s) {
			num, ok := m.Lex.GetNum(s, trg)
			require.True(t, ok)
			sum += num
			den, _ = m.Lex.GetDen(s, trg)
		}
		if den == 0 {
			continue
		}
		assert.InDelta(t, den, sum, 1e-5*den)
	}
}

func TestIncrIBM2TrainsAndAligns(t *testing.T) {
	store, voc := toyCorpus(t)
	m := model.NewIBM2(voc, wordclass.New(), 0)
	tr := NewIBM2(m)

	require.NoError(t, tr.TrainIterations(context.Background(), store, 5))

	pair := pairOf(voc, "isthay isyay ayay esttay", "this is a test")
	assert.Equal(t, []int{1, 2, 3, 4}, m.BestAlignment(pair))
}

func TestIncrTrainingCancellation(t *testing.T) {
	store, voc := toyCorpus(t)
	m := model.NewHMM(voc, wordclass.New(), 0)
	tr := NewHMM(m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tr.TrainSentPairRange(ctx, store, 0, store.Len())
	require.Error(t, err)
	assert.True(t, errors.Is(err, waerr.ErrCancelled))
}
