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

package train

import (
	"context"
	"errors"
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

func TestBatchTrainerMonotonicLikelihood(t *testing.T) {
	store, voc := toyCorpus(t)
	m := model.NewIBM1(voc, wordclass.New(), 0)
	tr := NewBatchTrainer(m, store, Options{ThreadBufferSize: 3, NumWorkers: 2})

	var prev float64
	for i := 0; i < 5; i++ {
		require.NoError(t, tr.TrainSentPairRange(context.Background(), 0, store.Len()))
		ll := tr.CorpusLogLikelihood(0, store.Len())
		if i > 0 {
			assert.GreaterOrEqual(t, ll, prev-1e-4)
		}
		prev = ll
	}
	assert.Equal(t, 5, m.Iter())
}

// Chunked parallel accumulation must agree with a single-chunk run up
// to floating-point summation order.
func TestBatchTrainerChunkingMatchesSingleChunk(t *testing.T) {
	storeA, vocA := toyCorpus(t)
	storeB, vocB := toyCorpus(t)

	mA := model.NewIBM1(vocA, wordclass.New(), 0)
	mB := model.NewIBM1(vocB, wordclass.New(), 0)
	trA := NewBatchTrainer(mA, storeA, Options{ThreadBufferSize: 2, NumWorkers: 4})
	trB := NewBatchTrainer(mB, storeB, Options{ThreadBufferSize: storeB.Len(), NumWorkers: 1})

	require.NoError(t, trA.TrainSentPairRange(context.Background(), 0, storeA.Len()))
	require.NoError(t, trB.TrainSentPairRange(context.Background(), 0, storeB.Len()))

	for _, s := range mB.Lex.OuterKeys() {
		for _, trg := range mB.Lex.InnerKeys(s) {
			want, _ := mB.Lex.GetNum(s, trg)
			got, ok := mA.Lex.GetNum(s, trg)
			require.True(t, ok)
			assert.InDelta(t, want, got, 1e-9*(1+want))
		}
	}
}

func TestBatchTrainerCancellation(t *testing.T) {
	store, voc := toyCorpus(t)
	m := model.NewIBM1(voc, wordclass.New(), 0)
	tr := NewBatchTrainer(m, store, Options{ThreadBufferSize: 2, NumWorkers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tr.TrainSentPairRange(ctx, 0, store.Len())
	require.Error(t, err)
	assert.True(t, errors.Is(err, waerr.ErrCancelled))
	// no M-step ran: the model still has no completed iteration
	assert.Equal(t, 0, m.Iter())
}

func TestBatchTrainerEmptyRange(t *testing.T) {
	store, voc := toyCorpus(t)
	m := model.NewIBM1(voc, wordclass.New(), 0)
	tr := NewBatchTrainer(m, store, Options{})
	err := tr.TrainSentPairRange(context.Background(), 5, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, waerr.ErrArgument))
}

func TestBatchTrainerPartialRange(t *testing.T) {
	store, voc := toyCorpus(t)
	m := model.NewIBM1(voc, wordclass.New(), 0)
	tr := NewBatchTrainer(m, store, Options{ThreadBufferSize: 2})

	require.NoError(t, tr.TrainSentPairRange(context.Background(), 0, 4))
	assert.Equal(t, 1, m.Iter())
	assert.Equal(t, 4, tr.LastIterPairs)
}
