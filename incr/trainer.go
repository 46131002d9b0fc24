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

	"github.com/czcorpus/wordalign/corpus"
	"github.com/czcorpus/wordalign/model"
	"github.com/czcorpus/wordalign/waerr"
)

// HMMTrainer trains an HMM alignment model online: each sentence pair
// is E-stepped under the current parameters, folded into the running
// logged statistics, and the model's probabilities re-derived
// immediately, so there is no end-of-corpus M-step barrier.
type HMMTrainer struct {
	Model *model.HMMModel
	stats *runningStats
}

// NewHMM wraps an HMM model for incremental training.
func NewHMM(m *model.HMMModel) *HMMTrainer {
	return &HMMTrainer{Model: m, stats: newRunningStats()}
}

// TrainSentPair folds one pair and re-derives probabilities.
func (t *HMMTrainer) TrainSentPair(pair corpus.SentencePair) {
	acc := model.NewSuffStats()
	t.Model.EStepPair(pair, acc)
	t.stats.foldBatch(acc)
	t.Model.MStepFinalize(t.stats.materialize())
}

// TrainSentPairRange folds pairs [lo, hi) one at a time, honoring
// cooperative cancellation between pairs.
func (t *HMMTrainer) TrainSentPairRange(ctx context.Context, store *corpus.Store, lo, hi int) error {
	for _, pair := range store.Range(lo, hi) {
		if ctx.Err() != nil {
			return waerr.ErrCancelled
		}
		t.TrainSentPair(pair)
	}
	return nil
}

// TrainIterations runs n single-pass sweeps over the whole store.
func (t *HMMTrainer) TrainIterations(ctx context.Context, store *corpus.Store, n int) error {
	for i := 0; i < n; i++ {
		if err := t.TrainSentPairRange(ctx, store, 0, store.Len()); err != nil {
			return err
		}
	}
	return nil
}

// IBM2Trainer trains an IBM2 model online, mirroring HMMTrainer.
type IBM2Trainer struct {
	Model *model.IBM2Model
	stats *runningStats
}

// NewIBM2 wraps an IBM2 model for incremental training.
func NewIBM2(m *model.IBM2Model) *IBM2Trainer {
	return &IBM2Trainer{Model: m, stats: newRunningStats()}
}

// TrainSentPair folds one pair and re-derives probabilities.
func (t *IBM2Trainer) TrainSentPair(pair corpus.SentencePair) {
	acc := model.NewSuffStats()
	t.Model.EStepPair(pair, acc)
	t.stats.foldBatch(acc)
	t.Model.MStepFinalize(t.stats.materialize())
}

// TrainSentPairRange folds pairs [lo, hi) one at a time.
func (t *IBM2Trainer) TrainSentPairRange(ctx context.Context, store *corpus.Store, lo, hi int) error {
	for _, pair := range store.Range(lo, hi) {
		if ctx.Err() != nil {
			return waerr.ErrCancelled
		}
		t.TrainSentPair(pair)
	}
	return nil
}

// TrainIterations runs n single-pass sweeps over the whole store.
func (t *IBM2Trainer) TrainIterations(ctx context.Context, store *corpus.Store, n int) error {
	for i := 0; i < n; i++ {
		if err := t.TrainSentPairRange(ctx, store, 0, store.Len()); err != nil {
			return err
		}
	}
	return nil
}
