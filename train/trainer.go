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

// Package train runs batch EM over a sentence-pair store: the E-step is
// sharded into fixed-size chunks processed by a bounded pool of worker
// goroutines, each accumulating thread-local sufficient statistics that
// are merged into a shared accumulator under a mutex at chunk
// boundaries; the M-step then normalizes every touched table at once.
package train

import (
	"context"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/czcorpus/wordalign/corpus"
	"github.com/czcorpus/wordalign/model"
	"github.com/czcorpus/wordalign/waerr"
)

// DefaultThreadBufferSize is the chunk size used when a caller does not
// configure one. Large enough to amortize merge overhead on production
// corpora.
const DefaultThreadBufferSize = 10000

// Options bounds a trainer's parallelism and verbosity.
type Options struct {
	// ThreadBufferSize is the number of sentence pairs per worker
	// chunk; 0 selects DefaultThreadBufferSize.
	ThreadBufferSize int

	// NumWorkers bounds concurrently processed chunks; 0 selects
	// runtime.NumCPU().
	NumWorkers int

	// Verbosity gates per-iteration diagnostic log lines.
	Verbosity int
}

// BatchTrainer drives EM iterations of a single model over a
// sentence-pair store. The store must stay immutable for the trainer's
// whole lifetime.
type BatchTrainer struct {
	model model.Capability
	store *corpus.Store
	opts  Options

	// LastIterSecs and LastIterPairs describe the most recent completed
	// iteration, for diagnostics.
	LastIterSecs  float64
	LastIterPairs int
}

// NewBatchTrainer creates a trainer bound to one model and one store.
func NewBatchTrainer(m model.Capability, store *corpus.Store, opts Options) *BatchTrainer {
	if opts.ThreadBufferSize <= 0 {
		opts.ThreadBufferSize = DefaultThreadBufferSize
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = runtime.NumCPU()
	}
	return &BatchTrainer{model: m, store: store, opts: opts}
}

// Model returns the trained model.
func (t *BatchTrainer) Model() model.Capability { return t.model }

// TrainSentPairRange runs one EM iteration over pairs [lo, hi). The
// first call per model also runs the initial reserve-space pass.
// Cancellation is cooperative: each worker finishes the chunk it holds,
// no M-step runs, the previous iteration's parameters stay in place and
// ErrCancelled is returned.
func (t *BatchTrainer) TrainSentPairRange(ctx context.Context, lo, hi int) error {
	if lo < 0 {
		lo = 0
	}
	if hi > t.store.Len() {
		hi = t.store.Len()
	}
	if lo >= hi {
		return waerr.Wrap(waerr.ErrArgument, "empty sentence-pair range")
	}
	t.model.InitPassHooks(t.store, lo, hi)

	global := model.NewSuffStats()
	var mu sync.Mutex
	var wg sync.WaitGroup
	var cancelled atomic.Bool
	sem := make(chan struct{}, t.opts.NumWorkers)

	t0 := time.Now()
	for clo := lo; clo < hi; clo += t.opts.ThreadBufferSize {
		if ctx.Err() != nil {
			cancelled.Store(true)
			break
		}
		chi := clo + t.opts.ThreadBufferSize
		if chi > hi {
			chi = hi
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(clo, chi int) {
			defer wg.Done()
			defer func() { <-sem }()
			if cancelled.Load() {
				return
			}
			local := model.NewSuffStats()
			for _, pair := range t.store.Range(clo, chi) {
				t.model.EStepPair(pair, local)
			}
			mu.Lock()
			local.Merge(global)
			mu.Unlock()
		}(clo, chi)
	}
	wg.Wait()
	if cancelled.Load() || ctx.Err() != nil {
		return waerr.ErrCancelled
	}

	t.model.MStepFinalize(global)
	t.model.ClearTempVars()

	t.LastIterSecs = time.Since(t0).Seconds()
	t.LastIterPairs = hi - lo
	if t.opts.Verbosity > 0 {
		log.Info().
			Str("model", t.model.Kind().String()).
			Int("iter", t.iter()).
			Int("pairs", t.LastIterPairs).
			Float64("timePerSentence", t.LastIterSecs/float64(t.LastIterPairs)).
			Msg("- Time per sentence")
	}
	return nil
}

// TrainIterations runs n full-corpus EM iterations.
func (t *BatchTrainer) TrainIterations(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := t.TrainSentPairRange(ctx, 0, t.store.Len()); err != nil {
			return err
		}
	}
	return nil
}

func (t *BatchTrainer) iter() int {
	type iterer interface{ Iter() int }
	if m, ok := t.model.(iterer); ok {
		return m.Iter()
	}
	return 0
}

// CorpusLogLikelihood sums per-sentence log-likelihoods over [lo, hi).
// Models with a tractable sum-over-alignments likelihood use it
// directly; fertility models fall back to the joint probability of
// their hillclimbed Viterbi alignment.
func (t *BatchTrainer) CorpusLogLikelihood(lo, hi int) float64 {
	type likelihood interface {
		SentenceLogLikelihood(pair corpus.SentencePair) float64
	}
	var total float64
	for _, pair := range t.store.Range(lo, hi) {
		var lp float64
		if m, ok := t.model.(likelihood); ok {
			lp = m.SentenceLogLikelihood(pair)
		} else {
			lp = t.model.ScoreAlignment(pair, t.model.BestAlignment(pair))
		}
		if math.IsNaN(lp) || math.IsInf(lp, -1) {
			continue
		}
		total += lp * float64(pair.Weight)
	}
	return total
}
