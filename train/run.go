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
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/czcorpus/wordalign/checkpoint"
	"github.com/czcorpus/wordalign/checkpoint/mysql"
	"github.com/czcorpus/wordalign/checkpoint/sqlite"
	"github.com/czcorpus/wordalign/cnf"
	"github.com/czcorpus/wordalign/corpus"
	"github.com/czcorpus/wordalign/decode"
	"github.com/czcorpus/wordalign/diag"
	"github.com/czcorpus/wordalign/incr"
	"github.com/czcorpus/wordalign/model"
	"github.com/czcorpus/wordalign/table"
	"github.com/czcorpus/wordalign/vocab"
	"github.com/czcorpus/wordalign/waerr"
	"github.com/czcorpus/wordalign/wordclass"
)

// allParamSuffixes enumerates every parameter-file suffix a model
// variant can own; a snapshot collects whichever of them exist for the
// saved prefix.
var allParamSuffixes = []string{
	model.SuffLex,
	model.SuffIBM2Alig,
	model.SuffHMMAlig,
	model.SuffIBM3Dist,
	model.SuffHeadDist,
	model.SuffNonHeadDist,
	model.SuffFertility,
	model.SuffP1,
	model.SuffSentLen,
}

// OpenCheckpointStore creates the checkpoint backend named by conf:
// "sqlite" keyed by file path, "mysql" by host/user/password/name.
func OpenCheckpointStore(conf cnf.CheckpointConf) (checkpoint.Store, error) {
	switch conf.Type {
	case "sqlite":
		return sqlite.Open(conf.Name)
	case "mysql":
		return mysql.Open(conf.Host, conf.User, conf.Password, conf.Name)
	default:
		return nil, waerr.Wrap(waerr.ErrArgument, fmt.Sprintf("unknown checkpoint backend %q", conf.Type))
	}
}

// SnapshotParams serializes the model's parameter files under prefix
// and collects them into a checkpoint snapshot.
func SnapshotParams(m model.Capability, prefix string, iter int) (checkpoint.Snapshot, error) {
	snap := checkpoint.Snapshot{
		ModelKind: m.Kind().String(),
		Iter:      iter,
		Tables:    make(map[string][]byte),
		CreatedAt: time.Now(),
	}
	if err := model.SaveParams(m, prefix, true); err != nil {
		return snap, err
	}
	for _, suf := range allParamSuffixes {
		rawData, err := os.ReadFile(prefix + suf)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return snap, waerr.Wrap(waerr.ErrIO, err.Error())
		}
		snap.Tables[suf] = rawData
	}
	return snap, nil
}

// RestoreParams materializes a snapshot's tables back into
// prefix-derived files and loads them into the model.
func RestoreParams(m model.Capability, snap checkpoint.Snapshot, prefix string) error {
	for suf, rawData := range snap.Tables {
		if err := os.WriteFile(prefix+suf, rawData, 0644); err != nil {
			return waerr.Wrap(waerr.ErrIO, err.Error())
		}
	}
	return model.LoadParams(m, prefix, true, false)
}

// Run executes a whole training job described by conf: corpus load,
// predecessor-chain training up to the requested variant, parameter
// dump under conf.OutPrefix, optional checkpoint snapshot and optional
// JSON stats dump.
func Run(ctx context.Context, conf *cnf.TrainConf) error {
	voc := vocab.New()
	classes := wordclass.New()
	if conf.ClassFile != "" {
		loaded, err := wordclass.Load(conf.ClassFile)
		if err != nil {
			return waerr.Wrap(waerr.ErrIO, err.Error())
		}
		classes = loaded
	}
	store, err := corpus.LoadParallelCorpus(conf.SrcFile, conf.TrgFile, conf.WeightsFile, voc)
	if err != nil {
		return waerr.Wrap(waerr.ErrIO, err.Error())
	}
	log.Info().
		Int("pairs", store.Len()).
		Int("vocabulary", voc.Size()).
		Msg("corpus loaded")

	opts := Options{
		ThreadBufferSize: conf.ThreadBufferSize,
		NumWorkers:       conf.NumWorkers,
		Verbosity:        conf.Verbosity,
	}
	stats := &diag.TrainingStats{StartedAt: time.Now(), Corpus: conf.SrcFile}

	var final model.Capability
	switch conf.Model {
	case "incr-hmm":
		m := model.NewHMM(voc, classes, conf.MaxSentLen)
		m.AligSmooth = conf.Smoothing.AligSmoothInterpFactor
		m.LexSmooth = conf.Smoothing.LexSmoothInterpFactor
		if err := incr.NewHMM(m).TrainIterations(ctx, store, conf.Iterations); err != nil {
			return err
		}
		final = m
	case "incr-ibm2":
		m := model.NewIBM2(voc, classes, conf.MaxSentLen)
		if err := incr.NewIBM2(m).TrainIterations(ctx, store, conf.Iterations); err != nil {
			return err
		}
		final = m
	default:
		kind, err := model.ParseKind(conf.Model)
		if err != nil {
			return waerr.Wrap(waerr.ErrArgument, err.Error())
		}
		final, err = runPipeline(ctx, kind, voc, classes, store, opts, conf, stats)
		if err != nil {
			return err
		}
	}

	if conf.OutPrefix != "" {
		if err := model.SaveParams(final, conf.OutPrefix, false); err != nil {
			return err
		}
		if err := voc.Print(conf.OutPrefix + ".src"); err != nil {
			return waerr.Wrap(waerr.ErrIO, err.Error())
		}
		if err := voc.Print(conf.OutPrefix + ".trg"); err != nil {
			return waerr.Wrap(waerr.ErrIO, err.Error())
		}
	}

	if conf.Checkpoint.IsConfigured() && conf.OutPrefix != "" {
		cs, err := OpenCheckpointStore(conf.Checkpoint)
		if err != nil {
			return err
		}
		defer cs.Close()
		snap, err := SnapshotParams(final, conf.OutPrefix, finalIter(final))
		if err != nil {
			return err
		}
		if err := cs.Save(snap); err != nil {
			return waerr.Wrap(waerr.ErrIO, err.Error())
		}
	}

	stats.FinishedAt = time.Now()
	if conf.StatsFile != "" {
		if err := diag.WriteFile(conf.StatsFile, stats); err != nil {
			return waerr.Wrap(waerr.ErrIO, err.Error())
		}
	}
	return nil
}

func finalIter(m model.Capability) int {
	type iterer interface{ Iter() int }
	if v, ok := m.(iterer); ok {
		return v.Iter()
	}
	return 0
}

func skippedCount(m model.Capability) int {
	type skipper interface{ SkippedCount() int }
	if v, ok := m.(skipper); ok {
		return v.SkippedCount()
	}
	return 0
}

// trainStage runs conf.Iterations EM iterations of one pipeline stage,
// appending per-iteration stats.
func trainStage(ctx context.Context, m model.Capability, store *corpus.Store, opts Options, iterations int, stats *diag.TrainingStats) error {
	tr := NewBatchTrainer(m, store, opts)
	for i := 0; i < iterations; i++ {
		if err := tr.TrainSentPairRange(ctx, 0, store.Len()); err != nil {
			return err
		}
		stats.Iterations = append(stats.Iterations, diag.IterStats{
			Model:           m.Kind().String(),
			Iter:            finalIter(m),
			Pairs:           tr.LastIterPairs,
			SkippedPairs:    skippedCount(m),
			LogLikelihood:   tr.CorpusLogLikelihood(0, store.Len()),
			TimePerSentence: tr.LastIterSecs / float64(tr.LastIterPairs),
		})
	}
	return nil
}

// runPipeline trains the requested variant together with its whole
// predecessor chain, transferring parameters stage to stage: IBM1
// seeds HMM and IBM2, IBM2 seeds IBM3, IBM3 seeds IBM4. For the
// fertility models an HMM stage is always trained on the way so their
// hillclimbing can start from its Viterbi alignments, decoded through
// the memoizing seeder.
func runPipeline(
	ctx context.Context,
	kind model.Kind,
	voc *vocab.Vocabulary,
	classes *wordclass.ClassMap,
	store *corpus.Store,
	opts Options,
	conf *cnf.TrainConf,
	stats *diag.TrainingStats,
) (model.Capability, error) {
	ibm1 := model.NewIBM1(voc, classes, conf.MaxSentLen)
	if err := trainStage(ctx, ibm1, store, opts, conf.Iterations, stats); err != nil {
		return nil, err
	}
	if kind == model.IBM1 {
		return ibm1, nil
	}

	if kind == model.HMM {
		hmm := model.NewHMMFromIBM1(ibm1)
		hmm.AligSmooth = conf.Smoothing.AligSmoothInterpFactor
		hmm.LexSmooth = conf.Smoothing.LexSmoothInterpFactor
		if err := trainStage(ctx, hmm, store, opts, conf.Iterations, stats); err != nil {
			return nil, err
		}
		return hmm, nil
	}

	ibm2 := model.NewIBM2FromIBM1(ibm1)
	if err := trainStage(ctx, ibm2, store, opts, conf.Iterations, stats); err != nil {
		return nil, err
	}
	if kind == model.IBM2 {
		return ibm2, nil
	}

	hmm := model.NewHMMFromIBM1(ibm1)
	hmm.AligSmooth = conf.Smoothing.AligSmoothInterpFactor
	hmm.LexSmooth = conf.Smoothing.LexSmoothInterpFactor
	if err := trainStage(ctx, hmm, store, opts, conf.Iterations, stats); err != nil {
		return nil, err
	}
	seeder := decode.NewHMMSeeder(hmm)

	ibm3 := model.NewIBM3FromIBM2(ibm2)
	ibm3.Seeder = seeder
	if err := trainStage(ctx, ibm3, store, opts, conf.Iterations, stats); err != nil {
		return nil, err
	}
	if kind == model.IBM3 {
		return ibm3, nil
	}

	ibm4 := model.NewIBM4FromIBM3(ibm3)
	ibm4.Seeder = seeder
	// rebuild the distortion tables with the configured smoothing
	// factor rather than the compile-time default
	ibm4.DistSmooth = conf.Smoothing.DistortionSmoothFactor
	ibm4.Head = table.NewHeadDistortionTable(conf.Smoothing.DistortionSmoothFactor)
	ibm4.NonHead = table.NewNonHeadDistortionTable(conf.Smoothing.DistortionSmoothFactor)
	if err := trainStage(ctx, ibm4, store, opts, conf.Iterations, stats); err != nil {
		return nil, err
	}
	return ibm4, nil
}
