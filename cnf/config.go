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

// Package cnf holds the JSON-loaded configuration for a training run:
// corpus paths, model selection, EM iteration and smoothing parameters,
// and an optional checkpoint database.
package cnf

import (
	"encoding/json"
	"fmt"
	"os"
)

// CheckpointConf configures the optional checkpoint store a trainer
// uses to resume a cancelled run.
type CheckpointConf struct {
	Type           string   `json:"type"`
	Name           string   `json:"name"`
	Host           string   `json:"host"`
	User           string   `json:"user"`
	Password       string   `json:"password"`
	PreconfQueries []string `json:"preconfSettings,omitempty"`
}

// IsConfigured reports whether a checkpoint backend was named.
func (c CheckpointConf) IsConfigured() bool {
	return c.Type != ""
}

// SmoothingConf bundles the interpolation smoothing factors the HMM
// and IBM4 models apply against uniform distributions.
type SmoothingConf struct {
	AligSmoothInterpFactor float64 `json:"aligSmoothInterpFactor"`
	LexSmoothInterpFactor  float64 `json:"lexSmoothInterpFactor"`
	DistortionSmoothFactor float64 `json:"distortionSmoothFactor"`
}

// DefaultSmoothing returns the standard interpolation factors.
func DefaultSmoothing() SmoothingConf {
	return SmoothingConf{
		AligSmoothInterpFactor: 0.3,
		LexSmoothInterpFactor:  0.1,
		DistortionSmoothFactor: 0.2,
	}
}

// TrainConf is the top-level training configuration loaded from a JSON
// file by LoadConf.
type TrainConf struct {
	// SrcFile, TrgFile and WeightsFile are the three parallel corpus
	// files. WeightsFile may be empty (every weight defaults to
	// 1.0).
	SrcFile     string `json:"srcFile"`
	TrgFile     string `json:"trgFile"`
	WeightsFile string `json:"weightsFile,omitempty"`

	// ClassFile optionally points at a word-class map; when
	// empty, IBM4 training falls back to everything sharing NullClass.
	ClassFile string `json:"classFile,omitempty"`

	// Model selects the variant trained (ibm1, ibm2, hmm, ibm3, ibm4,
	// incr-hmm, incr-ibm2).
	Model string `json:"model"`

	// OutPrefix is the prefix every parameter file is written under.
	OutPrefix string `json:"outPrefix"`

	// Iterations is the number of EM iterations to run for Model.
	Iterations int `json:"iterations"`

	// MaxSentLen bounds sentenceLengthIsOk; 0 disables the limit.
	MaxSentLen int `json:"maxSentLen"`

	// ThreadBufferSize is the E-step chunk size, >= 10000 for
	// production corpora; small test corpora may set it lower.
	ThreadBufferSize int `json:"threadBufferSize"`

	// NumWorkers bounds how many chunks are processed concurrently; 0
	// defaults to runtime.NumCPU().
	NumWorkers int `json:"numWorkers"`

	// Smoothing carries the interpolation smoothing factors.
	Smoothing SmoothingConf `json:"smoothing"`

	// Checkpoint configures the optional resumable-training backend.
	Checkpoint CheckpointConf `json:"checkpoint"`

	// StatsFile optionally names a JSON file the trainer dumps
	// per-iteration statistics into.
	StatsFile string `json:"statsFile,omitempty"`

	// Verbosity gates diagnostic log lines.
	Verbosity int `json:"verbosity"`
}

// LoadConf reads and parses a TrainConf from confPath, applying
// DefaultSmoothing to any zero-valued smoothing factor and a default
// ThreadBufferSize when unset.
func LoadConf(confPath string) (*TrainConf, error) {
	rawData, err := os.ReadFile(confPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read training config: %w", err)
	}
	var conf TrainConf
	if err := json.Unmarshal(rawData, &conf); err != nil {
		return nil, fmt.Errorf("failed to parse training config: %w", err)
	}
	def := DefaultSmoothing()
	if conf.Smoothing.AligSmoothInterpFactor == 0 {
		conf.Smoothing.AligSmoothInterpFactor = def.AligSmoothInterpFactor
	}
	if conf.Smoothing.LexSmoothInterpFactor == 0 {
		conf.Smoothing.LexSmoothInterpFactor = def.LexSmoothInterpFactor
	}
	if conf.Smoothing.DistortionSmoothFactor == 0 {
		conf.Smoothing.DistortionSmoothFactor = def.DistortionSmoothFactor
	}
	if conf.ThreadBufferSize == 0 {
		conf.ThreadBufferSize = 10000
	}
	return &conf, nil
}
