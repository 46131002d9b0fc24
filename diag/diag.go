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

// Package diag dumps training-run statistics as JSON for external
// monitoring tools. The dumps can get large for big corpora (one entry
// per iteration per model stage plus parameter-table summaries), hence
// sonic instead of encoding/json.
package diag

import (
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
)

// IterStats describes one completed EM iteration.
type IterStats struct {
	Model           string  `json:"model"`
	Iter            int     `json:"iter"`
	Pairs           int     `json:"pairs"`
	SkippedPairs    int     `json:"skippedPairs"`
	LogLikelihood   float64 `json:"logLikelihood"`
	TimePerSentence float64 `json:"timePerSentence"`
}

// TableSummary describes one parameter table's size after training.
type TableSummary struct {
	Name    string `json:"name"`
	Keys    int    `json:"keys"`
	Entries int    `json:"entries"`
}

// TrainingStats is the top-level dump record.
type TrainingStats struct {
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Corpus     string         `json:"corpus"`
	Iterations []IterStats    `json:"iterations"`
	Tables     []TableSummary `json:"tables,omitempty"`
}

// WriteFile serializes stats and writes it to path.
func WriteFile(path string, stats *TrainingStats) error {
	rawData, err := sonic.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to serialize training stats: %w", err)
	}
	if err := os.WriteFile(path, rawData, 0644); err != nil {
		return fmt.Errorf("failed to write training stats: %w", err)
	}
	return nil
}

// ReadFile loads a stats dump previously written by WriteFile.
func ReadFile(path string) (*TrainingStats, error) {
	rawData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read training stats: %w", err)
	}
	var stats TrainingStats
	if err := sonic.Unmarshal(rawData, &stats); err != nil {
		return nil, fmt.Errorf("failed to parse training stats: %w", err)
	}
	return &stats, nil
}
