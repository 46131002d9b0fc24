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

package cnf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"srcFile": "corpus.src",
		"trgFile": "corpus.trg",
		"model": "ibm1",
		"outPrefix": "out/model",
		"iterations": 5
	}`), 0o644))

	conf, err := LoadConf(path)
	require.NoError(t, err)
	assert.Equal(t, "corpus.src", conf.SrcFile)
	assert.Equal(t, "ibm1", conf.Model)
	assert.Equal(t, 5, conf.Iterations)
	assert.Equal(t, 10000, conf.ThreadBufferSize)
	assert.Equal(t, DefaultSmoothing(), conf.Smoothing)
	assert.False(t, conf.Checkpoint.IsConfigured())
}

func TestLoadConfKeepsExplicitSmoothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"srcFile": "a", "trgFile": "b", "model": "hmm", "outPrefix": "p",
		"threadBufferSize": 50,
		"smoothing": {"aligSmoothInterpFactor": 0.5, "lexSmoothInterpFactor": 0.2, "distortionSmoothFactor": 0.1},
		"checkpoint": {"type": "sqlite", "name": "ckpt.db"}
	}`), 0o644))

	conf, err := LoadConf(path)
	require.NoError(t, err)
	assert.Equal(t, 50, conf.ThreadBufferSize)
	assert.Equal(t, 0.5, conf.Smoothing.AligSmoothInterpFactor)
	assert.True(t, conf.Checkpoint.IsConfigured())
	assert.Equal(t, "sqlite", conf.Checkpoint.Type)
}

func TestLoadConfMissingFile(t *testing.T) {
	_, err := LoadConf(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
