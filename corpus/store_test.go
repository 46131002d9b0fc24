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

package corpus_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/czcorpus/wordalign/corpus"
	"github.com/czcorpus/wordalign/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadParallelCorpusDefaultWeights(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src.txt", "ich esse ja gern räucherschinken\nhallo welt\n")
	trg := writeFile(t, dir, "trg.txt", "i love to eat smoked ham\nhello world\n")

	voc := vocab.New()
	store, err := corpus.LoadParallelCorpus(src, trg, "", voc)
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	p0 := store.At(0)
	assert.Equal(t, 5, len(p0.Src))
	assert.Equal(t, 6, len(p0.Trg))
	assert.Equal(t, float32(1.0), p0.Weight)
}

func TestLoadParallelCorpusWithWeights(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src.txt", "a b\nc d\n")
	trg := writeFile(t, dir, "trg.txt", "x y\nz w\n")
	w := writeFile(t, dir, "w.txt", "0.5\n2\n")

	voc := vocab.New()
	store, err := corpus.LoadParallelCorpus(src, trg, w, voc)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), store.At(0).Weight)
	assert.Equal(t, float32(2), store.At(1).Weight)
}

func TestLoadParallelCorpusLineMismatch(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src.txt", "a b\nc d\n")
	trg := writeFile(t, dir, "trg.txt", "x y\n")

	voc := vocab.New()
	_, err := corpus.LoadParallelCorpus(src, trg, "", voc)
	require.Error(t, err)
}

func TestRangeClampsBounds(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src.txt", "a\nb\nc\n")
	trg := writeFile(t, dir, "trg.txt", "x\ny\nz\n")
	voc := vocab.New()
	store, err := corpus.LoadParallelCorpus(src, trg, "", voc)
	require.NoError(t, err)

	assert.Len(t, store.Range(0, 100), 3)
	assert.Nil(t, store.Range(5, 2))
}

func TestSentenceLengthIsOk(t *testing.T) {
	p := corpus.SentencePair{Src: []int{1, 2}, Trg: []int{3}}
	assert.True(t, corpus.SentenceLengthIsOk(p, 0))
	assert.True(t, corpus.SentenceLengthIsOk(p, 2))
	assert.False(t, corpus.SentenceLengthIsOk(p, 1))
	assert.False(t, corpus.SentenceLengthIsOk(corpus.SentencePair{}, 0))
}
