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

package model_test

import (
	"strings"
	"testing"

	"github.com/czcorpus/wordalign/corpus"
	"github.com/czcorpus/wordalign/model"
	"github.com/czcorpus/wordalign/vocab"
	"github.com/czcorpus/wordalign/wordclass"
)

// pigLatinPairs is the toy parallel corpus shared by the model tests:
// pig-latin source, English target, word-for-word monotone
// translations so each source token has exactly one consistent target
// counterpart across the corpus.
var pigLatinPairs = [][2]string{
	{"isthay isyay ayay esttay", "this is a test"},
	{"isthay isyay otnay ayay esttay", "this is not a test"},
	{"isthay isyay ayay esttay .", "this is a test ."},
	{"isyay isthay ayay esttay ?", "is this a test ?"},
	{"isthay isyay oodgay", "this is good"},
	{"atwhay isyay isthay ?", "what is this ?"},
	{"isthay isyay otnay oodgay .", "this is not good ."},
	{"atwhay isyay ayay esttay ?", "what is a test ?"},
	{"ayay oodgay esttay .", "a good test ."},
	{"otnay ayay esttay", "not a test"},
}

// buildPigLatinCorpus tokenizes the fixture into an in-memory store,
// registering every surface form in a fresh vocabulary.
func buildPigLatinCorpus(t *testing.T) (*corpus.Store, *vocab.Vocabulary) {
	t.Helper()
	voc := vocab.New()
	pairs := make([]corpus.SentencePair, 0, len(pigLatinPairs))
	for _, pp := range pigLatinPairs {
		pairs = append(pairs, corpus.SentencePair{
			Src:    indexAll(voc, pp[0]),
			Trg:    indexAll(voc, pp[1]),
			Weight: 1,
		})
	}
	return corpus.NewStore(pairs), voc
}

func indexAll(voc *vocab.Vocabulary, line string) []int {
	fields := strings.Fields(line)
	ans := make([]int, len(fields))
	for i, f := range fields {
		ans[i] = voc.AddWord(f)
	}
	return ans
}

// pigLatinClasses buckets the fixture's words into a handful of
// classes: punctuation, function words and content words get distinct
// class indices so IBM4's class-conditioned tables see more than one
// key.
func pigLatinClasses(voc *vocab.Vocabulary) *wordclass.ClassMap {
	classes := wordclass.New()
	byClass := map[int][]string{
		1: {".", "?"},
		2: {"ayay", "a", "otnay", "not"},
		3: {"isyay", "is", "isthay", "this", "atwhay", "what"},
		4: {"esttay", "test", "oodgay", "good"},
	}
	for c, words := range byClass {
		for _, w := range words {
			if voc.Contains(w) {
				classes.Set(voc.IndexOf(w), c)
			}
		}
	}
	return classes
}

// pairOf tokenizes one sentence pair against an existing vocabulary
// without growing it.
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

// trainBatch runs n single-threaded EM iterations of m over store,
// mirroring what the batch trainer does without pulling the train
// package into the model tests.
func trainBatch(m model.Capability, store *corpus.Store, n int) {
	for i := 0; i < n; i++ {
		m.InitPassHooks(store, 0, store.Len())
		acc := model.NewSuffStats()
		for _, pair := range store.Range(0, store.Len()) {
			m.EStepPair(pair, acc)
		}
		m.MStepFinalize(acc)
	}
}
