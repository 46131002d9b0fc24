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

package wordclass

import (
	"fmt"

	"github.com/czcorpus/wordalign/ud"
	"github.com/czcorpus/wordalign/vocab"
	"github.com/rs/zerolog/log"
	"github.com/tomachalek/vertigo/v5"
)

// taggedCorpusIngester receives tokens from vertigo's parser and buckets
// each word into a class keyed by its coarse PoS tag (column posCol) and
// any morphological features present at featCol (parsed as a UD
// FEATS column).
type taggedCorpusIngester struct {
	voc      *vocab.Vocabulary
	classMap *ClassMap
	posCol   int
	featCol  int
	tagClass map[string]int
	lineNum  int
}

func (ti *taggedCorpusIngester) classFor(tag string, feats ud.FeatList) int {
	key := ud.ClassKey(tag, feats)
	if !ti.classMap.names.Contains(key) {
		ti.classMap.names.Add(key)
		ti.tagClass[key] = len(ti.tagClass) + 1 // 0 is reserved for NullClass
	}
	return ti.tagClass[key]
}

// ProcToken is part of vertigo.LineProcessor.
func (ti *taggedCorpusIngester) ProcToken(tk *vertigo.Token, line int, err error) error {
	if err != nil {
		return fmt.Errorf("failed to parse tagged corpus at line %d: %w", line, err)
	}
	ti.lineNum = line
	word := tk.PosAttrByIndex(0)
	tag := tk.PosAttrByIndex(ti.posCol)
	var feats ud.FeatList
	if ti.featCol >= 0 {
		feats, _ = ud.ParseFeats(tk.PosAttrByIndex(ti.featCol))
	}
	wordIdx := ti.voc.AddWord(word)
	ti.classMap.Set(wordIdx, ti.classFor(tag, feats))
	return nil
}

// ProcStruct and ProcStructClose are part of vertigo.LineProcessor but
// carry no information relevant to class assignment.
func (ti *taggedCorpusIngester) ProcStruct(st *vertigo.Structure, line int, err error) error {
	return err
}

func (ti *taggedCorpusIngester) ProcStructClose(st *vertigo.StructureClose, line int, err error) error {
	return err
}

// BuildFromTaggedCorpus derives a ClassMap from a POS-tagged vertical
// corpus, registering any new surface forms in voc along the way. posCol
// is the vertical-file column holding the coarse PoS tag; featCol, when
// >= 0, holds a UD-style FEATS string further refining the class.
func BuildFromTaggedCorpus(path string, encoding string, posCol, featCol int, voc *vocab.Vocabulary) (*ClassMap, error) {
	cm := New()
	ingester := &taggedCorpusIngester{
		voc:      voc,
		classMap: cm,
		posCol:   posCol,
		featCol:  featCol,
		tagClass: make(map[string]int),
	}
	conf := &vertigo.ParserConf{
		InputFilePath:         path,
		StructAttrAccumulator: "nil",
		Encoding:              encoding,
		LogProgressEachNth:    100000,
	}
	if err := vertigo.ParseVerticalFile(conf, ingester); err != nil {
		return nil, fmt.Errorf("failed to build class map from %s: %w", path, err)
	}
	log.Info().
		Str("path", path).
		Int("numClasses", cm.NumClasses()-1).
		Int("numLines", ingester.lineNum).
		Msg("derived word classes from tagged corpus")
	return cm, nil
}
