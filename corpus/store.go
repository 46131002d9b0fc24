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

package corpus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/czcorpus/wordalign/vocab"
	"github.com/rs/zerolog/log"
)

// SentencePair is one training example: source and target word-index
// sequences plus a real-valued weight. Indices are not null-extended
// here; prepending the null word is a model-level concern.
type SentencePair struct {
	Src    []int
	Trg    []int
	Weight float32
}

// SentenceLengthIsOk reports whether p is usable for training: neither
// side is empty and neither side exceeds maxLen (0 disables the limit).
// A pair failing this check is skipped by the trainer without error
//.
func SentenceLengthIsOk(p SentencePair, maxLen int) bool {
	if len(p.Src) == 0 || len(p.Trg) == 0 {
		return false
	}
	if maxLen > 0 && (len(p.Src) > maxLen || len(p.Trg) > maxLen) {
		return false
	}
	return true
}

// Store is the sentence-pair store: enumerable, indexed, and immutable
// during a training pass. It is a fully materialized, restartable
// sequence — Range simply re-slices the backing array, so multiple EM
// iterations can each re-enumerate it from scratch.
type Store struct {
	pairs []SentencePair
}

// NewStore wraps an already materialized pair list, e.g. one assembled
// programmatically rather than read from the three corpus files.
func NewStore(pairs []SentencePair) *Store {
	return &Store{pairs: pairs}
}

// Len returns the number of sentence pairs in the store.
func (s *Store) Len() int {
	return len(s.pairs)
}

// At returns the pair at index i.
func (s *Store) At(i int) SentencePair {
	return s.pairs[i]
}

// Range returns the sub-slice [lo, hi) of the store, the "lazy finite
// restartable sequence" chunk a trainer goroutine consumes.
// The returned slice aliases the store's backing array and must be
// treated as read-only.
func (s *Store) Range(lo, hi int) []SentencePair {
	if lo < 0 {
		lo = 0
	}
	if hi > len(s.pairs) {
		hi = len(s.pairs)
	}
	if lo >= hi {
		return nil
	}
	return s.pairs[lo:hi]
}

// LoadParallelCorpus reads three parallel, line-oriented files — source
// sentences, target sentences, and optional per-line weights — and
// tokenizes each line on whitespace, registering surface tokens in voc
//. An empty weightsPath defaults every weight to 1.0.
func LoadParallelCorpus(srcPath, trgPath, weightsPath string, voc *vocab.Vocabulary) (*Store, error) {
	srcSc, err := openLineScanner(srcPath)
	if err != nil {
		return nil, err
	}
	defer srcSc.close()

	trgSc, err := openLineScanner(trgPath)
	if err != nil {
		return nil, err
	}
	defer trgSc.close()

	var wSc *lineScanner
	if weightsPath != "" {
		wSc, err = openLineScanner(weightsPath)
		if err != nil {
			return nil, err
		}
		defer wSc.close()
	}

	var pairs []SentencePair
	lineNum := 0
	for {
		lineNum++
		srcLine, srcOk, err := srcSc.next()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s at line %d: %w", srcPath, lineNum, err)
		}
		trgLine, trgOk, err := trgSc.next()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s at line %d: %w", trgPath, lineNum, err)
		}
		if srcOk != trgOk {
			return nil, fmt.Errorf("source and target corpora have a different number of lines (mismatch at line %d)", lineNum)
		}
		if !srcOk {
			break
		}

		weight := float32(1.0)
		if wSc != nil {
			wLine, wOk, err := wSc.next()
			if err != nil {
				return nil, fmt.Errorf("failed to read %s at line %d: %w", weightsPath, lineNum, err)
			}
			if !wOk {
				return nil, fmt.Errorf("weights file has fewer lines than the corpus (mismatch at line %d)", lineNum)
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(wLine), 32)
			if err != nil {
				return nil, fmt.Errorf("malformed weight at line %d: %w", lineNum, err)
			}
			weight = float32(v)
		}

		pairs = append(pairs, SentencePair{
			Src:    tokenize(srcLine, voc),
			Trg:    tokenize(trgLine, voc),
			Weight: weight,
		})
	}

	log.Info().
		Str("source", srcPath).
		Str("target", trgPath).
		Int("numPairs", len(pairs)).
		Msg("loaded parallel corpus")
	return &Store{pairs: pairs}, nil
}

func tokenize(line string, voc *vocab.Vocabulary) []int {
	fields := strings.Fields(line)
	ans := make([]int, len(fields))
	for i, f := range fields {
		ans[i] = voc.AddWord(f)
	}
	return ans
}
