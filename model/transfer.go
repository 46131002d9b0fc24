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

package model

import "github.com/czcorpus/wordalign/table"

// cloneLexTable deep-copies a lexical table for a predecessor-to-
// successor transfer (e.g. IBM1 -> IBM2, IBM2 -> HMM, IBM2 -> IBM3).
// After the copy the two tables share no backing state.
func cloneLexTable(src *table.LexTable, vocabSize int) *table.LexTable {
	dst := table.NewLexTable(vocabSize)
	for _, s := range src.OuterKeys() {
		for _, t := range src.InnerKeys(s) {
			num, _ := src.GetNum(s, t)
			den, _ := src.GetDen(s, t)
			dst.SetNumDen(s, t, num, den)
		}
	}
	return dst
}

// cloneFertilityTable deep-copies a fertility table for the IBM3 ->
// IBM4 transfer.
func cloneFertilityTable(src *table.FertilityTable) *table.FertilityTable {
	dst := table.NewFertilityTable(MaxFertility)
	for _, s := range src.Keys() {
		for phi := 0; phi <= MaxFertility; phi++ {
			num, ok := src.GetNum(s, phi)
			if !ok {
				continue
			}
			den, _ := src.GetDen(s, phi)
			dst.SetNumDen(s, phi, num, den)
		}
	}
	return dst
}
