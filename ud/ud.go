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

// Package ud parses Universal Dependencies style morphological feature
// strings ("Case=Nom|Number=Sing") as found in tagged vertical corpora
// and derives the canonical bucket keys the word-class service groups
// words under.
package ud

import (
	"fmt"
	"sort"
	"strings"
)

// Feat is one morphological feature, a (name, value) pair.
type Feat [2]string

// Name returns the feature's name (e.g. "Case").
func (f Feat) Name() string {
	return f[0]
}

// Value returns the feature's value (e.g. "Nom").
func (f Feat) Value() string {
	return f[1]
}

// FeatList is an ordered list of features belonging to one token.
type FeatList []Feat

// normalize orders the list by feature name so two tokens carrying the
// same features in different order derive the same key.
func (f FeatList) normalize() {
	sort.SliceStable(f, func(i, j int) bool {
		return f[i].Name() < f[j].Name()
	})
}

func (f FeatList) key() string {
	var ans strings.Builder
	for i, v := range f {
		if i > 0 {
			ans.WriteByte('|')
		}
		ans.WriteString(v.Name())
		ans.WriteByte('=')
		ans.WriteString(v.Value())
	}
	return ans.String()
}

// ParseFeats splits a FEATS column value into its features. The empty
// value and the conventional "_" placeholder yield an empty list.
func ParseFeats(s string) (FeatList, error) {
	items := strings.Split(s, "|")
	feats := make(FeatList, 0, len(items))
	for _, item := range items {
		if item == "" {
			return FeatList{}, nil
		}
		tmp := strings.SplitN(item, "=", 2)
		if len(tmp) == 1 {
			if tmp[0] == "_" {
				continue
			}
			return FeatList{}, fmt.Errorf("unparseable feature '%s'", item)
		}
		if tmp[0] == "_" {
			continue
		}
		feats = append(feats, Feat{tmp[0], tmp[1]})
	}
	return feats, nil
}

// ClassKey combines a coarse PoS tag with a normalized feature list
// into the canonical key one word-class bucket is identified by: the
// bare tag when no features are present, "tag|Name=Val|..." otherwise.
func ClassKey(tag string, feats FeatList) string {
	if len(feats) == 0 {
		return tag
	}
	feats.normalize()
	return tag + "|" + feats.key()
}
