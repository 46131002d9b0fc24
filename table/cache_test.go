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

package table_test

import (
	"testing"

	"github.com/czcorpus/wordalign/table"
	"github.com/stretchr/testify/assert"
)

func TestBestLgProbCacheComputesOnce(t *testing.T) {
	c := table.NewBestLgProbForTrgWordCache()
	calls := 0
	compute := func() float64 {
		calls++
		return -1.5
	}
	v1 := c.GetOrCompute(42, compute)
	v2 := c.GetOrCompute(42, compute)
	assert.Equal(t, -1.5, v1)
	assert.Equal(t, -1.5, v2)
	assert.Equal(t, 1, calls)
}

func TestBestLgProbCacheBumpInvalidates(t *testing.T) {
	c := table.NewBestLgProbForTrgWordCache()
	c.Set(1, -2.0)
	c.Bump(1)
	_, ok := c.Get(1)
	assert.False(t, ok)
}

func TestBestLgProbCacheBumpSameIterIsNoop(t *testing.T) {
	c := table.NewBestLgProbForTrgWordCache()
	c.Bump(0)
	c.Set(1, -2.0)
	c.Bump(0)
	v, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, -2.0, v)
}
