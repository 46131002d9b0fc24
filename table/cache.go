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

package table

import "sync"

// BestLgProbForTrgWordCache memoizes, per training iteration, the best
// log-probability a lexical table assigns to a given target word across
// all source words: max_s log p(t|s). Hillclimbing calls this per
// candidate move, so recomputation dominates runtime without a cache.
// The cache is keyed by iteration number; a Bump call invalidates every
// entry from a stale iteration in one step rather than requiring a full
// clear.
type BestLgProbForTrgWordCache struct {
	mu     sync.Mutex
	iter   int
	values map[int]float64
}

// NewBestLgProbForTrgWordCache creates a cache starting at iteration 0.
func NewBestLgProbForTrgWordCache() *BestLgProbForTrgWordCache {
	return &BestLgProbForTrgWordCache{values: make(map[int]float64)}
}

// Bump advances the cache to a new iteration, discarding all prior
// entries. Calling it with the current iteration is a no-op.
func (c *BestLgProbForTrgWordCache) Bump(iter int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if iter == c.iter {
		return
	}
	c.iter = iter
	c.values = make(map[int]float64)
}

// Get returns the cached best log-probability for target word t at the
// cache's current iteration.
func (c *BestLgProbForTrgWordCache) Get(t int) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[t]
	return v, ok
}

// Set stores the best log-probability for target word t at the cache's
// current iteration.
func (c *BestLgProbForTrgWordCache) Set(t int, v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[t] = v
}

// GetOrCompute returns the cached value for t, computing and storing it
// via compute if absent.
func (c *BestLgProbForTrgWordCache) GetOrCompute(t int, compute func() float64) float64 {
	if v, ok := c.Get(t); ok {
		return v
	}
	v := compute()
	c.Set(t, v)
	return v
}
