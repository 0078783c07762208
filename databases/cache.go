// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package databases

import (
	"sync"

	"github.com/google/btree"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/counter"
	"github.com/bitmark-inc/chainstore/merkle"
)

const cacheDegree = 16

// OutputResult - an output with the metadata of its transaction
type OutputResult struct {
	Output         chain.Output
	Height         uint32
	MedianTimePast uint32
	Coinbase       bool
	Confirmed      bool
}

// cached outputs of one transaction, ordered by insertion
type cachedTransaction struct {
	sequence       uint64
	hash           merkle.Digest
	height         uint32
	medianTimePast uint32
	coinbase       bool
	confirmed      bool
	outputs        map[uint32]chain.Output
}

func (c *cachedTransaction) Less(than btree.Item) bool {
	return c.sequence < than.(*cachedTransaction).sequence
}

// OutputCache - unspent outputs of recently stored transactions
//
// when full the oldest transaction is evicted; a zero capacity cache
// stores nothing
type OutputCache struct {
	sync.Mutex

	capacity int
	sequence uint64
	entries  map[merkle.Digest]*cachedTransaction
	order    *btree.BTree

	hits    counter.Counter
	queries counter.Counter
}

// NewOutputCache - a cache of up to capacity transactions
func NewOutputCache(capacity int) *OutputCache {
	return &OutputCache{
		capacity: capacity,
		entries:  make(map[merkle.Digest]*cachedTransaction),
		order:    btree.New(cacheDegree),
	}
}

// Disabled - true for a zero capacity
func (c *OutputCache) Disabled() bool {
	return c.capacity <= 0
}

// Add - cache every output of tx, replacing an earlier entry
func (c *OutputCache) Add(tx *chain.Transaction, height uint32, medianTimePast uint32, confirmed bool) {
	if c.Disabled() {
		return
	}

	hash := tx.Hash()
	outputs := make(map[uint32]chain.Output, len(tx.Outputs))
	for i, o := range tx.Outputs {
		outputs[uint32(i)] = o
	}

	c.Lock()
	defer c.Unlock()

	c.remove(hash)
	for c.order.Len() >= c.capacity {
		oldest := c.order.DeleteMin().(*cachedTransaction)
		delete(c.entries, oldest.hash)
	}

	c.sequence += 1
	entry := &cachedTransaction{
		sequence:       c.sequence,
		hash:           hash,
		height:         height,
		medianTimePast: medianTimePast,
		coinbase:       tx.IsCoinbase(),
		confirmed:      confirmed,
		outputs:        outputs,
	}
	c.entries[hash] = entry
	c.order.ReplaceOrInsert(entry)
}

// Remove - forget a spent output
func (c *OutputCache) Remove(point chain.Point) {
	if c.Disabled() {
		return
	}

	c.Lock()
	defer c.Unlock()

	entry, ok := c.entries[point.Hash]
	if !ok {
		return
	}
	delete(entry.outputs, point.Index)
	if 0 == len(entry.outputs) {
		c.remove(point.Hash)
	}
}

// RemoveTransaction - forget every output of a transaction
func (c *OutputCache) RemoveTransaction(hash merkle.Digest) {
	if c.Disabled() {
		return
	}

	c.Lock()
	defer c.Unlock()

	c.remove(hash)
}

// remove - must hold the lock
func (c *OutputCache) remove(hash merkle.Digest) {
	entry, ok := c.entries[hash]
	if !ok {
		return
	}
	c.order.Delete(entry)
	delete(c.entries, hash)
}

// Get - the cached output at point, subject to the same confirmation
// rules as the transaction store
func (c *OutputCache) Get(point chain.Point, forkHeight uint32, requireConfirmed bool) (*OutputResult, bool) {
	if c.Disabled() {
		return nil, false
	}
	c.queries.Increment()

	c.Lock()
	defer c.Unlock()

	entry, ok := c.entries[point.Hash]
	if !ok || !visible(entry.confirmed, entry.height, forkHeight, requireConfirmed) {
		return nil, false
	}
	output, ok := entry.outputs[point.Index]
	if !ok {
		return nil, false
	}
	c.hits.Increment()
	return &OutputResult{
		Output:         output,
		Height:         entry.height,
		MedianTimePast: entry.medianTimePast,
		Coinbase:       entry.coinbase,
		Confirmed:      entry.confirmed,
	}, true
}

// Size - number of cached transactions
func (c *OutputCache) Size() int {
	c.Lock()
	defer c.Unlock()
	return c.order.Len()
}

// HitRate - fraction of queries answered, zero before any query
func (c *OutputCache) HitRate() float64 {
	queries := c.queries.Uint64()
	if 0 == queries {
		return 0
	}
	return float64(c.hits.Uint64()) / float64(queries)
}

// a transaction is visible when confirmation is not required, or when
// it is confirmed at or below the fork height
func visible(confirmed bool, height uint32, forkHeight uint32, requireConfirmed bool) bool {
	if !requireConfirmed {
		return true
	}
	return confirmed && height <= forkHeight
}
