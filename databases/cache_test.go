// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package databases_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/chainstore/chain/chaintest"
	"github.com/bitmark-inc/chainstore/databases"
)

func TestOutputCacheEvictsOldest(t *testing.T) {
	c := databases.NewOutputCache(2)

	tx1 := chaintest.Coinbase(1, chaintest.Payee(1))
	tx2 := chaintest.Coinbase(2, chaintest.Payee(1))
	tx3 := chaintest.Coinbase(3, chaintest.Payee(1))

	c.Add(tx1, 1, 10, true)
	c.Add(tx2, 2, 20, true)
	c.Add(tx3, 3, 30, true)
	assert.Equal(t, 2, c.Size(), "size")

	_, ok := c.Get(chaintest.Outpoint(tx1, 0), 10, true)
	assert.False(t, ok, "oldest evicted")

	r, ok := c.Get(chaintest.Outpoint(tx3, 0), 10, true)
	assert.True(t, ok, "newest cached")
	assert.Equal(t, uint32(3), r.Height, "height")
	assert.Equal(t, uint32(30), r.MedianTimePast, "median time past")
	assert.True(t, r.Coinbase, "coinbase")

	assert.Equal(t, 0.5, c.HitRate(), "hit rate")
}

func TestOutputCacheVisibility(t *testing.T) {
	c := databases.NewOutputCache(10)

	confirmed := chaintest.Coinbase(5, chaintest.Payee(1))
	pooled := chaintest.Spend(1, nil, chaintest.Payee(2), 1, 2)

	c.Add(confirmed, 5, 0, true)
	c.Add(pooled, 0, 0, false)

	_, ok := c.Get(chaintest.Outpoint(confirmed, 0), 4, true)
	assert.False(t, ok, "above fork height")
	_, ok = c.Get(chaintest.Outpoint(confirmed, 0), 4, false)
	assert.True(t, ok, "confirmation not required")
	_, ok = c.Get(chaintest.Outpoint(pooled, 1), 100, true)
	assert.False(t, ok, "unconfirmed")

	c.Remove(chaintest.Outpoint(pooled, 1))
	_, ok = c.Get(chaintest.Outpoint(pooled, 1), 0, false)
	assert.False(t, ok, "removed output")
	_, ok = c.Get(chaintest.Outpoint(pooled, 0), 0, false)
	assert.True(t, ok, "remaining output")

	c.Remove(chaintest.Outpoint(pooled, 0))
	assert.Equal(t, 1, c.Size(), "fully spent transaction dropped")

	c.RemoveTransaction(confirmed.Hash())
	assert.Equal(t, 0, c.Size(), "empty")
}

func TestOutputCacheDisabled(t *testing.T) {
	c := databases.NewOutputCache(0)
	assert.True(t, c.Disabled(), "disabled")

	tx := chaintest.Coinbase(1, chaintest.Payee(1))
	c.Add(tx, 1, 0, true)
	_, ok := c.Get(chaintest.Outpoint(tx, 0), 1, true)
	assert.False(t, ok, "nothing cached")
	assert.Equal(t, 0, c.Size(), "size")
	assert.Equal(t, float64(0), c.HitRate(), "no queries")
}
