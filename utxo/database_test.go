// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/chain/chaintest"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/genesis"
	"github.com/bitmark-inc/chainstore/result"
	"github.com/bitmark-inc/chainstore/utxo"
)

// genesis, a block at height 1 and a block at height 2 whose second
// transaction spends the height 1 coinbase
func testChain() (*chain.Block, *chain.Block, *chain.Block, *chain.Transaction) {
	g := genesis.Block()
	b1 := chaintest.Next(g, 1, chaintest.Payee(1))
	spend := chaintest.Spend(1, []chain.Point{chaintest.Outpoint(b1.Transactions[0], 0)}, chaintest.Payee(2), 100, 200)
	b2 := chaintest.Next(b1, 2, chaintest.Payee(3), spend)
	return g, b1, b2, spend
}

func pushAll(t *testing.T, db *utxo.Database, g *chain.Block, blocks ...*chain.Block) {
	require.Equal(t, result.Success, db.PushGenesis(g), "push genesis")
	for i, b := range blocks {
		require.Equal(t, result.Success, db.PushBlock(b, uint32(i+1), b.MedianTimePast), "push: %d", i+1)
	}
}

func TestCreateTwice(t *testing.T) {
	forEachEngine(t, utxo.Options{}, func(t *testing.T, db *utxo.Database) {
		again, err := utxo.New(databaseDirectory(), utxo.Options{})
		require.NoError(t, err, "new")
		assert.Equal(t, fault.ErrAlreadyInitialised, again.Create(), "second create")
		assert.Equal(t, fault.ErrAlreadyInitialised, db.Open(), "open while open")
	})
}

func TestEmptyDatabase(t *testing.T) {
	forEachEngine(t, utxo.Options{ReorgPoolLimit: 10}, func(t *testing.T, db *utxo.Database) {
		_, res := db.GetLastHeight()
		assert.Equal(t, result.DBEmpty, res, "last height")
		_, res = db.GetFirstReorgBlockHeight()
		assert.Equal(t, result.DBEmpty, res, "first reorg height")
		_, res = db.PopBlock()
		assert.Equal(t, result.DBEmpty, res, "pop")
		assert.Equal(t, result.NoDataToPrune, db.Prune(), "prune")
	})
}

func TestPushPopRoundTrip(t *testing.T) {
	options := utxo.Options{
		ReorgPoolLimit:  100,
		HeaderCacheSize: 16,
	}
	forEachEngine(t, options, func(t *testing.T, db *utxo.Database) {
		g, b1, b2, spend := testChain()
		spent := chaintest.Outpoint(b1.Transactions[0], 0)

		pushAll(t, db, g, b1)

		entry, res := db.GetUTXO(spent)
		require.Equal(t, result.Success, res, "coinbase output")
		assert.Equal(t, uint32(1), entry.Height, "height")
		assert.True(t, entry.Coinbase, "coinbase flag")
		assert.Equal(t, b1.Transactions[0].Outputs[0], entry.Output, "output")

		require.Equal(t, result.Success, db.PushBlock(b2, 2, b2.MedianTimePast), "push 2")

		_, res = db.GetUTXO(spent)
		assert.Equal(t, result.KeyNotFound, res, "spent output still present")

		entry, res = db.GetUTXO(chaintest.Outpoint(spend, 1))
		require.Equal(t, result.Success, res, "new output")
		assert.Equal(t, uint64(200), entry.Output.Value, "value")
		assert.Equal(t, uint32(2), entry.Height, "height")
		assert.Equal(t, b2.MedianTimePast, entry.MedianTimePast, "median time past")
		assert.False(t, entry.Coinbase, "coinbase flag")

		pool, res := db.GetUTXOPoolFrom(2, 2)
		require.Equal(t, result.Success, res, "pool at 2")
		require.Equal(t, 1, len(pool), "pool size")
		assert.Equal(t, uint32(1), pool[spent].Height, "archived height")

		_, res = db.GetUTXOPoolFrom(0, 1)
		assert.Equal(t, result.KeyNotFound, res, "pool below 2")

		height, res := db.GetLastHeight()
		assert.Equal(t, result.Success, res, "last height")
		assert.Equal(t, uint32(2), height, "last height")

		header, height, res := db.GetHeaderByHash(b2.Hash())
		require.Equal(t, result.Success, res, "header by hash")
		assert.Equal(t, uint32(2), height, "height by hash")
		assert.Equal(t, b2.Hash(), header.Hash(), "header by hash")

		header, res = db.GetHeader(2)
		require.Equal(t, result.Success, res, "header")
		assert.Equal(t, b2.Header, *header, "header")

		popped, res := db.PopBlock()
		require.Equal(t, result.Success, res, "pop 2")
		assert.Equal(t, b2.Hash(), popped.Hash(), "popped hash")
		if diff := cmp.Diff(b2.Transactions, popped.Transactions); "" != diff {
			t.Errorf("popped transactions: (-want +got):\n%s", diff)
		}

		entry, res = db.GetUTXO(spent)
		require.Equal(t, result.Success, res, "restored output")
		assert.Equal(t, uint32(1), entry.Height, "restored height")
		assert.True(t, entry.Coinbase, "restored coinbase flag")

		for _, p := range []chain.Point{
			chaintest.Outpoint(spend, 0),
			chaintest.Outpoint(spend, 1),
			chaintest.Outpoint(b2.Transactions[0], 0),
		} {
			_, res = db.GetUTXO(p)
			assert.Equal(t, result.KeyNotFound, res, "output of popped block: %s", p)
		}

		_, _, res = db.GetHeaderByHash(b2.Hash())
		assert.Equal(t, result.KeyNotFound, res, "popped header by hash")
		_, res = db.GetHeader(2)
		assert.Equal(t, result.KeyNotFound, res, "popped header")
		_, res = db.GetUTXOPoolFrom(0, 10)
		assert.Equal(t, result.KeyNotFound, res, "pool after pop")

		popped, res = db.PopBlock()
		require.Equal(t, result.Success, res, "pop 1")
		assert.Equal(t, b1.Hash(), popped.Hash(), "popped hash")

		_, res = db.GetUTXO(spent)
		assert.Equal(t, result.KeyNotFound, res, "coinbase of popped block")

		// genesis was never archived
		_, res = db.PopBlock()
		assert.Equal(t, result.KeyNotFound, res, "pop genesis")
		height, res = db.GetLastHeight()
		assert.Equal(t, result.Success, res, "last height")
		assert.Equal(t, uint32(0), height, "last height")
	})
}

func TestPushBlockTwice(t *testing.T) {
	forEachEngine(t, utxo.Options{ReorgPoolLimit: 100}, func(t *testing.T, db *utxo.Database) {
		g, b1, _, _ := testChain()
		pushAll(t, db, g, b1)
		assert.Equal(t, result.DuplicatedKey, db.PushBlock(b1, 1, b1.MedianTimePast), "second push")

		_, res := db.GetBlockReorg(1)
		assert.Equal(t, result.Success, res, "first push was kept")
	})
}

func TestPushMissingInput(t *testing.T) {
	forEachEngine(t, utxo.Options{ReorgPoolLimit: 100}, func(t *testing.T, db *utxo.Database) {
		g, b1, _, _ := testChain()
		pushAll(t, db, g)

		missing := chain.Point{Hash: chaintest.Digest("nowhere"), Index: 0}
		bad := chaintest.Next(b1, 2, chaintest.Payee(4), chaintest.Spend(1, []chain.Point{missing}, chaintest.Payee(2), 1))
		assert.Equal(t, result.KeyNotFound, db.PushBlock(bad, 1, bad.MedianTimePast), "push")

		// aborted: nothing of the block remains
		_, res := db.GetUTXO(chaintest.Outpoint(bad.Transactions[0], 0))
		assert.Equal(t, result.KeyNotFound, res, "coinbase output")
		height, res := db.GetLastHeight()
		assert.Equal(t, result.Success, res, "last height")
		assert.Equal(t, uint32(0), height, "last height")
	})
}

func TestDuplicateCoinbase(t *testing.T) {
	forEachEngine(t, utxo.Options{ReorgPoolLimit: 100}, func(t *testing.T, db *utxo.Database) {
		g, b1, _, _ := testChain()
		pushAll(t, db, g, b1)

		dup := chaintest.Next(b1, 2, chaintest.Payee(1))
		dup.Transactions[0] = b1.Transactions[0]
		dup.Header.Merkle = dup.MerkleRoot()

		assert.Equal(t, result.SuccessDuplicateCoinbase, db.PushBlock(dup, 2, dup.MedianTimePast), "push")

		entry, res := db.GetUTXO(chaintest.Outpoint(b1.Transactions[0], 0))
		require.Equal(t, result.Success, res, "original output")
		assert.Equal(t, uint32(1), entry.Height, "original height kept")

		height, _ := db.GetLastHeight()
		assert.Equal(t, uint32(2), height, "block was committed")
	})
}

func TestOldBlocksAreNotArchived(t *testing.T) {
	options := utxo.Options{
		ReorgPoolLimit: 100,
		MinimumAge:     time.Hour,
	}
	forEachEngine(t, options, func(t *testing.T, db *utxo.Database) {
		g, b1, b2, _ := testChain()

		// b1 is exactly an hour old, b2 is ten minutes younger
		now := time.Unix(int64(b1.Header.Timestamp), 0).Add(time.Hour)
		utxo.SetClock(db, func() time.Time { return now })

		pushAll(t, db, g, b1, b2)

		_, res := db.GetBlockReorg(1)
		assert.Equal(t, result.KeyNotFound, res, "old block archived")
		_, res = db.GetBlockReorg(2)
		assert.Equal(t, result.Success, res, "young block not archived")

		_, res = db.PopBlock()
		assert.Equal(t, result.Success, res, "pop young block")
		_, res = db.PopBlock()
		assert.Equal(t, result.KeyNotFound, res, "pop old block")
	})
}

func TestPrune(t *testing.T) {
	items := []struct {
		limit      uint32
		res        result.Code
		firstRes   result.Code
		first      uint32
		poolRemain bool
	}{
		{limit: 10, res: result.NoDataToPrune, firstRes: result.Success, first: 1, poolRemain: true},
		{limit: 4, res: result.NoDataToPrune, firstRes: result.Success, first: 1, poolRemain: true},
		{limit: 3, res: result.Success, firstRes: result.Success, first: 2, poolRemain: true},
		{limit: 2, res: result.Success, firstRes: result.Success, first: 3, poolRemain: false},
		{limit: 0, res: result.Success, firstRes: result.DBEmpty, poolRemain: false},
	}

	for i, item := range items {
		forEachEngine(t, utxo.Options{ReorgPoolLimit: item.limit}, func(t *testing.T, db *utxo.Database) {
			g, b1, b2, _ := testChain()
			b3 := chaintest.Next(b2, 3, chaintest.Payee(1))
			b4 := chaintest.Next(b3, 4, chaintest.Payee(1))
			pushAll(t, db, g, b1, b2, b3, b4)

			assert.Equal(t, item.res, db.Prune(), "%d: prune", i)
			first, res := db.GetFirstReorgBlockHeight()
			assert.Equal(t, item.firstRes, res, "%d: first reorg height", i)
			if result.Success == res {
				assert.Equal(t, item.first, first, "%d: first reorg height", i)
			}

			_, res = db.GetUTXOPoolFrom(0, 10)
			assert.Equal(t, item.poolRemain, result.Success == res, "%d: pool", i)

			// a second prune has nothing left to do
			assert.Equal(t, result.NoDataToPrune, db.Prune(), "%d: prune again", i)
		})
	}
}

func TestPopAfterPrune(t *testing.T) {
	forEachEngine(t, utxo.Options{ReorgPoolLimit: 2}, func(t *testing.T, db *utxo.Database) {
		g, b1, b2, _ := testChain()
		b3 := chaintest.Next(b2, 3, chaintest.Payee(1))
		b4 := chaintest.Next(b3, 4, chaintest.Payee(1))
		pushAll(t, db, g, b1, b2, b3, b4)

		require.Equal(t, result.Success, db.Prune(), "prune")

		_, res := db.PopBlock()
		assert.Equal(t, result.Success, res, "pop 4")
		_, res = db.PopBlock()
		assert.Equal(t, result.Success, res, "pop 3")
		_, res = db.PopBlock()
		assert.Equal(t, result.KeyNotFound, res, "pop 2 is beyond the pool")
	})
}

func TestCompactPointIndex(t *testing.T) {
	options := utxo.Options{
		ReorgPoolLimit:    100,
		CompactPointIndex: true,
	}
	forEachEngine(t, options, func(t *testing.T, db *utxo.Database) {
		g, b1, b2, spend := testChain()
		pushAll(t, db, g, b1, b2)

		entry, res := db.GetUTXO(chaintest.Outpoint(spend, 1))
		require.Equal(t, result.Success, res, "output")
		assert.Equal(t, uint64(200), entry.Output.Value, "value")

		pool, res := db.GetUTXOPoolFrom(0, 2)
		require.Equal(t, result.Success, res, "pool")
		_, ok := pool[chaintest.Outpoint(b1.Transactions[0], 0)]
		assert.True(t, ok, "pool point")

		require.NoError(t, db.Close(), "close")

		wrong, err := utxo.New(databaseDirectory(), utxo.Options{Engine: db.Engine()})
		require.NoError(t, err, "new")
		assert.Equal(t, fault.ErrDatabaseCorrupt, wrong.Open(), "reopen with full keys")

		options.Engine = db.Engine()
		right, err := utxo.New(databaseDirectory(), options)
		require.NoError(t, err, "new")
		require.NoError(t, right.Open(), "reopen")
		defer right.Close()

		height, res := right.GetLastHeight()
		assert.Equal(t, result.Success, res, "last height")
		assert.Equal(t, uint32(2), height, "last height")
	})
}
