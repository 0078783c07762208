// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package databases_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/chain/chaintest"
	"github.com/bitmark-inc/chainstore/databases"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/genesis"
)

func newBlockDatabase(t *testing.T) *databases.BlockDatabase {
	b := databases.NewBlockDatabase(
		testFile(t, "block_table"),
		testFile(t, "block_index"),
		testBuckets,
		testExpansion,
	)
	require.NoError(t, b.Create(), "create")
	return b
}

func TestBlockStoreAndGet(t *testing.T) {
	setupTestLogger(t)
	defer teardownTestLogger()

	b := newBlockDatabase(t)
	defer b.Close()

	g := genesis.Block()
	b1 := chaintest.Next(g, 1, chaintest.Payee(1))

	_, ok := b.Top()
	assert.False(t, ok, "empty top")

	require.NoError(t, b.Store(g, 0), "store genesis")
	require.NoError(t, b.Store(b1, 1), "store b1")

	top, ok := b.Top()
	assert.True(t, ok, "top")
	assert.Equal(t, uint32(1), top, "top height")

	r, err := b.Get(1)
	require.NoError(t, err, "get")
	assert.Equal(t, b1.Hash(), r.Hash, "hash")
	assert.Equal(t, uint32(1), r.Height, "height")
	assert.Equal(t, uint64(len(b1.Pack())), r.Size, "size")
	assert.Equal(t, b1.TransactionHashes(), r.TransactionHashes, "transactions")

	r, err = b.GetByHash(g.Hash())
	require.NoError(t, err, "get by hash")
	assert.Equal(t, uint32(0), r.Height, "genesis height")

	_, err = b.Get(2)
	assert.Equal(t, fault.ErrKeyNotFound, err, "beyond top")
}

func TestBlockGapsAndUnlink(t *testing.T) {
	setupTestLogger(t)
	defer teardownTestLogger()

	b := newBlockDatabase(t)
	defer b.Close()

	g := genesis.Block()
	blocks := chaintest.Chain(g, 1, 4, chaintest.Payee(1))

	require.NoError(t, b.Store(g, 0), "store genesis")
	require.NoError(t, b.Store(blocks[0], 1), "store 1")
	require.NoError(t, b.Store(blocks[3], 4), "store 4")

	gaps, err := b.Gaps()
	require.NoError(t, err, "gaps")
	assert.Equal(t, []uint32{2, 3}, gaps, "gaps")
	assert.False(t, b.Exists(2), "gap exists")
	assert.True(t, b.Exists(4), "stored exists")

	require.NoError(t, b.Store(blocks[1], 2), "fill 2")
	require.NoError(t, b.Store(blocks[2], 3), "fill 3")
	gaps, err = b.Gaps()
	require.NoError(t, err, "gaps")
	assert.Empty(t, gaps, "filled")

	ok, err := b.Unlink(3)
	require.NoError(t, err, "unlink")
	assert.True(t, ok, "unlinked")

	top, _ := b.Top()
	assert.Equal(t, uint32(2), top, "top after unlink")
	assert.False(t, b.Exists(3), "unlinked height")

	_, err = b.GetByHash(blocks[3].Hash())
	assert.Equal(t, fault.ErrKeyNotFound, err, "unlinked hash")

	ok, err = b.Unlink(3)
	require.NoError(t, err, "unlink again")
	assert.False(t, ok, "nothing to unlink")

	// a later store over an unlinked height replaces the old position
	require.NoError(t, b.Store(blocks[3], 5), "store above gap")
	gaps, err = b.Gaps()
	require.NoError(t, err, "gaps")
	assert.Equal(t, []uint32{3, 4}, gaps, "reused records are gaps")
}

func TestBlockReopen(t *testing.T) {
	setupTestLogger(t)
	defer teardownTestLogger()

	b := newBlockDatabase(t)
	g := genesis.Block()
	require.NoError(t, b.Store(g, 0), "store genesis")
	require.NoError(t, b.Synchronize(), "synchronize")
	require.NoError(t, b.Close(), "close")

	reopened := databases.NewBlockDatabase(
		filepath.Join(testingDirName, "block_table"),
		filepath.Join(testingDirName, "block_index"),
		testBuckets,
		testExpansion,
	)
	require.NoError(t, reopened.Open(), "open")
	defer reopened.Close()

	r, err := reopened.Get(0)
	require.NoError(t, err, "get")
	assert.Equal(t, g.Hash(), r.Hash, "hash")
}
