// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package databases_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/chain/chaintest"
	"github.com/bitmark-inc/chainstore/databases"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/merkle"
)

func TestUnconfirmedStoreAndForEach(t *testing.T) {
	setupTestLogger(t)
	defer teardownTestLogger()

	u := databases.NewUnconfirmedDatabase(testFile(t, "transaction_unconfirmed_table"), testBuckets, testExpansion)
	require.NoError(t, u.Create(), "create")
	defer u.Close()

	arrival := time.Unix(1500000000, 0)
	databases.SetUnconfirmedClock(u, func() time.Time { return arrival })

	coinbase := chaintest.Coinbase(1, chaintest.Payee(1))
	txs := []*chain.Transaction{
		chaintest.Spend(1, []chain.Point{chaintest.Outpoint(coinbase, 0)}, chaintest.Payee(2), 1),
		chaintest.Spend(1, []chain.Point{chaintest.Outpoint(coinbase, 0)}, chaintest.Payee(3), 2),
		chaintest.Spend(1, []chain.Point{chaintest.Outpoint(coinbase, 0)}, chaintest.Payee(4), 3),
	}
	for _, tx := range txs {
		require.NoError(t, u.Store(tx), "store")
	}

	r, err := u.Get(txs[1].Hash())
	require.NoError(t, err, "get")
	assert.Equal(t, uint32(arrival.Unix()), r.ArrivalTime, "arrival time")
	if diff := cmp.Diff(txs[1], r.Transaction); "" != diff {
		t.Errorf("transaction mismatch (-want +got):\n%s", diff)
	}

	seen := map[merkle.Digest]bool{}
	err = u.ForEach(func(r *databases.UnconfirmedResult) bool {
		seen[r.Hash] = true
		return true
	})
	require.NoError(t, err, "for each")
	assert.Len(t, seen, 3, "visited")
	for _, tx := range txs {
		assert.True(t, seen[tx.Hash()], "visited %x", tx.Hash())
	}

	visits := 0
	err = u.ForEach(func(*databases.UnconfirmedResult) bool {
		visits += 1
		return false
	})
	require.NoError(t, err, "stop early")
	assert.Equal(t, 1, visits, "stopped")

	ok, err := u.Unlink(txs[0].Hash())
	require.NoError(t, err, "unlink")
	assert.True(t, ok, "unlinked")
	_, err = u.Get(txs[0].Hash())
	assert.Equal(t, fault.ErrKeyNotFound, err, "gone")

	assert.NoError(t, u.UnlinkIfExists(txs[0].Hash()), "already gone")
	assert.NoError(t, u.UnlinkIfExists(txs[1].Hash()), "unlink if exists")

	seen = map[merkle.Digest]bool{}
	err = u.ForEach(func(r *databases.UnconfirmedResult) bool {
		seen[r.Hash] = true
		return true
	})
	require.NoError(t, err, "for each")
	assert.Equal(t, map[merkle.Digest]bool{txs[2].Hash(): true}, seen, "remaining")
}
