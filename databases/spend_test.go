// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package databases_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/chain/chaintest"
	"github.com/bitmark-inc/chainstore/databases"
	"github.com/bitmark-inc/chainstore/fault"
)

func TestSpendStoreGetUnlink(t *testing.T) {
	setupTestLogger(t)
	defer teardownTestLogger()

	s := databases.NewSpendDatabase(testFile(t, "spend_table"), testBuckets, testExpansion)
	require.NoError(t, s.Create(), "create")
	defer s.Close()

	outpoint := chain.Point{Hash: chaintest.Digest("out"), Index: 3}
	inpoint := chain.Point{Hash: chaintest.Digest("in"), Index: 1}

	_, err := s.Get(outpoint)
	assert.Equal(t, fault.ErrKeyNotFound, err, "not spent")

	require.NoError(t, s.Store(outpoint, inpoint), "store")
	got, err := s.Get(outpoint)
	require.NoError(t, err, "get")
	assert.Equal(t, inpoint, got, "inpoint")

	stats := s.Statistics()
	assert.Equal(t, uint64(testBuckets), stats.Buckets, "buckets")
	assert.Equal(t, uint32(1), stats.Rows, "rows")

	ok, err := s.Unlink(outpoint)
	require.NoError(t, err, "unlink")
	assert.True(t, ok, "unlinked")

	_, err = s.Get(outpoint)
	assert.Equal(t, fault.ErrKeyNotFound, err, "unlinked")

	ok, err = s.Unlink(outpoint)
	require.NoError(t, err, "unlink again")
	assert.False(t, ok, "nothing to unlink")
}
