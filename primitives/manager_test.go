// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package primitives_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/primitives"
)

func TestRecordManagerMonotonic(t *testing.T) {
	setupTestLogger(t)
	defer teardownTestLogger()

	file := newMappedFile(t, "records")
	defer file.Close()

	manager := primitives.NewRecordManager(file, 0, 10)
	require.NoError(t, manager.Create(), "create")
	_, err := manager.NewRecords(1)
	require.NoError(t, err, "new records")
	assert.Equal(t, fault.ErrAlreadyInitialised, manager.Create(), "create after allocation")
	require.NoError(t, manager.SetCount(0), "reset count")

	expected := uint32(0)
	for _, k := range []uint32{1, 3, 7, 2, 100} {
		first, err := manager.NewRecords(k)
		require.NoError(t, err, "new records")
		assert.Equal(t, expected, first, "first index")
		expected += k
		assert.Equal(t, expected, manager.Count(), "count after allocation")
	}
	assert.True(t, file.Size() >= uint64(4+10*expected), "file too small for records")

	a, err := manager.Get(expected - 1)
	require.NoError(t, err, "last record")
	assert.Equal(t, 10, a.Len(), "record length")
	a.Release()
}

func TestRecordManagerPersistsCount(t *testing.T) {
	setupTestLogger(t)
	defer teardownTestLogger()

	file := newMappedFile(t, "records")

	manager := primitives.NewRecordManager(file, 16, 8)
	w, err := file.Resize(16)
	require.NoError(t, err, "header space")
	w.Release()
	require.NoError(t, manager.Create(), "create")

	_, err = manager.NewRecords(5)
	require.NoError(t, err, "new records")
	require.NoError(t, manager.SetCount(3), "truncate")
	assert.Equal(t, fault.ErrInvalidCount, manager.SetCount(4), "cannot grow by set count")
	require.NoError(t, manager.Sync(), "sync")

	file = reopen(t, file)
	defer file.Close()

	restarted := primitives.NewRecordManager(file, 16, 8)
	require.NoError(t, restarted.Start(), "start")
	assert.Equal(t, uint32(3), restarted.Count(), "stored count")
}

func TestSlabManagerMonotonic(t *testing.T) {
	setupTestLogger(t)
	defer teardownTestLogger()

	file := newMappedFile(t, "slabs")

	manager := primitives.NewSlabManager(file, 0)
	require.NoError(t, manager.Create(), "create")
	assert.Equal(t, uint64(8), manager.PayloadSize(), "initial payload size")

	for _, size := range []uint64{1, 17, 300, 4} {
		before := manager.PayloadSize()
		position, err := manager.NewSlab(size)
		require.NoError(t, err, "new slab")
		assert.Equal(t, before, position, "slab position")
		assert.Equal(t, before+size, manager.PayloadSize(), "payload size")
	}
	require.NoError(t, manager.Sync(), "sync")

	_, err := manager.Get(4)
	assert.Equal(t, fault.ErrOutOfRange, err, "inside the size prefix")
	_, err = manager.Get(manager.PayloadSize())
	assert.Equal(t, fault.ErrOutOfRange, err, "past the payload")

	file = reopen(t, file)
	defer file.Close()

	restarted := primitives.NewSlabManager(file, 0)
	require.NoError(t, restarted.Start(), "start")
	assert.Equal(t, uint64(8+1+17+300+4), restarted.PayloadSize(), "stored payload size")
}

func TestBucketTableMismatch(t *testing.T) {
	setupTestLogger(t)
	defer teardownTestLogger()

	file := newMappedFile(t, "table")
	defer file.Close()

	table := primitives.NewRecordBucketTable(file, 10)
	require.NoError(t, table.Create(), "create")
	assert.Equal(t, uint64(44), table.HeaderSize(), "header size")

	for i := uint64(0); i < 10; i += 1 {
		v, err := table.Read(i)
		require.NoError(t, err, "read")
		assert.Equal(t, uint64(primitives.EmptyRecord), v, "bucket not empty")
	}
	_, err := table.Read(10)
	assert.Equal(t, fault.ErrOutOfRange, err, "bucket past the end")

	require.NoError(t, table.Start(), "start")
	other := primitives.NewRecordBucketTable(file, 11)
	assert.Equal(t, fault.ErrBucketCountMismatch, other.Start(), "mismatched count")
	larger := primitives.NewRecordBucketTable(file, 100000)
	assert.Equal(t, fault.ErrBucketCountMismatch, larger.Start(), "count larger than the file")

	zero := primitives.NewSlabBucketTable(file, 0)
	assert.Equal(t, fault.ErrInvalidBucketCount, zero.Create(), "zero buckets")
}
