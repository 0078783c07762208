// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store_test

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/store"
)

var testingDirName string

func setupTestLogger(t *testing.T) {
	dir, err := ioutil.TempDir("", "store-test")
	require.NoError(t, err, "temporary directory")
	testingDirName = dir

	logging := logger.Configuration{
		Directory: testingDirName,
		File:      "testing.log",
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}

	// start logging
	_ = logger.Initialise(logging)
}

func teardownTestLogger() {
	logger.Finalise()
	os.RemoveAll(testingDirName)
}

func exists(filename string) bool {
	_, err := os.Stat(filename)
	return nil == err
}

func TestCreate(t *testing.T) {
	setupTestLogger(t)
	defer teardownTestLogger()

	directory := filepath.Join(testingDirName, "chain")
	s := store.New(directory, false)
	require.NoError(t, s.Create(), "create")

	files := s.Files()
	for _, filename := range []string{
		files.BlockTable,
		files.BlockIndex,
		files.TransactionTable,
		files.TransactionUnconfirmed,
		files.SpendTable,
		files.HistoryTable,
		files.HistoryRows,
		files.StealthRows,
	} {
		content, err := ioutil.ReadFile(filename)
		require.NoError(t, err, "read: %s", filename)
		assert.Equal(t, []byte("x"), content, "placeholder: %s", filename)
	}
	assert.False(t, exists(files.UTXODirectory), "utxo directory is left to the engine")

	assert.Equal(t, fault.ErrAlreadyInitialised, s.Create(), "second create")
}

func TestOpenLocksDirectory(t *testing.T) {
	setupTestLogger(t)
	defer teardownTestLogger()

	s := store.New(testingDirName, false)
	require.NoError(t, s.Create(), "create")
	require.NoError(t, s.Open(), "open")
	assert.False(t, s.Closed(), "open")
	assert.True(t, exists(s.Files().FlushLock), "flush lock held while open")

	other := store.New(testingDirName, false)
	assert.Equal(t, fault.ErrCannotLockDatabase, other.Open(), "second process")

	flushed := false
	require.NoError(t, s.Close(func() error {
		flushed = true
		return nil
	}), "close")
	assert.True(t, flushed, "flushed")
	assert.True(t, s.Closed(), "closed")
	assert.False(t, exists(s.Files().FlushLock), "flush lock removed")

	require.NoError(t, other.Open(), "open after close")
	require.NoError(t, other.Close(nil), "close")
}

func TestUncleanShutdown(t *testing.T) {
	setupTestLogger(t)
	defer teardownTestLogger()

	s := store.New(testingDirName, false)
	require.NoError(t, s.Create(), "create")
	require.NoError(t, s.Open(), "open")

	failure := errors.New("flush failed")
	assert.Equal(t, failure, s.Close(func() error { return failure }), "close")
	assert.True(t, exists(s.Files().FlushLock), "flush lock kept")

	reopened := store.New(testingDirName, false)
	assert.Equal(t, fault.ErrFlushLockExists, reopened.Open(), "reopen")
}

func TestFlushEachWrite(t *testing.T) {
	setupTestLogger(t)
	defer teardownTestLogger()

	s := store.New(testingDirName, true)
	require.NoError(t, s.Create(), "create")
	require.NoError(t, s.Open(), "open")
	defer s.Close(nil)

	assert.False(t, exists(s.Files().FlushLock), "no flush lock between writes")

	require.NoError(t, s.BeginWrite(), "begin write")
	assert.True(t, exists(s.Files().FlushLock), "flush lock during write")
	assert.True(t, s.IsWriteLocked(s.BeginRead()), "write locked")

	flushes := 0
	require.NoError(t, s.EndWrite(func() error {
		flushes += 1
		return nil
	}), "end write")
	assert.Equal(t, 1, flushes, "flushed once")
	assert.False(t, exists(s.Files().FlushLock), "flush lock removed")
}

func TestSequentialLock(t *testing.T) {
	var lock store.SequentialLock

	before := lock.BeginRead()
	assert.True(t, lock.IsReadValid(before), "no writes")
	assert.False(t, lock.IsWriteLocked(before), "not locked")

	assert.True(t, lock.BeginWrite(), "begin write")
	during := lock.BeginRead()
	assert.True(t, lock.IsWriteLocked(during), "locked")
	assert.False(t, lock.IsReadValid(during), "read during write")
	assert.False(t, lock.IsReadValid(before), "read spanning a write")

	assert.True(t, lock.EndWrite(), "end write")
	after := lock.BeginRead()
	assert.True(t, lock.IsReadValid(after), "read after write")
	assert.False(t, lock.IsReadValid(before), "stale read")
}
