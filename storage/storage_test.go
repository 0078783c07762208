// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/storage"
)

var testingDirName string

var testTables = []string{"alpha", "beta"}

func setupTestLogger(t *testing.T) {
	dir, err := ioutil.TempDir("", "storage-test")
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

// run a test against every engine
func forEachEngine(t *testing.T, test func(t *testing.T, env storage.Environment)) {
	for _, engine := range []string{storage.EngineBolt, storage.EngineLevelDB} {
		t.Run(engine, func(t *testing.T) {
			setupTestLogger(t)
			defer teardownTestLogger()

			env, err := storage.Open(engine, filepath.Join(testingDirName, "utxo_db"), testTables)
			require.NoError(t, err, "open")
			defer env.Close()

			test(t, env)
		})
	}
}

func TestOpenInvalidEngine(t *testing.T) {
	_, err := storage.Open("lmdb", "nowhere", testTables)
	assert.Equal(t, fault.ErrInvalidEngine, err, "wrong error")

	_, err = storage.Open(storage.EngineBolt, "nowhere", nil)
	assert.Equal(t, fault.ErrMissingParameters, err, "wrong error")
}

func TestPutGetCommit(t *testing.T) {
	forEachEngine(t, func(t *testing.T, env storage.Environment) {
		tx, err := env.Begin(storage.ReadWrite)
		require.NoError(t, err, "begin")

		require.NoError(t, tx.Put("alpha", []byte("k1"), []byte("v1"), true), "put")
		assert.Equal(t, storage.ErrKeyExists, tx.Put("alpha", []byte("k1"), []byte("v2"), true), "no overwrite")
		require.NoError(t, tx.Put("alpha", []byte("k1"), []byte("v3"), false), "overwrite")

		// same key in another table is independent
		require.NoError(t, tx.Put("beta", []byte("k1"), []byte("b1"), true), "put beta")

		v, err := tx.Get("alpha", []byte("k1"))
		require.NoError(t, err, "get inside transaction")
		assert.Equal(t, []byte("v3"), v, "uncommitted value")

		require.NoError(t, tx.Commit(), "commit")
		assert.Equal(t, fault.ErrTransactionIsNotInUse, tx.Commit(), "second commit")

		err = storage.View(env, func(tx storage.Transaction) error {
			v, err := tx.Get("alpha", []byte("k1"))
			require.NoError(t, err, "get")
			assert.Equal(t, []byte("v3"), v, "committed alpha")

			v, err = tx.Get("beta", []byte("k1"))
			require.NoError(t, err, "get")
			assert.Equal(t, []byte("b1"), v, "committed beta")

			_, err = tx.Get("alpha", []byte("missing"))
			assert.Equal(t, storage.ErrNotFound, err, "missing key")

			assert.Equal(t, fault.ErrReadOnlyTransaction, tx.Put("alpha", []byte("x"), []byte("y"), false), "read only put")
			return nil
		})
		require.NoError(t, err, "view")
	})
}

func TestAbortDiscards(t *testing.T) {
	forEachEngine(t, func(t *testing.T, env storage.Environment) {
		tx, err := env.Begin(storage.ReadWrite)
		require.NoError(t, err, "begin")
		require.NoError(t, tx.Put("alpha", []byte("k"), []byte("v"), true), "put")
		tx.Abort()
		tx.Abort()

		err = storage.View(env, func(tx storage.Transaction) error {
			_, err := tx.Get("alpha", []byte("k"))
			return err
		})
		assert.Equal(t, storage.ErrNotFound, err, "aborted write visible")

		// the writer was released
		err = storage.Update(env, func(tx storage.Transaction) error {
			return tx.Put("alpha", []byte("k"), []byte("v"), true)
		})
		assert.NoError(t, err, "update after abort")
	})
}

func TestDelete(t *testing.T) {
	forEachEngine(t, func(t *testing.T, env storage.Environment) {
		err := storage.Update(env, func(tx storage.Transaction) error {
			return tx.Put("alpha", []byte("k"), []byte("v"), true)
		})
		require.NoError(t, err, "put")

		err = storage.Update(env, func(tx storage.Transaction) error {
			if err := tx.Delete("alpha", []byte("k")); nil != err {
				return err
			}
			_, err := tx.Get("alpha", []byte("k"))
			assert.Equal(t, storage.ErrNotFound, err, "deleted key visible in transaction")
			assert.Equal(t, storage.ErrNotFound, tx.Delete("alpha", []byte("k")), "second delete")

			// reinsert after delete is allowed
			return tx.Put("alpha", []byte("k"), []byte("w"), true)
		})
		require.NoError(t, err, "delete")

		err = storage.View(env, func(tx storage.Transaction) error {
			v, err := tx.Get("alpha", []byte("k"))
			assert.Equal(t, []byte("w"), v, "reinserted value")
			return err
		})
		require.NoError(t, err, "view")
	})
}

func TestCursor(t *testing.T) {
	forEachEngine(t, func(t *testing.T, env storage.Environment) {
		err := storage.Update(env, func(tx storage.Transaction) error {
			for _, k := range []string{"b", "d", "a", "c", "e"} {
				if err := tx.Put("alpha", []byte(k), []byte("value-"+k), true); nil != err {
					return err
				}
			}
			return tx.Put("beta", []byte("z"), []byte("other"), true)
		})
		require.NoError(t, err, "populate")

		err = storage.Update(env, func(tx storage.Transaction) error {
			return tx.Delete("alpha", []byte("c"))
		})
		require.NoError(t, err, "delete")

		err = storage.View(env, func(tx storage.Transaction) error {
			cursor, err := tx.Cursor("alpha")
			require.NoError(t, err, "cursor")
			defer cursor.Close()

			k, v := cursor.First()
			assert.Equal(t, []byte("a"), k, "first key")
			assert.Equal(t, []byte("value-a"), v, "first value")

			k, _ = cursor.Last()
			assert.Equal(t, []byte("e"), k, "last key")

			k, _ = cursor.Set([]byte("c"))
			assert.Nil(t, k, "deleted key found")

			k, _ = cursor.SetRange([]byte("c"))
			assert.Equal(t, []byte("d"), k, "set range")
			k, _ = cursor.Next()
			assert.Equal(t, []byte("e"), k, "next")
			k, _ = cursor.Next()
			assert.Nil(t, k, "past the end of the table")

			keys := []string{}
			err = storage.Map(cursor, nil, func(key []byte, value []byte) error {
				keys = append(keys, string(key))
				return nil
			})
			assert.Equal(t, []string{"a", "b", "d", "e"}, keys, "mapped keys")
			return err
		})
		require.NoError(t, err, "view")
	})
}

func TestCursorSkipsPendingDeletes(t *testing.T) {
	forEachEngine(t, func(t *testing.T, env storage.Environment) {
		err := storage.Update(env, func(tx storage.Transaction) error {
			for _, k := range []string{"a", "b", "c"} {
				if err := tx.Put("alpha", []byte(k), []byte(k), true); nil != err {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err, "populate")

		err = storage.Update(env, func(tx storage.Transaction) error {
			if err := tx.Delete("alpha", []byte("a")); nil != err {
				return err
			}
			if err := tx.Delete("alpha", []byte("c")); nil != err {
				return err
			}
			cursor, err := tx.Cursor("alpha")
			if nil != err {
				return err
			}
			defer cursor.Close()

			k, _ := cursor.First()
			assert.Equal(t, []byte("b"), k, "first live key")
			k, _ = cursor.Last()
			assert.Equal(t, []byte("b"), k, "last live key")
			return nil
		})
		require.NoError(t, err, "update")
	})
}

func TestReopenKeepsData(t *testing.T) {
	for _, engine := range []string{storage.EngineBolt, storage.EngineLevelDB} {
		t.Run(engine, func(t *testing.T) {
			setupTestLogger(t)
			defer teardownTestLogger()

			path := filepath.Join(testingDirName, "utxo_db")
			env, err := storage.Open(engine, path, testTables)
			require.NoError(t, err, "open")
			err = storage.Update(env, func(tx storage.Transaction) error {
				return tx.Put("beta", []byte("k"), []byte("v"), true)
			})
			require.NoError(t, err, "put")
			require.NoError(t, env.Sync(), "sync")
			require.NoError(t, env.Close(), "close")

			env, err = storage.Open(engine, path, testTables)
			require.NoError(t, err, "reopen")
			defer env.Close()

			err = storage.View(env, func(tx storage.Transaction) error {
				v, err := tx.Get("beta", []byte("k"))
				assert.Equal(t, []byte("v"), v, "value after reopen")
				return err
			})
			require.NoError(t, err, "view")
		})
	}
}
