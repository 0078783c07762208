// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/chainstate"
	"github.com/bitmark-inc/chainstore/configuration"
	"github.com/bitmark-inc/chainstore/genesis"
)

var testingDirName string

func setupTestLogger(t *testing.T) {
	dir, err := ioutil.TempDir("", "chainstate-test")
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

// testSettings - small tables in a fresh directory
func testSettings(name string) configuration.Settings {
	s := configuration.Default(filepath.Join(testingDirName, name))
	s.BlockTableBuckets = 101
	s.TransactionTableBuckets = 101
	s.TransactionUnconfirmedTableBuckets = 101
	s.SpendTableBuckets = 101
	s.HistoryTableBuckets = 101
	s.CacheCapacity = 10
	return s
}

// newDatabase - a database created with the genesis block
func newDatabase(t *testing.T, settings configuration.Settings) *chainstate.Database {
	d, err := chainstate.New(settings)
	require.NoError(t, err, "new")
	require.NoError(t, d.Create(genesis.Block()), "create")
	return d
}
