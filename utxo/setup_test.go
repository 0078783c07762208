// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/storage"
	"github.com/bitmark-inc/chainstore/utxo"
)

var testingDirName string

func setupTestLogger(t *testing.T) {
	dir, err := ioutil.TempDir("", "utxo-test")
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

func databaseDirectory() string {
	return filepath.Join(testingDirName, "utxo_db")
}

// run a test against a new database on every engine
func forEachEngine(t *testing.T, options utxo.Options, test func(t *testing.T, db *utxo.Database)) {
	for _, engine := range []string{storage.EngineBolt, storage.EngineLevelDB} {
		t.Run(engine, func(t *testing.T) {
			setupTestLogger(t)
			defer teardownTestLogger()

			options.Engine = engine
			db, err := utxo.New(databaseDirectory(), options)
			require.NoError(t, err, "new")
			require.NoError(t, db.Create(), "create")
			defer db.Close()

			test(t, db)
		})
	}
}
