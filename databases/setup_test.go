// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package databases_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/require"
)

const (
	testBuckets   = 101
	testExpansion = 50
)

var testingDirName string

func setupTestLogger(t *testing.T) {
	dir, err := ioutil.TempDir("", "databases-test")
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

// testFile - a one byte file ready to be created as a database
func testFile(t *testing.T, name string) string {
	filename := filepath.Join(testingDirName, name)
	err := ioutil.WriteFile(filename, []byte{'x'}, 0600)
	require.NoError(t, err, "create file")
	return filename
}
