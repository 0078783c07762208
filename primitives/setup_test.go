// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package primitives_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/chainstore/memory"
)

var testingDirName string

func setupTestLogger(t *testing.T) {
	dir, err := ioutil.TempDir("", "primitives-test")
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

// newMappedFile - a one byte file, as created by the store, opened for mapping
func newMappedFile(t *testing.T, name string) *memory.MappedFile {
	filename := filepath.Join(testingDirName, name)
	err := ioutil.WriteFile(filename, []byte{'x'}, 0600)
	require.NoError(t, err, "create file")

	file := memory.New(filename, memory.DefaultExpansion)
	require.NoError(t, file.Open(), "open")
	return file
}

func reopen(t *testing.T, file *memory.MappedFile) *memory.MappedFile {
	require.NoError(t, file.Close(), "close")
	reopened := memory.New(file.Filename(), memory.DefaultExpansion)
	require.NoError(t, reopened.Open(), "reopen")
	return reopened
}
