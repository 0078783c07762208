// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"path/filepath"
)

// names of the files in a database directory
const (
	BlockTableName             = "block_table"
	BlockIndexName             = "block_index"
	TransactionTableName       = "transaction_table"
	TransactionUnconfirmedName = "transaction_unconfirmed_table"
	SpendTableName             = "spend_table"
	HistoryTableName           = "history_table"
	HistoryRowsName            = "history_rows"
	StealthRowsName            = "stealth_rows"
	UTXODirectoryName          = "utxo_db"
	FlushLockName              = "flush_lock"
	ExclusiveLockName          = "exclusive_lock"
)

// Files - full paths of every file in a database directory
type Files struct {
	Directory              string
	BlockTable             string
	BlockIndex             string
	TransactionTable       string
	TransactionUnconfirmed string
	SpendTable             string
	HistoryTable           string
	HistoryRows            string
	StealthRows            string
	UTXODirectory          string
	FlushLock              string
	ExclusiveLock          string
}

// NewFiles - the file set of directory
func NewFiles(directory string) Files {
	path := func(name string) string {
		return filepath.Join(directory, name)
	}
	return Files{
		Directory:              directory,
		BlockTable:             path(BlockTableName),
		BlockIndex:             path(BlockIndexName),
		TransactionTable:       path(TransactionTableName),
		TransactionUnconfirmed: path(TransactionUnconfirmedName),
		SpendTable:             path(SpendTableName),
		HistoryTable:           path(HistoryTableName),
		HistoryRows:            path(HistoryRowsName),
		StealthRows:            path(StealthRowsName),
		UTXODirectory:          path(UTXODirectoryName),
		FlushLock:              path(FlushLockName),
		ExclusiveLock:          path(ExclusiveLockName),
	}
}

// mapped - the files created with a single byte
func (f Files) mapped() []string {
	return []string{
		f.BlockTable,
		f.BlockIndex,
		f.TransactionTable,
		f.TransactionUnconfirmed,
		f.SpendTable,
		f.HistoryTable,
		f.HistoryRows,
		f.StealthRows,
	}
}
