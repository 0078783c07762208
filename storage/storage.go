// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/bitmark-inc/chainstore/fault"
)

// engine names accepted by Open
const (
	EngineBolt    = "bolt"
	EngineLevelDB = "leveldb"
)

// errors returned by every engine
var (
	ErrNotFound  = fault.ErrKeyNotFound
	ErrKeyExists = fault.ErrKeyExists
)

// pool access modes
const (
	ReadOnly  = false
	ReadWrite = true
)

// Environment - an open database of named tables
type Environment interface {
	Begin(writable bool) (Transaction, error)
	Sync() error
	Close() error
}

// Transaction - a view of every table, writes are atomic on Commit
type Transaction interface {
	Get(table string, key []byte) ([]byte, error)
	Put(table string, key []byte, value []byte, noOverwrite bool) error
	Delete(table string, key []byte) error
	Cursor(table string) (Cursor, error)
	Commit() error
	Abort()
}

// Cursor - ordered iteration over one table
//
// each positioning method returns a nil key when there is no such entry
type Cursor interface {
	First() ([]byte, []byte)
	Last() ([]byte, []byte)
	Next() ([]byte, []byte)
	Set(key []byte) ([]byte, []byte)
	SetRange(key []byte) ([]byte, []byte)
	Close()
}

// Open - open or create an environment with the given tables
func Open(engine string, path string, tables []string) (Environment, error) {
	if 0 == len(tables) {
		return nil, fault.ErrMissingParameters
	}
	switch engine {
	case EngineBolt:
		return openBolt(path, tables)
	case EngineLevelDB:
		return openLevelDB(path, tables)
	default:
		return nil, fault.ErrInvalidEngine
	}
}

// View - run f in a read transaction
func View(env Environment, f func(Transaction) error) error {
	tx, err := env.Begin(ReadOnly)
	if nil != err {
		return err
	}
	defer tx.Abort()
	return f(tx)
}

// Update - run f in a write transaction, committing if it succeeds
func Update(env Environment, f func(Transaction) error) error {
	tx, err := env.Begin(ReadWrite)
	if nil != err {
		return err
	}
	if err := f(tx); nil != err {
		tx.Abort()
		return err
	}
	return tx.Commit()
}

func copyBytes(b []byte) []byte {
	if nil == b {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
