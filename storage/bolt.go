// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"bytes"
	"fmt"
	"time"

	"github.com/bitmark-inc/logger"
	bolt "go.etcd.io/bbolt"

	"github.com/bitmark-inc/chainstore/fault"
)

const boltOpenTimeout = 5 * time.Second

type boltEnvironment struct {
	log *logger.L
	db  *bolt.DB
}

func openBolt(path string, tables []string) (Environment, error) {
	log := logger.New("storage")

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: boltOpenTimeout})
	if nil != err {
		log.Errorf("bolt open: %q  error: %s", path, err)
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, table := range tables {
			if _, err := tx.CreateBucketIfNotExists([]byte(table)); nil != err {
				return fmt.Errorf("create table: %s: %w", table, err)
			}
		}
		return nil
	})
	if nil != err {
		db.Close()
		log.Errorf("bolt tables: %q  error: %s", path, err)
		return nil, err
	}

	log.Infof("bolt opened: %q", path)
	return &boltEnvironment{
		log: log,
		db:  db,
	}, nil
}

func (e *boltEnvironment) Begin(writable bool) (Transaction, error) {
	tx, err := e.db.Begin(writable)
	if nil != err {
		return nil, err
	}
	return &boltTransaction{tx: tx}, nil
}

func (e *boltEnvironment) Sync() error {
	return e.db.Sync()
}

func (e *boltEnvironment) Close() error {
	e.log.Info("bolt closing")
	return e.db.Close()
}

type boltTransaction struct {
	tx   *bolt.Tx
	done bool
}

func (t *boltTransaction) bucket(table string) (*bolt.Bucket, error) {
	if t.done {
		return nil, fault.ErrTransactionIsNotInUse
	}
	b := t.tx.Bucket([]byte(table))
	if nil == b {
		return nil, fmt.Errorf("table: %s: %w", table, ErrNotFound)
	}
	return b, nil
}

func (t *boltTransaction) Get(table string, key []byte) ([]byte, error) {
	b, err := t.bucket(table)
	if nil != err {
		return nil, err
	}
	value := b.Get(key)
	if nil == value {
		return nil, ErrNotFound
	}
	return copyBytes(value), nil
}

func (t *boltTransaction) Put(table string, key []byte, value []byte, noOverwrite bool) error {
	if !t.tx.Writable() {
		return fault.ErrReadOnlyTransaction
	}
	b, err := t.bucket(table)
	if nil != err {
		return err
	}
	if noOverwrite && nil != b.Get(key) {
		return ErrKeyExists
	}
	return b.Put(key, value)
}

func (t *boltTransaction) Delete(table string, key []byte) error {
	if !t.tx.Writable() {
		return fault.ErrReadOnlyTransaction
	}
	b, err := t.bucket(table)
	if nil != err {
		return err
	}
	if nil == b.Get(key) {
		return ErrNotFound
	}
	return b.Delete(key)
}

func (t *boltTransaction) Cursor(table string) (Cursor, error) {
	b, err := t.bucket(table)
	if nil != err {
		return nil, err
	}
	return &boltCursor{cursor: b.Cursor()}, nil
}

func (t *boltTransaction) Commit() error {
	if t.done {
		return fault.ErrTransactionIsNotInUse
	}
	t.done = true
	if !t.tx.Writable() {
		return t.tx.Rollback()
	}
	return t.tx.Commit()
}

func (t *boltTransaction) Abort() {
	if t.done {
		return
	}
	t.done = true
	_ = t.tx.Rollback()
}

type boltCursor struct {
	cursor *bolt.Cursor
}

func (c *boltCursor) First() ([]byte, []byte) {
	return copyPair(c.cursor.First())
}

func (c *boltCursor) Last() ([]byte, []byte) {
	return copyPair(c.cursor.Last())
}

func (c *boltCursor) Next() ([]byte, []byte) {
	return copyPair(c.cursor.Next())
}

func (c *boltCursor) Set(key []byte) ([]byte, []byte) {
	k, v := c.cursor.Seek(key)
	if !bytes.Equal(k, key) {
		return nil, nil
	}
	return copyPair(k, v)
}

func (c *boltCursor) SetRange(key []byte) ([]byte, []byte) {
	return copyPair(c.cursor.Seek(key))
}

// bolt cursors are released with their transaction
func (c *boltCursor) Close() {
}

func copyPair(k []byte, v []byte) ([]byte, []byte) {
	if nil == k {
		return nil, nil
	}
	return copyBytes(k), copyBytes(v)
}
