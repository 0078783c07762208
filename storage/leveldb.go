// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitmark-inc/chainstore/fault"
)

// for database version
var versionKey = []byte{0x00, 'V', 'E', 'R', 'S', 'I', 'O', 'N'}

const (
	currentDBVersion = 0x100
	tableSeparator   = 0x00
)

type levelEnvironment struct {
	sync.Mutex // single writer

	log    *logger.L
	db     *leveldb.DB
	tables map[string]struct{}
}

func openLevelDB(path string, tables []string) (Environment, error) {
	log := logger.New("storage")

	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: false,
	}
	db, err := leveldb.OpenFile(path, opt)
	if nil != err {
		log.Errorf("leveldb open: %q  error: %s", path, err)
		return nil, err
	}

	version, err := getVersion(db)
	if nil != err {
		db.Close()
		return nil, err
	}
	if version > currentDBVersion {
		db.Close()
		log.Criticalf("database version: %d > current version: %d", version, currentDBVersion)
		return nil, fmt.Errorf("database version: %d > current version: %d", version, currentDBVersion)
	}
	if 0 == version {
		if err := putVersion(db, currentDBVersion); nil != err {
			db.Close()
			return nil, err
		}
	}

	known := make(map[string]struct{}, len(tables))
	for _, table := range tables {
		known[table] = struct{}{}
	}

	log.Infof("leveldb opened: %q", path)
	return &levelEnvironment{
		log:    log,
		db:     db,
		tables: known,
	}, nil
}

func (e *levelEnvironment) Begin(writable bool) (Transaction, error) {
	if !writable {
		snapshot, err := e.db.GetSnapshot()
		if nil != err {
			return nil, err
		}
		return &levelTransaction{
			env:      e,
			snapshot: snapshot,
			inUse:    true,
		}, nil
	}

	e.Lock()
	return &levelTransaction{
		env:      e,
		writable: true,
		batch:    new(leveldb.Batch),
		cache:    newCache(),
		inUse:    true,
	}, nil
}

// Sync - force the journal to disk
func (e *levelEnvironment) Sync() error {
	return e.db.Write(new(leveldb.Batch), &ldb_opt.WriteOptions{Sync: true})
}

func (e *levelEnvironment) Close() error {
	e.log.Info("leveldb closing")
	return e.db.Close()
}

func (e *levelEnvironment) prefixKey(table string, key []byte) ([]byte, error) {
	if _, ok := e.tables[table]; !ok {
		return nil, fmt.Errorf("table: %s: %w", table, ErrNotFound)
	}
	prefixed := make([]byte, 0, len(table)+1+len(key))
	prefixed = append(prefixed, table...)
	prefixed = append(prefixed, tableSeparator)
	return append(prefixed, key...), nil
}

func (e *levelEnvironment) tableRange(table string) *ldb_util.Range {
	start := append([]byte(table), tableSeparator)
	limit := append([]byte(table), tableSeparator+1)
	return &ldb_util.Range{Start: start, Limit: limit}
}

// levelTransaction - a batch with its write cache, or a snapshot
type levelTransaction struct {
	sync.Mutex

	env      *levelEnvironment
	writable bool
	inUse    bool
	batch    *leveldb.Batch
	cache    Cache
	snapshot *leveldb.Snapshot
}

func (t *levelTransaction) Get(table string, key []byte) ([]byte, error) {
	t.Lock()
	defer t.Unlock()

	if !t.inUse {
		return nil, fault.ErrTransactionIsNotInUse
	}
	k, err := t.env.prefixKey(table, key)
	if nil != err {
		return nil, err
	}
	return t.get(k)
}

// get - must hold the lock
func (t *levelTransaction) get(key []byte) ([]byte, error) {
	if t.writable {
		value, written, deleted := t.cache.Get(string(key))
		if deleted {
			return nil, ErrNotFound
		}
		if written {
			return copyBytes(value), nil
		}
	}

	var value []byte
	var err error
	if nil != t.snapshot {
		value, err = t.snapshot.Get(key, nil)
	} else {
		value, err = t.env.db.Get(key, nil)
	}
	if leveldb.ErrNotFound == err {
		return nil, ErrNotFound
	}
	return value, err
}

func (t *levelTransaction) Put(table string, key []byte, value []byte, noOverwrite bool) error {
	t.Lock()
	defer t.Unlock()

	if !t.inUse {
		return fault.ErrTransactionIsNotInUse
	}
	if !t.writable {
		return fault.ErrReadOnlyTransaction
	}
	k, err := t.env.prefixKey(table, key)
	if nil != err {
		return err
	}
	if noOverwrite {
		_, err := t.get(k)
		if nil == err {
			return ErrKeyExists
		}
		if ErrNotFound != err {
			return err
		}
	}

	v := copyBytes(value)
	t.cache.Set(dbPut, string(k), v)
	t.batch.Put(k, v)
	return nil
}

func (t *levelTransaction) Delete(table string, key []byte) error {
	t.Lock()
	defer t.Unlock()

	if !t.inUse {
		return fault.ErrTransactionIsNotInUse
	}
	if !t.writable {
		return fault.ErrReadOnlyTransaction
	}
	k, err := t.env.prefixKey(table, key)
	if nil != err {
		return err
	}
	if _, err := t.get(k); nil != err {
		return err
	}

	t.cache.Set(dbDelete, string(k), nil)
	t.batch.Delete(k)
	return nil
}

func (t *levelTransaction) Cursor(table string) (Cursor, error) {
	t.Lock()
	defer t.Unlock()

	if !t.inUse {
		return nil, fault.ErrTransactionIsNotInUse
	}
	if _, err := t.env.prefixKey(table, nil); nil != err {
		return nil, err
	}
	return newLevelCursor(t, table), nil
}

func (t *levelTransaction) Commit() error {
	t.Lock()
	defer t.Unlock()

	if !t.inUse {
		return fault.ErrTransactionIsNotInUse
	}
	if !t.writable {
		t.finish()
		return nil
	}

	err := t.env.db.Write(t.batch, nil)
	t.finish()
	return err
}

func (t *levelTransaction) Abort() {
	t.Lock()
	defer t.Unlock()

	if t.inUse {
		t.finish()
	}
}

// finish - must hold the lock
func (t *levelTransaction) finish() {
	t.inUse = false
	if t.writable {
		t.batch.Reset()
		t.cache.Clear()
		t.env.Unlock()
	} else {
		t.snapshot.Release()
	}
}

// return the stored version, 0 for a new database
func getVersion(db *leveldb.DB) (int, error) {
	versionValue, err := db.Get(versionKey, nil)
	if leveldb.ErrNotFound == err {
		return 0, nil
	} else if nil != err {
		return 0, err
	}

	if 4 != len(versionValue) {
		return 0, fmt.Errorf("incompatible database version length: expected: %d  actual: %d", 4, len(versionValue))
	}

	return int(binary.BigEndian.Uint32(versionValue)), nil
}

func putVersion(db *leveldb.DB, version int) error {
	currentVersion := make([]byte, 4)
	binary.BigEndian.PutUint32(currentVersion, uint32(version))

	return db.Put(versionKey, currentVersion, nil)
}
