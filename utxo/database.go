// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/merkle"
	"github.com/bitmark-inc/chainstore/result"
	"github.com/bitmark-inc/chainstore/storage"
)

// name of the bolt file inside the database directory
const boltFilename = "utxo.bolt"

// Options - construction time settings
type Options struct {
	Engine            string
	ReorgPoolLimit    uint32
	MinimumAge        time.Duration // 0: archive every block
	CompactPointIndex bool
	HeaderCacheSize   int // 0: no header cache
}

// Database - the unspent output set with its reorganization ledger
type Database struct {
	sync.Mutex // serialises writers

	log       *logger.L
	directory string
	engine    string
	limit     uint32
	minimum   time.Duration
	compact   bool
	headers   *headerCache

	env storage.Environment

	// clock used to decide if a block is old enough not to archive
	now func() time.Time
}

// New - a closed database in directory
func New(directory string, options Options) (*Database, error) {
	engine := options.Engine
	if "" == engine {
		engine = storage.EngineBolt
	}
	headers, err := newHeaderCache(options.HeaderCacheSize)
	if nil != err {
		return nil, err
	}
	return &Database{
		log:       logger.New("utxo"),
		directory: directory,
		engine:    engine,
		limit:     options.ReorgPoolLimit,
		minimum:   options.MinimumAge,
		compact:   options.CompactPointIndex,
		headers:   headers,
		now:       time.Now,
	}, nil
}

// Engine - name of the transactional engine in use
func (d *Database) Engine() string {
	return d.engine
}

func (d *Database) path() string {
	if storage.EngineBolt == d.engine {
		return filepath.Join(d.directory, boltFilename)
	}
	return d.directory
}

// Create - make the directory, which must not exist, and open it
func (d *Database) Create() error {
	if err := os.Mkdir(d.directory, 0700); nil != err {
		d.log.Errorf("create directory: %q  error: %s", d.directory, err)
		if os.IsExist(err) {
			return fault.ErrAlreadyInitialised
		}
		return err
	}
	return d.Open()
}

// Open - open the engine and check the stored point key format
func (d *Database) Open() error {
	d.Lock()
	defer d.Unlock()

	if nil != d.env {
		return fault.ErrAlreadyInitialised
	}
	env, err := storage.Open(d.engine, d.path(), Tables)
	if nil != err {
		return err
	}

	format := []byte{0}
	if d.compact {
		format[0] = 1
	}
	err = storage.Update(env, func(tx storage.Transaction) error {
		stored, err := tx.Get(TableProperties, []byte(propertyCompact))
		if storage.ErrNotFound == err {
			return tx.Put(TableProperties, []byte(propertyCompact), format, false)
		}
		if nil != err {
			return err
		}
		if !bytes.Equal(stored, format) {
			d.log.Criticalf("point index format: %x  configured: %x", stored, format)
			return fault.ErrDatabaseCorrupt
		}
		return nil
	})
	if nil != err {
		env.Close()
		return err
	}

	d.env = env
	d.log.Infof("opened: %q  engine: %s", d.directory, d.engine)
	return nil
}

// Close - close the engine, safe to call twice
func (d *Database) Close() error {
	d.Lock()
	defer d.Unlock()

	if nil == d.env {
		return nil
	}
	err := d.env.Close()
	d.env = nil
	d.headers.purge()
	d.log.Info("closed")
	return err
}

// Sync - flush the engine to disk
func (d *Database) Sync() error {
	if nil == d.env {
		return fault.ErrDatabaseIsClosed
	}
	return d.env.Sync()
}

// a block is old when its timestamp is at least the minimum age ago
func (d *Database) isOldBlock(block *chain.Block) bool {
	if 0 == d.minimum {
		return false
	}
	ts := time.Unix(int64(block.Header.Timestamp), 0)
	return d.now().Sub(ts) >= d.minimum
}

// run a write transaction, committing only when f succeeds
func (d *Database) update(f func(storage.Transaction) result.Code) result.Code {
	if nil == d.env {
		return result.Other
	}
	tx, err := d.env.Begin(storage.ReadWrite)
	if nil != err {
		d.log.Errorf("begin: error: %s", err)
		return result.Other
	}
	res := f(tx)
	if !res.Succeed() {
		tx.Abort()
		return res
	}
	if err := tx.Commit(); nil != err {
		d.log.Errorf("commit: error: %s", err)
		return result.Other
	}
	return res
}

func (d *Database) view(f func(storage.Transaction) result.Code) result.Code {
	if nil == d.env {
		return result.Other
	}
	tx, err := d.env.Begin(storage.ReadOnly)
	if nil != err {
		d.log.Errorf("begin: error: %s", err)
		return result.Other
	}
	defer tx.Abort()
	return f(tx)
}

// PushGenesis - record the header of the first block at height zero
func (d *Database) PushGenesis(block *chain.Block) result.Code {
	d.Lock()
	defer d.Unlock()

	res := d.update(func(tx storage.Transaction) result.Code {
		return pushBlockHeader(tx, block, 0)
	})
	if result.Success == res {
		d.headers.add(0, &block.Header)
	}
	return res
}

// PushBlock - apply a block at height
//
// the coinbase and every transaction's outputs are added, every spent
// input is removed and, unless the block is old, archived for a pop
func (d *Database) PushBlock(block *chain.Block, height uint32, medianTimePast uint32) result.Code {
	if 0 == len(block.Transactions) {
		return result.Other
	}

	d.Lock()
	defer d.Unlock()

	archive := !d.isOldBlock(block)
	res := d.update(func(tx storage.Transaction) result.Code {
		return d.pushBlock(tx, block, height, medianTimePast, archive)
	})
	if res.Succeed() {
		d.headers.add(height, &block.Header)
		d.log.Debugf("push: height: %d  archive: %t  result: %s", height, archive, res)
	}
	return res
}

// RemoveBlock - undo a block previously pushed at height
func (d *Database) RemoveBlock(block *chain.Block, height uint32) result.Code {
	if 0 == len(block.Transactions) {
		return result.Other
	}

	d.Lock()
	defer d.Unlock()

	return d.removeBlockLocked(block, height)
}

func (d *Database) removeBlockLocked(block *chain.Block, height uint32) result.Code {
	d.headers.remove(height)
	res := d.update(func(tx storage.Transaction) result.Code {
		return d.removeBlock(tx, block, height)
	})
	d.headers.remove(height)
	d.log.Debugf("remove: height: %d  result: %s", height, res)
	return res
}

// PopBlock - remove the top block, returning it
func (d *Database) PopBlock() (*chain.Block, result.Code) {
	d.Lock()
	defer d.Unlock()

	height, res := d.GetLastHeight()
	if result.Success != res {
		return nil, res
	}
	block, res := d.GetBlockReorg(height)
	if result.Success != res {
		d.log.Warnf("pop: no reorg data at height: %d", height)
		return nil, res
	}
	if res := d.removeBlockLocked(block, height); result.Success != res {
		return nil, res
	}
	return block, result.Success
}

// Prune - forget reorganization data deeper than the pool limit
func (d *Database) Prune() result.Code {
	d.Lock()
	defer d.Unlock()

	last, res := d.GetLastHeight()
	if result.DBEmpty == res {
		return result.NoDataToPrune
	}
	if result.Success != res {
		return res
	}
	if last < d.limit {
		return result.NoDataToPrune
	}

	first, res := d.GetFirstReorgBlockHeight()
	if result.DBEmpty == res {
		return result.NoDataToPrune
	}
	if result.Success != res {
		return res
	}
	if first > last {
		d.log.Criticalf("first reorg height: %d  above last height: %d", first, last)
		return result.DBCorrupt
	}

	count := last - first + 1
	if count <= d.limit {
		return result.NoDataToPrune
	}
	amount := count - d.limit
	removeUntil := first + amount

	res = d.update(func(tx storage.Transaction) result.Code {
		if res := PruneReorgBlock(tx, amount); result.Success != res {
			return res
		}
		return PruneReorgIndex(tx, removeUntil)
	})
	if result.Success == res {
		d.log.Debugf("pruned below height: %d", removeUntil)
	}
	return res
}

// GetUTXO - the unspent output at point
func (d *Database) GetUTXO(point chain.Point) (*Entry, result.Code) {
	var entry *Entry
	res := d.view(func(tx storage.Transaction) result.Code {
		value, err := tx.Get(TableUTXO, PointKey(point, d.compact))
		if nil != err {
			return codeOf(err)
		}
		entry, err = UnpackEntry(value)
		if nil != err {
			return result.DBCorrupt
		}
		return result.Success
	})
	return entry, res
}

// GetLastHeight - height of the top header
func (d *Database) GetLastHeight() (uint32, result.Code) {
	return d.edgeHeight(TableBlockHeader, true)
}

// GetFirstReorgBlockHeight - lowest height with an archived block
func (d *Database) GetFirstReorgBlockHeight() (uint32, result.Code) {
	return d.edgeHeight(TableReorgBlock, false)
}

func (d *Database) edgeHeight(table string, last bool) (uint32, result.Code) {
	height := uint32(0)
	res := d.view(func(tx storage.Transaction) result.Code {
		cursor, err := tx.Cursor(table)
		if nil != err {
			return result.Other
		}
		defer cursor.Close()

		var key []byte
		if last {
			key, _ = cursor.Last()
		} else {
			key, _ = cursor.First()
		}
		if nil == key {
			return result.DBEmpty
		}
		h, ok := heightOf(key)
		if !ok {
			return result.DBCorrupt
		}
		height = h
		return result.Success
	})
	return height, res
}

// GetHeader - the header at height
func (d *Database) GetHeader(height uint32) (*chain.Header, result.Code) {
	if h, ok := d.headers.get(height); ok {
		return h, result.Success
	}
	var header *chain.Header
	res := d.view(func(tx storage.Transaction) result.Code {
		var res result.Code
		header, res = getHeader(tx, height)
		return res
	})
	if result.Success == res {
		d.headers.add(height, header)
	}
	return header, res
}

// GetHeaderByHash - the header with hash and its height
func (d *Database) GetHeaderByHash(hash merkle.Digest) (*chain.Header, uint32, result.Code) {
	var header *chain.Header
	height := uint32(0)
	res := d.view(func(tx storage.Transaction) result.Code {
		key, err := tx.Get(TableBlockHeaderByHash, hash[:])
		if nil != err {
			return codeOf(err)
		}
		h, ok := heightOf(key)
		if !ok {
			return result.DBCorrupt
		}
		height = h
		var res result.Code
		header, res = getHeader(tx, height)
		return res
	})
	return header, height, res
}

func getHeader(tx storage.Transaction, height uint32) (*chain.Header, result.Code) {
	value, err := tx.Get(TableBlockHeader, heightKey(height))
	if nil != err {
		return nil, codeOf(err)
	}
	header, err := chain.UnpackHeader(value)
	if nil != err {
		return nil, result.DBCorrupt
	}
	return header, result.Success
}

// GetBlockReorg - the archived block at height
func (d *Database) GetBlockReorg(height uint32) (*chain.Block, result.Code) {
	var block *chain.Block
	res := d.view(func(tx storage.Transaction) result.Code {
		value, err := tx.Get(TableReorgBlock, heightKey(height))
		if nil != err {
			return codeOf(err)
		}
		block, err = chain.UnpackBlock(value)
		if nil != err {
			return result.DBCorrupt
		}
		return result.Success
	})
	return block, res
}

// GetUTXOPoolFrom - archived outputs spent at heights from..to inclusive
func (d *Database) GetUTXOPoolFrom(from uint32, to uint32) (map[chain.Point]*Entry, result.Code) {
	pool := make(map[chain.Point]*Entry)
	res := d.view(func(tx storage.Transaction) result.Code {
		cursor, err := tx.Cursor(TableReorgIndex)
		if nil != err {
			return result.Other
		}
		defer cursor.Close()

		for k, v := cursor.SetRange(heightKey(from)); nil != k; k, v = cursor.Next() {
			h, ok := heightOf(k)
			if !ok {
				return result.DBCorrupt
			}
			if h > to {
				break
			}
			point, ok := pointFromKey(v)
			if !ok {
				return result.DBCorrupt
			}
			value, err := tx.Get(TableReorgPool, v)
			if nil != err {
				return codeOf(err)
			}
			entry, err := UnpackEntry(value)
			if nil != err {
				return result.DBCorrupt
			}
			pool[point] = entry
		}
		if 0 == len(pool) {
			return result.KeyNotFound
		}
		return result.Success
	})
	return pool, res
}
