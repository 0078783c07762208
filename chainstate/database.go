// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/chainstore/background"
	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/configuration"
	"github.com/bitmark-inc/chainstore/databases"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/store"
	"github.com/bitmark-inc/chainstore/utxo"
)

// number of reorganizations that can wait for the writer
const requestQueueSize = 16

// table - lifecycle shared by every mapped store
type table interface {
	Create() error
	Open() error
	Close() error
	Synchronize() error
	Flush() error
}

// Database - every store of one chain directory
type Database struct {
	writeLock sync.Mutex // serialises writers
	dirty     bool       // a write failed after changing the mapped stores

	log      *logger.L
	settings configuration.Settings
	store    *store.Store

	blocks       *databases.BlockDatabase
	transactions *databases.TransactionDatabase
	unconfirmed  *databases.UnconfirmedDatabase
	spends       *databases.SpendDatabase
	history      *databases.HistoryDatabase
	stealth      *databases.StealthDatabase
	utxo         *utxo.Database

	queueLock  sync.Mutex
	requests   chan func()
	processes  *background.T
	running    bool
	pruneEvery time.Duration
}

// New - a closed database built from settings
func New(settings configuration.Settings) (*Database, error) {
	if err := settings.Validate(); nil != err {
		return nil, err
	}

	s := store.New(settings.Directory, settings.FlushWrites)
	files := s.Files()
	growth := settings.FileGrowthRate

	u, err := utxo.New(files.UTXODirectory, utxo.Options{
		Engine:            settings.Engine,
		ReorgPoolLimit:    settings.ReorgPoolLimit,
		MinimumAge:        time.Duration(settings.ReorgMinimumAge) * time.Second,
		CompactPointIndex: settings.CompactPointIndex,
		HeaderCacheSize:   settings.HeaderCacheSize,
	})
	if nil != err {
		return nil, err
	}

	return &Database{
		log:          logger.New("chainstate"),
		settings:     settings,
		store:        s,
		blocks:       databases.NewBlockDatabase(files.BlockTable, files.BlockIndex, settings.BlockTableBuckets, growth),
		transactions: databases.NewTransactionDatabase(files.TransactionTable, settings.TransactionTableBuckets, growth, settings.CacheCapacity),
		unconfirmed:  databases.NewUnconfirmedDatabase(files.TransactionUnconfirmed, settings.TransactionUnconfirmedTableBuckets, growth),
		spends:       databases.NewSpendDatabase(files.SpendTable, settings.SpendTableBuckets, growth),
		history:      databases.NewHistoryDatabase(files.HistoryTable, files.HistoryRows, settings.HistoryTableBuckets, growth),
		stealth:      databases.NewStealthDatabase(files.StealthRows, growth),
		utxo:         u,
		pruneEvery:   defaultPruneInterval,
	}, nil
}

func (d *Database) tables() []table {
	return []table{
		d.blocks,
		d.transactions,
		d.unconfirmed,
		d.spends,
		d.history,
		d.stealth,
	}
}

// Create - initialise a new directory and store genesis at height zero
func (d *Database) Create(genesis *chain.Block) error {
	if err := d.store.Create(); nil != err {
		return err
	}
	if err := d.store.Open(); nil != err {
		return err
	}

	for _, t := range d.tables() {
		if err := t.Create(); nil != err {
			d.log.Errorf("create error: %s", err)
			d.abandon()
			return err
		}
	}
	if err := d.utxo.Create(); nil != err {
		d.log.Errorf("create unspent outputs error: %s", err)
		d.abandon()
		return err
	}

	d.start()

	if err := d.Push(genesis, 0); nil != err {
		d.log.Errorf("push genesis error: %s", err)
		d.Close()
		return err
	}
	d.log.Infof("created: %q  genesis: %s", d.settings.Directory, genesis.Hash())
	return nil
}

// Open - map an existing directory
func (d *Database) Open() error {
	if err := d.store.Open(); nil != err {
		return err
	}

	for _, t := range d.tables() {
		if err := t.Open(); nil != err {
			d.log.Errorf("open error: %s", err)
			d.abandon()
			return err
		}
	}
	if err := d.utxo.Open(); nil != err {
		d.log.Errorf("open unspent outputs error: %s", err)
		d.abandon()
		return err
	}

	d.start()

	top, _ := d.blocks.Top()
	d.log.Infof("opened: %q  top: %d", d.settings.Directory, top)
	return nil
}

// abandon - release everything after a failed Create or Open
func (d *Database) abandon() {
	for _, t := range d.tables() {
		t.Close()
	}
	d.utxo.Close()
	d.store.Close(nil)
}

func (d *Database) start() {
	d.queueLock.Lock()
	defer d.queueLock.Unlock()

	d.requests = make(chan func(), requestQueueSize)
	d.processes = background.Start(background.Processes{
		&writer{requests: d.requests},
		&pruner{database: d, interval: d.pruneEvery},
	}, d.log)
	d.running = true
}

// Close - finish queued work, flush and unmap everything
func (d *Database) Close() error {
	d.queueLock.Lock()
	running := d.running
	d.running = false
	d.queueLock.Unlock()

	if !running {
		return nil
	}
	d.processes.Stop()
	d.processes = nil

	d.writeLock.Lock()
	defer d.writeLock.Unlock()

	err := d.store.Close(d.flush)
	for _, t := range d.tables() {
		if e := t.Close(); nil != e && nil == err {
			err = e
		}
	}
	if e := d.utxo.Close(); nil != e && nil == err {
		err = e
	}
	if nil != err {
		d.log.Errorf("close error: %s", err)
		return err
	}
	d.log.Info("closed")
	return nil
}

// Flush - write every store to disk
func (d *Database) Flush() error {
	d.writeLock.Lock()
	defer d.writeLock.Unlock()

	if d.store.Closed() {
		return fault.ErrDatabaseIsClosed
	}
	return d.flush()
}

func (d *Database) flush() error {
	for _, t := range d.tables() {
		if err := t.Flush(); nil != err {
			return err
		}
	}
	return d.utxo.Sync()
}

// synchronize - publish record counts so readers see the write
func (d *Database) synchronize() error {
	for _, t := range d.tables() {
		if err := t.Synchronize(); nil != err {
			return err
		}
	}
	return nil
}

// write - run f as one write sequence, must not hold writeLock
func (d *Database) write(f func() error) error {
	d.writeLock.Lock()
	defer d.writeLock.Unlock()

	if d.store.Closed() {
		return fault.ErrDatabaseIsClosed
	}
	if err := d.store.BeginWrite(); nil != err {
		return err
	}
	err := f()
	if nil != err && d.dirty {
		d.log.Criticalf("write failed part way: %s", err)
		d.store.Fail()
		return err
	}
	if e := d.store.EndWrite(d.flush); nil == err {
		err = e
	}
	return err
}

// Settings - the settings the database was built with
func (d *Database) Settings() configuration.Settings {
	return d.settings
}

// Blocks - the block store
func (d *Database) Blocks() *databases.BlockDatabase {
	return d.blocks
}

// Transactions - the transaction store
func (d *Database) Transactions() *databases.TransactionDatabase {
	return d.transactions
}

// Unconfirmed - the transaction pool store
func (d *Database) Unconfirmed() *databases.UnconfirmedDatabase {
	return d.unconfirmed
}

// Spends - the spend index
func (d *Database) Spends() *databases.SpendDatabase {
	return d.spends
}

// History - the address history index
func (d *Database) History() *databases.HistoryDatabase {
	return d.history
}

// Stealth - the stealth index
func (d *Database) Stealth() *databases.StealthDatabase {
	return d.stealth
}

// UTXO - the unspent output set
func (d *Database) UTXO() *utxo.Database {
	return d.utxo
}

// BeginRead - start a read sequence
func (d *Database) BeginRead() store.Handle {
	return d.store.BeginRead()
}

// IsReadValid - true if no write started since BeginRead returned h
func (d *Database) IsReadValid(h store.Handle) bool {
	return d.store.IsReadValid(h)
}

// IsWriteLocked - true if h was taken during a write
func (d *Database) IsWriteLocked(h store.Handle) bool {
	return d.store.IsWriteLocked(h)
}

// Top - height of the highest stored block, false when empty
func (d *Database) Top() (uint32, bool) {
	return d.blocks.Top()
}
