// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package databases

import (
	"encoding/binary"
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/memory"
	"github.com/bitmark-inc/chainstore/merkle"
	"github.com/bitmark-inc/chainstore/primitives"
)

// sentinels stored in transaction metadata
const (
	Unconfirmed = uint32(0xffffffff) // position of a pool transaction
	NotSpent    = uint32(0xffffffff) // spender height of an unspent output

	// height written when a transaction returns to the pool
	unverifiedHeight = uint32(1 << 31)
)

const (
	txHeightOffset   = 0
	txPositionOffset = 4
	txMTPOffset      = 8
	txOutputsOffset  = 12
	txSpendersOffset = 16
	spenderSize      = 4
)

// TransactionResult - a stored transaction and its metadata
type TransactionResult struct {
	Hash           merkle.Digest
	Height         uint32
	Position       uint32
	MedianTimePast uint32
	Transaction    *chain.Transaction
	Spenders       []uint32
}

// Confirmed - false for a pool transaction
func (r *TransactionResult) Confirmed() bool {
	return Unconfirmed != r.Position
}

// TransactionDatabase - transactions by hash
type TransactionDatabase struct {
	metadata sync.RWMutex // height, position and median time past

	log *logger.L

	file    *memory.MappedFile
	header  *primitives.BucketTable
	manager *primitives.SlabManager
	lookup  *primitives.SlabHashTable
	cache   *OutputCache
}

// NewTransactionDatabase - a closed transaction store over an existing file
func NewTransactionDatabase(filename string, buckets uint32, expansion uint64, cacheCapacity int) *TransactionDatabase {
	file := memory.New(filename, expansion)
	header := primitives.NewSlabBucketTable(file, buckets)
	manager := primitives.NewSlabManager(file, header.HeaderSize())
	return &TransactionDatabase{
		log:     logger.New("databases"),
		file:    file,
		header:  header,
		manager: manager,
		lookup:  primitives.NewSlabHashTable(header, manager, merkle.DigestLength),
		cache:   NewOutputCache(cacheCapacity),
	}
}

// Create - initialise the file
func (t *TransactionDatabase) Create() error {
	if err := t.file.Open(); nil != err {
		return err
	}
	return firstError(
		t.header.Create,
		t.manager.Create,
		t.start,
	)
}

// Open - start from the stored header
func (t *TransactionDatabase) Open() error {
	if err := t.file.Open(); nil != err {
		return err
	}
	if err := t.start(); nil != err {
		t.log.Errorf("transaction open: error: %s", err)
		t.file.Close()
		return err
	}
	return nil
}

func (t *TransactionDatabase) start() error {
	return firstError(
		t.header.Start,
		t.manager.Start,
	)
}

// Close - unmap the file
func (t *TransactionDatabase) Close() error {
	return t.file.Close()
}

// Synchronize - persist the payload size
func (t *TransactionDatabase) Synchronize() error {
	return t.manager.Sync()
}

// Flush - write mapped pages to disk
func (t *TransactionDatabase) Flush() error {
	return t.file.Flush()
}

// Cache - the output cache
func (t *TransactionDatabase) Cache() *OutputCache {
	return t.cache
}

// Store - add a transaction, or confirm it when it is already pooled
func (t *TransactionDatabase) Store(tx *chain.Transaction, height uint32, medianTimePast uint32, position uint32) error {
	hash := tx.Hash()

	if Unconfirmed != position {
		if existing, err := t.Get(hash, height, false); nil == err && !existing.Confirmed() {
			if err := t.Confirm(hash, height, medianTimePast, position); nil != err {
				return err
			}
			t.cache.Add(tx, height, medianTimePast, true)
			return nil
		}
	}

	packed := tx.Pack()
	outputs := len(tx.Outputs)
	size := txSpendersOffset + outputs*spenderSize + len(packed)

	write := func(value []byte) {
		t.metadata.Lock()
		binary.LittleEndian.PutUint32(value[txHeightOffset:], height)
		binary.LittleEndian.PutUint32(value[txPositionOffset:], position)
		binary.LittleEndian.PutUint32(value[txMTPOffset:], medianTimePast)
		t.metadata.Unlock()
		binary.LittleEndian.PutUint32(value[txOutputsOffset:], uint32(outputs))
		for i := 0; i < outputs; i += 1 {
			binary.LittleEndian.PutUint32(value[txSpendersOffset+i*spenderSize:], NotSpent)
		}
		copy(value[txSpendersOffset+outputs*spenderSize:], packed)
	}

	if _, err := t.lookup.Store(hash[:], size, write); nil != err {
		return err
	}
	t.cache.Add(tx, height, medianTimePast, Unconfirmed != position)
	return nil
}

type metadata struct {
	height         uint32
	position       uint32
	medianTimePast uint32
}

func (t *TransactionDatabase) readMetadata(value []byte) metadata {
	t.metadata.RLock()
	defer t.metadata.RUnlock()
	return metadata{
		height:         binary.LittleEndian.Uint32(value[txHeightOffset:]),
		position:       binary.LittleEndian.Uint32(value[txPositionOffset:]),
		medianTimePast: binary.LittleEndian.Uint32(value[txMTPOffset:]),
	}
}

// find - the value of hash, hidden when confirmation is required and it
// is unconfirmed or confirmed above the fork height
func (t *TransactionDatabase) find(hash merkle.Digest, forkHeight uint32, requireConfirmed bool) (*memory.Accessor, metadata, error) {
	a, err := t.lookup.Find(hash[:])
	if nil != err {
		return nil, metadata{}, err
	}
	if a.Len() < txSpendersOffset {
		a.Release()
		return nil, metadata{}, fault.ErrDatabaseCorrupt
	}
	m := t.readMetadata(a.Bytes())
	if !visible(Unconfirmed != m.position, m.height, forkHeight, requireConfirmed) {
		a.Release()
		return nil, metadata{}, fault.ErrKeyNotFound
	}
	return a, m, nil
}

// Get - the transaction with hash
func (t *TransactionDatabase) Get(hash merkle.Digest, forkHeight uint32, requireConfirmed bool) (*TransactionResult, error) {
	a, m, err := t.find(hash, forkHeight, requireConfirmed)
	if nil != err {
		return nil, err
	}
	defer a.Release()

	value := a.Bytes()
	outputs := int(binary.LittleEndian.Uint32(value[txOutputsOffset:]))
	start := txSpendersOffset + outputs*spenderSize
	if outputs < 0 || start > len(value) {
		return nil, fault.ErrDatabaseCorrupt
	}
	tx, _, err := chain.UnpackTransaction(value[start:])
	if nil != err {
		return nil, fault.ErrDatabaseCorrupt
	}

	spenders := make([]uint32, outputs)
	for i := range spenders {
		spenders[i] = binary.LittleEndian.Uint32(value[txSpendersOffset+i*spenderSize:])
	}
	return &TransactionResult{
		Hash:           hash,
		Height:         m.height,
		Position:       m.position,
		MedianTimePast: m.medianTimePast,
		Transaction:    tx,
		Spenders:       spenders,
	}, nil
}

// GetOutput - the output at point with its transaction metadata
func (t *TransactionDatabase) GetOutput(point chain.Point, forkHeight uint32, requireConfirmed bool) (*OutputResult, error) {
	if cached, ok := t.cache.Get(point, forkHeight, requireConfirmed); ok {
		return cached, nil
	}
	r, err := t.Get(point.Hash, forkHeight, requireConfirmed)
	if nil != err {
		return nil, err
	}
	output, err := r.Transaction.Output(point.Index)
	if nil != err {
		return nil, err
	}
	return &OutputResult{
		Output:         output,
		Height:         r.Height,
		MedianTimePast: r.MedianTimePast,
		Coinbase:       0 == r.Position,
		Confirmed:      r.Confirmed(),
	}, nil
}

// Spend - record the height of the block spending the output at point
func (t *TransactionDatabase) Spend(point chain.Point, spenderHeight uint32) error {
	if NotSpent != spenderHeight {
		t.cache.Remove(point)
	}

	a, _, err := t.find(point.Hash, 0, false)
	if nil != err {
		return err
	}
	outputs := a.Uint32(txOutputsOffset)
	a.Release()
	if point.Index >= outputs {
		return fault.ErrKeyNotFound
	}

	offset := txSpendersOffset + int(point.Index)*spenderSize
	return t.lookup.Update(point.Hash[:], func(value []byte) {
		binary.LittleEndian.PutUint32(value[offset:], spenderHeight)
	})
}

// Unspend - mark the output at point as not spent
func (t *TransactionDatabase) Unspend(point chain.Point) error {
	return t.Spend(point, NotSpent)
}

// Confirm - set the block metadata of a stored transaction
func (t *TransactionDatabase) Confirm(hash merkle.Digest, height uint32, medianTimePast uint32, position uint32) error {
	a, _, err := t.find(hash, height, false)
	if nil != err {
		return err
	}
	a.Release()

	return t.lookup.Update(hash[:], func(value []byte) {
		t.metadata.Lock()
		binary.LittleEndian.PutUint32(value[txHeightOffset:], height)
		binary.LittleEndian.PutUint32(value[txPositionOffset:], position)
		binary.LittleEndian.PutUint32(value[txMTPOffset:], medianTimePast)
		t.metadata.Unlock()
	})
}

// Unconfirm - return a transaction to the pool
func (t *TransactionDatabase) Unconfirm(hash merkle.Digest) error {
	t.cache.RemoveTransaction(hash)
	return t.Confirm(hash, unverifiedHeight, 0, Unconfirmed)
}
