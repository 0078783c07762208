// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package databases

import (
	"encoding/binary"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/memory"
	"github.com/bitmark-inc/chainstore/merkle"
	"github.com/bitmark-inc/chainstore/primitives"
)

const unconfirmedArrivalSize = 4

// UnconfirmedResult - a pool transaction and when it arrived
type UnconfirmedResult struct {
	Hash        merkle.Digest
	ArrivalTime uint32 // unix seconds
	Transaction *chain.Transaction
}

// UnconfirmedDatabase - pool transactions by hash
type UnconfirmedDatabase struct {
	log *logger.L

	file    *memory.MappedFile
	header  *primitives.BucketTable
	manager *primitives.SlabManager
	lookup  *primitives.SlabHashTable
	now     func() time.Time
}

// NewUnconfirmedDatabase - a closed pool store over an existing file
func NewUnconfirmedDatabase(filename string, buckets uint32, expansion uint64) *UnconfirmedDatabase {
	file := memory.New(filename, expansion)
	header := primitives.NewSlabBucketTable(file, buckets)
	manager := primitives.NewSlabManager(file, header.HeaderSize())
	return &UnconfirmedDatabase{
		log:     logger.New("databases"),
		file:    file,
		header:  header,
		manager: manager,
		lookup:  primitives.NewSlabHashTable(header, manager, merkle.DigestLength),
		now:     time.Now,
	}
}

// Create - initialise the file
func (u *UnconfirmedDatabase) Create() error {
	if err := u.file.Open(); nil != err {
		return err
	}
	return firstError(
		u.header.Create,
		u.manager.Create,
		u.start,
	)
}

// Open - start from the stored header
func (u *UnconfirmedDatabase) Open() error {
	if err := u.file.Open(); nil != err {
		return err
	}
	if err := u.start(); nil != err {
		u.log.Errorf("unconfirmed open: error: %s", err)
		u.file.Close()
		return err
	}
	return nil
}

func (u *UnconfirmedDatabase) start() error {
	return firstError(
		u.header.Start,
		u.manager.Start,
	)
}

// Close - unmap the file
func (u *UnconfirmedDatabase) Close() error {
	return u.file.Close()
}

// Synchronize - persist the payload size
func (u *UnconfirmedDatabase) Synchronize() error {
	return u.manager.Sync()
}

// Flush - write mapped pages to disk
func (u *UnconfirmedDatabase) Flush() error {
	return u.file.Flush()
}

// Store - add tx stamped with the current time
func (u *UnconfirmedDatabase) Store(tx *chain.Transaction) error {
	hash := tx.Hash()
	packed := tx.Pack()
	arrival := uint32(u.now().Unix())

	_, err := u.lookup.Store(hash[:], unconfirmedArrivalSize+len(packed), func(value []byte) {
		binary.LittleEndian.PutUint32(value, arrival)
		copy(value[unconfirmedArrivalSize:], packed)
	})
	return err
}

// Get - the pool transaction with hash
func (u *UnconfirmedDatabase) Get(hash merkle.Digest) (*UnconfirmedResult, error) {
	a, err := u.lookup.Find(hash[:])
	if nil != err {
		return nil, err
	}
	defer a.Release()
	return decodeUnconfirmed(hash, a.Bytes())
}

func decodeUnconfirmed(hash merkle.Digest, value []byte) (*UnconfirmedResult, error) {
	if len(value) < unconfirmedArrivalSize {
		return nil, fault.ErrDatabaseCorrupt
	}
	tx, _, err := chain.UnpackTransaction(value[unconfirmedArrivalSize:])
	if nil != err {
		return nil, fault.ErrDatabaseCorrupt
	}
	return &UnconfirmedResult{
		Hash:        hash,
		ArrivalTime: binary.LittleEndian.Uint32(value),
		Transaction: tx,
	}, nil
}

// Unlink - remove the transaction with hash, false if it is not pooled
func (u *UnconfirmedDatabase) Unlink(hash merkle.Digest) (bool, error) {
	return u.lookup.Unlink(hash[:])
}

// UnlinkIfExists - remove the transaction with hash if it is pooled
func (u *UnconfirmedDatabase) UnlinkIfExists(hash merkle.Digest) error {
	_, err := u.lookup.Unlink(hash[:])
	return err
}

// ForEach - visit every pooled transaction until fn returns false
func (u *UnconfirmedDatabase) ForEach(fn func(*UnconfirmedResult) bool) error {
	var visitErr error
	err := u.lookup.ForEach(func(key []byte, position uint64) bool {
		a, err := u.lookup.Get(position)
		if nil != err {
			visitErr = err
			return false
		}
		var hash merkle.Digest
		copy(hash[:], key)
		result, err := decodeUnconfirmed(hash, a.Bytes())
		a.Release()
		if nil != err {
			visitErr = err
			return false
		}
		return fn(result)
	})
	if nil != err {
		return err
	}
	return visitErr
}
