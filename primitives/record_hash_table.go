// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package primitives

import (
	"bytes"
	"sync"

	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/memory"
)

const recordNextSize = 4

// WriteFunc - fills a value region in place
type WriteFunc func(value []byte)

// RecordHashTable - chained hash table of fixed size records
//
// record: [key][next:4][value]
type RecordHashTable struct {
	header  *BucketTable
	manager *RecordManager
	keySize int

	createLock sync.Mutex
	updateLock sync.RWMutex
}

// NewRecordHashTable - table over a record bucket table and its manager
func NewRecordHashTable(header *BucketTable, manager *RecordManager, keySize int) *RecordHashTable {
	return &RecordHashTable{
		header:  header,
		manager: manager,
		keySize: keySize,
	}
}

// RecordSize - record size for a key and value size
func RecordSize(keySize int, valueSize int) uint64 {
	return uint64(keySize + recordNextSize + valueSize)
}

// ValueSize - bytes available to the value of each record
func (h *RecordHashTable) ValueSize() int {
	return int(h.manager.RecordSize()) - h.keySize - recordNextSize
}

// Store - add a new record and publish it as its bucket's head
//
// the key is not checked for duplicates; the newest record shadows
// older ones with the same key
func (h *RecordHashTable) Store(key []byte, write WriteFunc) (uint32, error) {
	if len(key) != h.keySize {
		return EmptyRecord, fault.ErrInvalidKeyLength
	}

	index, err := h.manager.NewRecords(1)
	if nil != err {
		return EmptyRecord, err
	}

	a, err := h.manager.Get(index)
	if nil != err {
		return EmptyRecord, err
	}
	copy(a.Slice(0, h.keySize), key)
	write(a.Slice(h.keySize+recordNextSize, h.ValueSize()))
	a.Release()

	bucket := h.header.Bucket(key)

	h.createLock.Lock()
	defer h.createLock.Unlock()

	head, err := h.header.Read(bucket)
	if nil != err {
		return EmptyRecord, err
	}
	if err := h.writeNext(index, uint32(head)); nil != err {
		return EmptyRecord, err
	}
	if err := h.header.Write(bucket, uint64(index)); nil != err {
		return EmptyRecord, err
	}
	return index, nil
}

// Update - overwrite the value of an existing key in place
func (h *RecordHashTable) Update(key []byte, write WriteFunc) error {
	h.updateLock.Lock()
	defer h.updateLock.Unlock()

	index, err := h.search(key)
	if nil != err {
		return err
	}
	a, err := h.manager.Get(index)
	if nil != err {
		return err
	}
	write(a.Slice(h.keySize+recordNextSize, h.ValueSize()))
	a.Release()
	return nil
}

// Find - shared view of the value stored for key
//
// returns fault.ErrKeyNotFound when absent; the accessor must be
// released before the table is used again
func (h *RecordHashTable) Find(key []byte) (*memory.Accessor, error) {
	if len(key) != h.keySize {
		return nil, fault.ErrInvalidKeyLength
	}

	head, err := h.header.Read(h.header.Bucket(key))
	if nil != err {
		return nil, err
	}

	index := uint32(head)
	for EmptyRecord != index {
		h.updateLock.RLock()
		a, err := h.manager.Get(index)
		if nil != err {
			h.updateLock.RUnlock()
			return nil, err
		}
		if bytes.Equal(key, a.Slice(0, h.keySize)) {
			h.updateLock.RUnlock()
			a.Restrict(h.keySize+recordNextSize, h.ValueSize())
			return a, nil
		}
		index = a.Uint32(h.keySize)
		a.Release()
		h.updateLock.RUnlock()
	}
	return nil, fault.ErrKeyNotFound
}

// Unlink - remove key from its chain, false if not present
func (h *RecordHashTable) Unlink(key []byte) (bool, error) {
	if len(key) != h.keySize {
		return false, fault.ErrInvalidKeyLength
	}

	h.createLock.Lock()
	defer h.createLock.Unlock()
	h.updateLock.Lock()
	defer h.updateLock.Unlock()

	bucket := h.header.Bucket(key)
	head, err := h.header.Read(bucket)
	if nil != err {
		return false, err
	}

	previous := EmptyRecord
	index := uint32(head)
	for EmptyRecord != index {
		found, next, err := h.compare(index, key)
		if nil != err {
			return false, err
		}
		if found {
			if EmptyRecord == previous {
				err = h.header.Write(bucket, uint64(next))
			} else {
				err = h.writeNext(previous, next)
			}
			return nil == err, err
		}
		previous = index
		index = next
	}
	return false, nil
}

// search - index of the record holding key, caller holds the update lock
func (h *RecordHashTable) search(key []byte) (uint32, error) {
	if len(key) != h.keySize {
		return EmptyRecord, fault.ErrInvalidKeyLength
	}
	head, err := h.header.Read(h.header.Bucket(key))
	if nil != err {
		return EmptyRecord, err
	}
	index := uint32(head)
	for EmptyRecord != index {
		found, next, err := h.compare(index, key)
		if nil != err {
			return EmptyRecord, err
		}
		if found {
			return index, nil
		}
		index = next
	}
	return EmptyRecord, fault.ErrKeyNotFound
}

func (h *RecordHashTable) compare(index uint32, key []byte) (bool, uint32, error) {
	a, err := h.manager.Get(index)
	if nil != err {
		return false, EmptyRecord, err
	}
	defer a.Release()
	return bytes.Equal(key, a.Slice(0, h.keySize)), a.Uint32(h.keySize), nil
}

func (h *RecordHashTable) writeNext(index uint32, next uint32) error {
	a, err := h.manager.Get(index)
	if nil != err {
		return err
	}
	a.PutUint32(h.keySize, next)
	a.Release()
	return nil
}
