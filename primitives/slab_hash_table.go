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

const slabNextSize = 8

// SlabHashTable - chained hash table of variable size slabs
//
// slab: [key][next:8][value]
//
// a new head is published before the payload size is synchronised, so
// a crash can lose the last write but never leaves a broken chain
type SlabHashTable struct {
	header  *BucketTable
	manager *SlabManager
	keySize int

	createLock sync.Mutex
	updateLock sync.RWMutex
}

// NewSlabHashTable - table over a slab bucket table and its manager
func NewSlabHashTable(header *BucketTable, manager *SlabManager, keySize int) *SlabHashTable {
	return &SlabHashTable{
		header:  header,
		manager: manager,
		keySize: keySize,
	}
}

// Store - add a slab of valueSize bytes for key, returning its position
func (h *SlabHashTable) Store(key []byte, valueSize int, write WriteFunc) (uint64, error) {
	if len(key) != h.keySize {
		return EmptySlab, fault.ErrInvalidKeyLength
	}

	position, err := h.manager.NewSlab(uint64(h.keySize + slabNextSize + valueSize))
	if nil != err {
		return EmptySlab, err
	}

	a, err := h.manager.Get(position)
	if nil != err {
		return EmptySlab, err
	}
	copy(a.Slice(0, h.keySize), key)
	write(a.Slice(h.keySize+slabNextSize, valueSize))
	a.Release()

	bucket := h.header.Bucket(key)

	h.createLock.Lock()
	defer h.createLock.Unlock()

	head, err := h.header.Read(bucket)
	if nil != err {
		return EmptySlab, err
	}
	if err := h.writeNext(position, head); nil != err {
		return EmptySlab, err
	}
	if err := h.header.Write(bucket, position); nil != err {
		return EmptySlab, err
	}
	return position, nil
}

// Update - overwrite part of an existing value in place
//
// the view passed to write extends to the end of the mapping; the writer
// must stay within the size the slab was stored with
func (h *SlabHashTable) Update(key []byte, write WriteFunc) error {
	h.updateLock.Lock()
	defer h.updateLock.Unlock()

	position, err := h.search(key)
	if nil != err {
		return err
	}
	a, err := h.manager.Get(position)
	if nil != err {
		return err
	}
	a.Restrict(h.keySize+slabNextSize, 0)
	write(a.Bytes())
	a.Release()
	return nil
}

// Find - shared view from the value stored for key to the end of the mapping
func (h *SlabHashTable) Find(key []byte) (*memory.Accessor, error) {
	if len(key) != h.keySize {
		return nil, fault.ErrInvalidKeyLength
	}

	position, err := h.header.Read(h.header.Bucket(key))
	if nil != err {
		return nil, err
	}

	for EmptySlab != position {
		h.updateLock.RLock()
		a, err := h.manager.Get(position)
		if nil != err {
			h.updateLock.RUnlock()
			return nil, err
		}
		if bytes.Equal(key, a.Slice(0, h.keySize)) {
			h.updateLock.RUnlock()
			a.Restrict(h.keySize+slabNextSize, 0)
			return a, nil
		}
		position = a.Uint64(h.keySize)
		a.Release()
		h.updateLock.RUnlock()
	}
	return nil, fault.ErrKeyNotFound
}

// Get - shared view from the value of the slab at position
func (h *SlabHashTable) Get(position uint64) (*memory.Accessor, error) {
	a, err := h.manager.Get(position)
	if nil != err {
		return nil, err
	}
	a.Restrict(h.keySize+slabNextSize, 0)
	return a, nil
}

// Unlink - remove key from its chain, false if not present
func (h *SlabHashTable) Unlink(key []byte) (bool, error) {
	if len(key) != h.keySize {
		return false, fault.ErrInvalidKeyLength
	}

	h.createLock.Lock()
	defer h.createLock.Unlock()
	h.updateLock.Lock()
	defer h.updateLock.Unlock()

	bucket := h.header.Bucket(key)
	position, err := h.header.Read(bucket)
	if nil != err {
		return false, err
	}

	previous := EmptySlab
	for EmptySlab != position {
		found, next, err := h.compare(position, key)
		if nil != err {
			return false, err
		}
		if found {
			if EmptySlab == previous {
				err = h.header.Write(bucket, next)
			} else {
				err = h.writeNext(previous, next)
			}
			return nil == err, err
		}
		previous = position
		position = next
	}
	return false, nil
}

// ForEach - visit the position of every linked slab, bucket by bucket
//
// positions are collected under the update lock and the callback runs
// without any table lock held; stop early by returning false
func (h *SlabHashTable) ForEach(fn func(key []byte, position uint64) bool) error {
	type node struct {
		key      []byte
		position uint64
	}
	nodes := make([]node, 0, 64)

	h.updateLock.RLock()
	for bucket := uint64(0); bucket < h.header.Size(); bucket += 1 {
		position, err := h.header.Read(bucket)
		if nil != err {
			h.updateLock.RUnlock()
			return err
		}
		for EmptySlab != position {
			a, err := h.manager.Get(position)
			if nil != err {
				h.updateLock.RUnlock()
				return err
			}
			key := make([]byte, h.keySize)
			copy(key, a.Slice(0, h.keySize))
			nodes = append(nodes, node{key: key, position: position})
			position = a.Uint64(h.keySize)
			a.Release()
		}
	}
	h.updateLock.RUnlock()

	for _, n := range nodes {
		if !fn(n.key, n.position) {
			break
		}
	}
	return nil
}

func (h *SlabHashTable) search(key []byte) (uint64, error) {
	if len(key) != h.keySize {
		return EmptySlab, fault.ErrInvalidKeyLength
	}
	position, err := h.header.Read(h.header.Bucket(key))
	if nil != err {
		return EmptySlab, err
	}
	for EmptySlab != position {
		found, next, err := h.compare(position, key)
		if nil != err {
			return EmptySlab, err
		}
		if found {
			return position, nil
		}
		position = next
	}
	return EmptySlab, fault.ErrKeyNotFound
}

func (h *SlabHashTable) compare(position uint64, key []byte) (bool, uint64, error) {
	a, err := h.manager.Get(position)
	if nil != err {
		return false, EmptySlab, err
	}
	defer a.Release()
	return bytes.Equal(key, a.Slice(0, h.keySize)), a.Uint64(h.keySize), nil
}

func (h *SlabHashTable) writeNext(position uint64, next uint64) error {
	a, err := h.manager.Get(position)
	if nil != err {
		return err
	}
	a.PutUint64(h.keySize, next)
	a.Release()
	return nil
}
