// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package primitives

import (
	"sync"

	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/memory"
)

const recordCountSize = 4

// RecordManager - fixed size record allocator
//
// layout from headerSize: [count:4][record_0][record_1]...
type RecordManager struct {
	sync.RWMutex

	file       *memory.MappedFile
	headerSize uint64
	recordSize uint64
	count      uint32
}

// NewRecordManager - allocator for records starting after headerSize bytes
func NewRecordManager(file *memory.MappedFile, headerSize uint64, recordSize uint64) *RecordManager {
	return &RecordManager{
		file:       file,
		headerSize: headerSize,
		recordSize: recordSize,
	}
}

// Create - initialise an empty record area in a new file
func (r *RecordManager) Create() error {
	r.Lock()
	defer r.Unlock()

	if 0 != r.count {
		return fault.ErrAlreadyInitialised
	}

	a, err := r.file.Resize(r.headerSize + r.position(0))
	if nil != err {
		return err
	}
	a.PutUint32(int(r.headerSize), r.count)
	a.Release()
	return nil
}

// Start - load the stored count and check the file covers it
func (r *RecordManager) Start() error {
	r.Lock()
	defer r.Unlock()

	a, err := r.file.AccessRange(r.headerSize, recordCountSize)
	if nil != err {
		return fault.ErrFileTooSmall
	}
	r.count = a.Uint32(0)
	a.Release()

	if r.headerSize+r.position(r.count) > r.file.Size() {
		return fault.ErrFileTooSmall
	}
	return nil
}

// Sync - persist the count
func (r *RecordManager) Sync() error {
	r.Lock()
	defer r.Unlock()

	return r.writeCount()
}

// Count - number of allocated records
func (r *RecordManager) Count() uint32 {
	r.RLock()
	defer r.RUnlock()

	return r.count
}

// SetCount - truncate to fewer records, only persisted by Sync
func (r *RecordManager) SetCount(count uint32) error {
	r.Lock()
	defer r.Unlock()

	if count > r.count {
		return fault.ErrInvalidCount
	}
	r.count = count
	return nil
}

// NewRecords - allocate n records, returning the index of the first
func (r *RecordManager) NewRecords(n uint32) (uint32, error) {
	r.Lock()
	defer r.Unlock()

	first := r.count
	required := r.headerSize + r.position(first+n)

	a, err := r.file.Reserve(required)
	if nil != err {
		return EmptyRecord, err
	}
	a.Release()

	r.count += n
	return first, nil
}

// Get - shared view of one record
//
// an index at or past the count can still be within the file when a
// block was popped between a reader's guard and this read; the read is
// invalidated by the sequential lock
func (r *RecordManager) Get(index uint32) (*memory.Accessor, error) {
	return r.file.AccessRange(r.headerSize+r.position(index), r.recordSize)
}

// RecordSize - bytes per record
func (r *RecordManager) RecordSize() uint64 {
	return r.recordSize
}

func (r *RecordManager) position(index uint32) uint64 {
	return recordCountSize + uint64(index)*r.recordSize
}

// writeCount - must hold the lock
func (r *RecordManager) writeCount() error {
	a, err := r.file.AccessRange(r.headerSize, recordCountSize)
	if nil != err {
		return err
	}
	a.PutUint32(0, r.count)
	a.Release()
	return nil
}
