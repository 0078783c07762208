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

// sentinels for an empty bucket or the end of a chain
const (
	EmptyRecord = uint32(0xffffffff)
	EmptySlab   = uint64(0xffffffffffffffff)
)

const bucketCountSize = 4

// BucketTable - the array of chain heads at the start of an index file
type BucketTable struct {
	sync.RWMutex

	file    *memory.MappedFile
	buckets uint32
	width   uint64
	empty   uint64
}

// NewRecordBucketTable - buckets holding 4 byte record indexes
func NewRecordBucketTable(file *memory.MappedFile, buckets uint32) *BucketTable {
	return &BucketTable{
		file:    file,
		buckets: buckets,
		width:   4,
		empty:   uint64(EmptyRecord),
	}
}

// NewSlabBucketTable - buckets holding 8 byte slab positions
func NewSlabBucketTable(file *memory.MappedFile, buckets uint32) *BucketTable {
	return &BucketTable{
		file:    file,
		buckets: buckets,
		width:   8,
		empty:   EmptySlab,
	}
}

// Create - size the file for the table and mark every bucket empty
func (t *BucketTable) Create() error {
	if 0 == t.buckets {
		return fault.ErrInvalidBucketCount
	}

	t.Lock()
	defer t.Unlock()

	a, err := t.file.Resize(t.HeaderSize())
	if nil != err {
		return err
	}
	defer a.Release()

	a.PutUint32(0, t.buckets)
	buf := a.Slice(bucketCountSize, int(t.HeaderSize())-bucketCountSize)
	for i := range buf {
		buf[i] = 0xff
	}
	return nil
}

// Start - check the stored bucket count matches
func (t *BucketTable) Start() error {
	t.Lock()
	defer t.Unlock()

	if t.file.Size() < bucketCountSize {
		return fault.ErrFileTooSmall
	}

	a, err := t.file.AccessRange(0, bucketCountSize)
	if nil != err {
		return err
	}
	stored := a.Uint32(0)
	a.Release()

	if stored != t.buckets {
		return fault.ErrBucketCountMismatch
	}
	if t.file.Size() < t.HeaderSize() {
		return fault.ErrFileTooSmall
	}
	return nil
}

// Read - the chain head stored in a bucket
func (t *BucketTable) Read(index uint64) (uint64, error) {
	if index >= uint64(t.buckets) {
		return t.empty, fault.ErrOutOfRange
	}

	t.RLock()
	defer t.RUnlock()

	a, err := t.file.AccessRange(t.position(index), t.width)
	if nil != err {
		return t.empty, err
	}
	defer a.Release()

	if 4 == t.width {
		return uint64(a.Uint32(0)), nil
	}
	return a.Uint64(0), nil
}

// Write - replace the chain head of a bucket
func (t *BucketTable) Write(index uint64, value uint64) error {
	if index >= uint64(t.buckets) {
		return fault.ErrOutOfRange
	}

	t.Lock()
	defer t.Unlock()

	a, err := t.file.AccessRange(t.position(index), t.width)
	if nil != err {
		return err
	}
	defer a.Release()

	if 4 == t.width {
		a.PutUint32(0, uint32(value))
	} else {
		a.PutUint64(0, value)
	}
	return nil
}

// Size - the bucket count
func (t *BucketTable) Size() uint64 {
	return uint64(t.buckets)
}

// Empty - the sentinel for this bucket width
func (t *BucketTable) Empty() uint64 {
	return t.empty
}

// HeaderSize - bytes used by the count and the buckets
func (t *BucketTable) HeaderSize() uint64 {
	return bucketCountSize + uint64(t.buckets)*t.width
}

// Bucket - the bucket a key hashes to
func (t *BucketTable) Bucket(key []byte) uint64 {
	return bucketIndex(key, uint64(t.buckets))
}

func (t *BucketTable) position(index uint64) uint64 {
	return bucketCountSize + index*t.width
}
