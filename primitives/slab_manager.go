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

const payloadSizeSize = 8

// SlabManager - variable size slab allocator
//
// layout from headerSize: [payload_size:8][slab][slab]...
// positions are relative to headerSize and include the size prefix, so
// the first slab is at 8; slabs are never freed
type SlabManager struct {
	sync.RWMutex

	file        *memory.MappedFile
	headerSize  uint64
	payloadSize uint64
}

// NewSlabManager - allocator for slabs starting after headerSize bytes
func NewSlabManager(file *memory.MappedFile, headerSize uint64) *SlabManager {
	return &SlabManager{
		file:        file,
		headerSize:  headerSize,
		payloadSize: payloadSizeSize,
	}
}

// Create - initialise an empty slab area in a new file
func (s *SlabManager) Create() error {
	s.Lock()
	defer s.Unlock()

	if payloadSizeSize != s.payloadSize {
		return fault.ErrAlreadyInitialised
	}

	a, err := s.file.Resize(s.headerSize + s.payloadSize)
	if nil != err {
		return err
	}
	a.PutUint64(int(s.headerSize), s.payloadSize)
	a.Release()
	return nil
}

// Start - load the stored payload size and check the file covers it
func (s *SlabManager) Start() error {
	s.Lock()
	defer s.Unlock()

	a, err := s.file.AccessRange(s.headerSize, payloadSizeSize)
	if nil != err {
		return fault.ErrFileTooSmall
	}
	s.payloadSize = a.Uint64(0)
	a.Release()

	if s.payloadSize < payloadSizeSize || s.headerSize+s.payloadSize > s.file.Size() {
		return fault.ErrFileTooSmall
	}
	return nil
}

// Sync - persist the payload size
func (s *SlabManager) Sync() error {
	s.Lock()
	defer s.Unlock()

	a, err := s.file.AccessRange(s.headerSize, payloadSizeSize)
	if nil != err {
		return err
	}
	a.PutUint64(0, s.payloadSize)
	a.Release()
	return nil
}

// PayloadSize - end of the last slab, relative to headerSize
func (s *SlabManager) PayloadSize() uint64 {
	s.RLock()
	defer s.RUnlock()

	return s.payloadSize
}

// NewSlab - allocate size bytes, returning the previous payload size
func (s *SlabManager) NewSlab(size uint64) (uint64, error) {
	s.Lock()
	defer s.Unlock()

	position := s.payloadSize

	a, err := s.file.Reserve(s.headerSize + position + size)
	if nil != err {
		return EmptySlab, err
	}
	a.Release()

	s.payloadSize += size
	return position, nil
}

// Get - shared view from a slab to the end of the mapping
func (s *SlabManager) Get(position uint64) (*memory.Accessor, error) {
	if position < payloadSizeSize || position >= s.PayloadSize() {
		return nil, fault.ErrOutOfRange
	}
	return s.file.AccessRange(s.headerSize+position, 0)
}
