// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package databases

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/memory"
	"github.com/bitmark-inc/chainstore/merkle"
	"github.com/bitmark-inc/chainstore/primitives"
)

const (
	stealthPrefixOffset    = 0
	stealthHeightOffset    = 4
	stealthEphemeralOffset = 8
	stealthAddressOffset   = stealthEphemeralOffset + chain.EphemeralKeySize
	stealthHashOffset      = stealthAddressOffset + chain.ShortHashSize
	stealthRowSize         = stealthHashOffset + merkle.DigestLength
)

// StealthRow - a payment that may be addressed to a stealth key
type StealthRow struct {
	Prefix       uint32
	Height       uint32
	EphemeralKey [chain.EphemeralKeySize]byte
	Address      chain.ShortHash
	Hash         merkle.Digest
}

// StealthFilter - matches the Bits most significant bits of a prefix
//
// zero bits matches every row
type StealthFilter struct {
	Prefix uint32
	Bits   uint8
}

// Matches - true if prefix starts with the filter bits
func (f StealthFilter) Matches(prefix uint32) bool {
	if 0 == f.Bits {
		return true
	}
	bits := uint(f.Bits)
	if bits > 32 {
		bits = 32
	}
	mask := ^uint32(0) << (32 - bits)
	return prefix&mask == f.Prefix&mask
}

// StealthDatabase - rows in the order they were added
type StealthDatabase struct {
	sync.RWMutex // row count

	log *logger.L

	file *memory.MappedFile
	rows *primitives.RecordManager
}

// NewStealthDatabase - a closed stealth store over an existing file
func NewStealthDatabase(filename string, expansion uint64) *StealthDatabase {
	file := memory.New(filename, expansion)
	return &StealthDatabase{
		log:  logger.New("databases"),
		file: file,
		rows: primitives.NewRecordManager(file, 0, stealthRowSize),
	}
}

// Create - initialise the file
func (s *StealthDatabase) Create() error {
	if err := s.file.Open(); nil != err {
		return err
	}
	return firstError(
		s.rows.Create,
		s.rows.Start,
	)
}

// Open - start from the stored row count
func (s *StealthDatabase) Open() error {
	if err := s.file.Open(); nil != err {
		return err
	}
	if err := s.rows.Start(); nil != err {
		s.log.Errorf("stealth open: error: %s", err)
		s.file.Close()
		return err
	}
	return nil
}

// Close - unmap the file
func (s *StealthDatabase) Close() error {
	return s.file.Close()
}

// Synchronize - persist the row count
func (s *StealthDatabase) Synchronize() error {
	return s.rows.Sync()
}

// Flush - write mapped pages to disk
func (s *StealthDatabase) Flush() error {
	return s.file.Flush()
}

// Store - append a row
func (s *StealthDatabase) Store(row StealthRow) error {
	s.Lock()
	defer s.Unlock()

	index, err := s.rows.NewRecords(1)
	if nil != err {
		return err
	}
	a, err := s.rows.Get(index)
	if nil != err {
		return err
	}
	defer a.Release()

	a.PutUint32(stealthPrefixOffset, row.Prefix)
	a.PutUint32(stealthHeightOffset, row.Height)
	copy(a.Slice(stealthEphemeralOffset, chain.EphemeralKeySize), row.EphemeralKey[:])
	copy(a.Slice(stealthAddressOffset, chain.ShortHashSize), row.Address[:])
	copy(a.Slice(stealthHashOffset, merkle.DigestLength), row.Hash[:])
	return nil
}

// Scan - rows at or above fromHeight that match filter, oldest first
func (s *StealthDatabase) Scan(filter StealthFilter, fromHeight uint32) ([]StealthRow, error) {
	s.RLock()
	defer s.RUnlock()

	result := []StealthRow{}
	count := s.rows.Count()
	for index := uint32(0); index < count; index += 1 {
		a, err := s.rows.Get(index)
		if nil != err {
			return nil, err
		}
		prefix := a.Uint32(stealthPrefixOffset)
		height := a.Uint32(stealthHeightOffset)
		if height < fromHeight || !filter.Matches(prefix) {
			a.Release()
			continue
		}
		row := StealthRow{
			Prefix: prefix,
			Height: height,
		}
		copy(row.EphemeralKey[:], a.Slice(stealthEphemeralOffset, chain.EphemeralKeySize))
		copy(row.Address[:], a.Slice(stealthAddressOffset, chain.ShortHashSize))
		copy(row.Hash[:], a.Slice(stealthHashOffset, merkle.DigestLength))
		a.Release()
		result = append(result, row)
	}
	return result, nil
}

// Unlink - drop the trailing rows at or above fromHeight
func (s *StealthDatabase) Unlink(fromHeight uint32) error {
	s.Lock()
	defer s.Unlock()

	count := s.rows.Count()
	for count > 0 {
		a, err := s.rows.Get(count - 1)
		if nil != err {
			return err
		}
		height := a.Uint32(stealthHeightOffset)
		a.Release()
		if height < fromHeight {
			break
		}
		count -= 1
	}
	return s.rows.SetCount(count)
}
