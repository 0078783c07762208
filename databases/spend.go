// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package databases

import (
	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/memory"
	"github.com/bitmark-inc/chainstore/primitives"
)

// Statistics - occupancy of a hash table
type Statistics struct {
	Buckets uint64
	Rows    uint32
}

// SpendDatabase - the input spending each output
type SpendDatabase struct {
	log *logger.L

	file    *memory.MappedFile
	header  *primitives.BucketTable
	manager *primitives.RecordManager
	lookup  *primitives.RecordHashTable
}

// NewSpendDatabase - a closed spend store over an existing file
func NewSpendDatabase(filename string, buckets uint32, expansion uint64) *SpendDatabase {
	file := memory.New(filename, expansion)
	header := primitives.NewRecordBucketTable(file, buckets)
	manager := primitives.NewRecordManager(file, header.HeaderSize(), primitives.RecordSize(chain.PointSize, chain.PointSize))
	return &SpendDatabase{
		log:     logger.New("databases"),
		file:    file,
		header:  header,
		manager: manager,
		lookup:  primitives.NewRecordHashTable(header, manager, chain.PointSize),
	}
}

// Create - initialise the file
func (s *SpendDatabase) Create() error {
	if err := s.file.Open(); nil != err {
		return err
	}
	return firstError(
		s.header.Create,
		s.manager.Create,
		s.start,
	)
}

// Open - start from the stored header
func (s *SpendDatabase) Open() error {
	if err := s.file.Open(); nil != err {
		return err
	}
	if err := s.start(); nil != err {
		s.log.Errorf("spend open: error: %s", err)
		s.file.Close()
		return err
	}
	return nil
}

func (s *SpendDatabase) start() error {
	return firstError(
		s.header.Start,
		s.manager.Start,
	)
}

// Close - unmap the file
func (s *SpendDatabase) Close() error {
	return s.file.Close()
}

// Synchronize - persist the record count
func (s *SpendDatabase) Synchronize() error {
	return s.manager.Sync()
}

// Flush - write mapped pages to disk
func (s *SpendDatabase) Flush() error {
	return s.file.Flush()
}

// Store - record that outpoint is spent by inpoint
func (s *SpendDatabase) Store(outpoint chain.Point, inpoint chain.Point) error {
	packed := inpoint.Pack()
	_, err := s.lookup.Store(outpoint.Pack(), func(value []byte) {
		copy(value, packed)
	})
	return err
}

// Get - the input spending outpoint
func (s *SpendDatabase) Get(outpoint chain.Point) (chain.Point, error) {
	a, err := s.lookup.Find(outpoint.Pack())
	if nil != err {
		return chain.NullPoint(), err
	}
	defer a.Release()

	inpoint, err := chain.UnpackPoint(a.Bytes())
	if nil != err {
		return chain.NullPoint(), fault.ErrDatabaseCorrupt
	}
	return inpoint, nil
}

// Unlink - forget the spend of outpoint, false if none was stored
func (s *SpendDatabase) Unlink(outpoint chain.Point) (bool, error) {
	return s.lookup.Unlink(outpoint.Pack())
}

// Statistics - buckets and records in use
func (s *SpendDatabase) Statistics() Statistics {
	return Statistics{
		Buckets: s.header.Size(),
		Rows:    s.manager.Count(),
	}
}
