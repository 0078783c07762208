// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package databases

import (
	"encoding/binary"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/memory"
	"github.com/bitmark-inc/chainstore/merkle"
	"github.com/bitmark-inc/chainstore/primitives"
)

// HistoryKind - what a history row records
type HistoryKind uint8

// kinds of history row
const (
	HistoryOutput HistoryKind = 0 // value is the amount received
	HistoryInput  HistoryKind = 1 // value is the checksum of the spent output
)

const (
	historyKindOffset   = 0
	historyPointOffset  = 1
	historyHeightOffset = historyPointOffset + chain.PointSize
	historyValueOffset  = historyHeightOffset + 4
	historyRowSize      = historyValueOffset + 8
)

// HistoryRow - one payment to or from an address
type HistoryRow struct {
	Kind   HistoryKind
	Point  chain.Point
	Height uint32
	Value  uint64
}

// HistoryDatabase - rows per address hash, newest first
type HistoryDatabase struct {
	log *logger.L

	tableFile *memory.MappedFile
	rowsFile  *memory.MappedFile

	header   *primitives.BucketTable
	manager  *primitives.RecordManager
	rows     *primitives.RecordManager
	multimap *primitives.RecordMultimap
}

// NewHistoryDatabase - a closed history store over two existing files
func NewHistoryDatabase(tableFilename string, rowsFilename string, buckets uint32, expansion uint64) *HistoryDatabase {
	tableFile := memory.New(tableFilename, expansion)
	rowsFile := memory.New(rowsFilename, expansion)
	header := primitives.NewRecordBucketTable(tableFile, buckets)
	manager := primitives.NewRecordManager(tableFile, header.HeaderSize(), primitives.RecordSize(chain.ShortHashSize, 4))
	rows := primitives.NewRecordManager(rowsFile, 0, primitives.RowSize(historyRowSize))
	table := primitives.NewRecordHashTable(header, manager, chain.ShortHashSize)
	return &HistoryDatabase{
		log:       logger.New("databases"),
		tableFile: tableFile,
		rowsFile:  rowsFile,
		header:    header,
		manager:   manager,
		rows:      rows,
		multimap:  primitives.NewRecordMultimap(table, rows),
	}
}

// Create - initialise both files
func (h *HistoryDatabase) Create() error {
	if err := openFiles(h.tableFile, h.rowsFile); nil != err {
		return err
	}
	return firstError(
		h.header.Create,
		h.manager.Create,
		h.rows.Create,
		h.start,
	)
}

// Open - start from the stored headers
func (h *HistoryDatabase) Open() error {
	if err := openFiles(h.tableFile, h.rowsFile); nil != err {
		return err
	}
	if err := h.start(); nil != err {
		h.log.Errorf("history open: error: %s", err)
		closeFiles(h.tableFile, h.rowsFile)
		return err
	}
	return nil
}

func (h *HistoryDatabase) start() error {
	return firstError(
		h.header.Start,
		h.manager.Start,
		h.rows.Start,
	)
}

// Close - unmap both files
func (h *HistoryDatabase) Close() error {
	return closeFiles(h.tableFile, h.rowsFile)
}

// Synchronize - persist the record counts
func (h *HistoryDatabase) Synchronize() error {
	return firstError(
		h.manager.Sync,
		h.rows.Sync,
	)
}

// Flush - write mapped pages to disk
func (h *HistoryDatabase) Flush() error {
	return flushFiles(h.tableFile, h.rowsFile)
}

// AddOutput - address received value at outpoint
func (h *HistoryDatabase) AddOutput(key chain.ShortHash, outpoint chain.Point, height uint32, value uint64) error {
	return h.add(key, HistoryRow{
		Kind:   HistoryOutput,
		Point:  outpoint,
		Height: height,
		Value:  value,
	})
}

// AddInput - address spent previous at inpoint
func (h *HistoryDatabase) AddInput(key chain.ShortHash, inpoint chain.Point, height uint32, previous chain.Point) error {
	return h.add(key, HistoryRow{
		Kind:   HistoryInput,
		Point:  inpoint,
		Height: height,
		Value:  previous.Checksum(),
	})
}

func (h *HistoryDatabase) add(key chain.ShortHash, row HistoryRow) error {
	point := row.Point.Pack()
	return h.multimap.Store(key[:], func(value []byte) {
		value[historyKindOffset] = byte(row.Kind)
		copy(value[historyPointOffset:], point)
		binary.LittleEndian.PutUint32(value[historyHeightOffset:], row.Height)
		binary.LittleEndian.PutUint64(value[historyValueOffset:], row.Value)
	})
}

// DeleteLastRow - remove the newest row of key, false when it has none
func (h *HistoryDatabase) DeleteLastRow(key chain.ShortHash) (bool, error) {
	return h.multimap.DeleteLastRow(key[:])
}

// Get - up to limit rows of key at or above fromHeight, newest first
//
// a zero limit returns every row
func (h *HistoryDatabase) Get(key chain.ShortHash, limit int, fromHeight uint32) ([]HistoryRow, error) {
	result := []HistoryRow{}

	it := h.multimap.Iterate(key[:])
	for it.Next() {
		if 0 != limit && len(result) >= limit {
			break
		}
		row, err := h.row(it.Index())
		if nil != err {
			return nil, err
		}
		if row.Height < fromHeight {
			continue
		}
		result = append(result, row)
	}
	if err := it.Err(); nil != err {
		return nil, err
	}
	return result, nil
}

func (h *HistoryDatabase) row(index uint32) (HistoryRow, error) {
	a, err := h.multimap.Get(index)
	if nil != err {
		return HistoryRow{}, err
	}
	defer a.Release()

	value := a.Bytes()
	point, err := chain.UnpackPoint(value[historyPointOffset:historyHeightOffset])
	if nil != err {
		return HistoryRow{}, fault.ErrDatabaseCorrupt
	}
	return HistoryRow{
		Kind:   HistoryKind(value[historyKindOffset]),
		Point:  point,
		Height: binary.LittleEndian.Uint32(value[historyHeightOffset:]),
		Value:  binary.LittleEndian.Uint64(value[historyValueOffset:]),
	}, nil
}

// GetTransactions - distinct transaction hashes of the rows Get returns
func (h *HistoryDatabase) GetTransactions(key chain.ShortHash, limit int, fromHeight uint32) ([]merkle.Digest, error) {
	rows, err := h.Get(key, limit, fromHeight)
	if nil != err {
		return nil, err
	}

	seen := make(map[merkle.Digest]struct{}, len(rows))
	hashes := make([]merkle.Digest, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.Point.Hash]; ok {
			continue
		}
		seen[row.Point.Hash] = struct{}{}
		hashes = append(hashes, row.Point.Hash)
	}
	return hashes, nil
}

// Statistics - buckets of the address table and rows stored
func (h *HistoryDatabase) Statistics() Statistics {
	return Statistics{
		Buckets: h.header.Size(),
		Rows:    h.rows.Count(),
	}
}
