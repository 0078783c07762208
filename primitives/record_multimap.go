// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package primitives

import (
	"encoding/binary"
	"sync"

	"github.com/bitmark-inc/chainstore/memory"
)

const rowNextSize = 4

// RecordMultimap - one to many index
//
// a record hash table maps each key to the index of its newest row;
// rows live in their own record area as [next:4][value] and form a
// list from newest to oldest
type RecordMultimap struct {
	table *RecordHashTable
	rows  *RecordManager

	createLock sync.Mutex
	updateLock sync.Mutex
}

// NewRecordMultimap - multimap over a key to head table and a row manager
func NewRecordMultimap(table *RecordHashTable, rows *RecordManager) *RecordMultimap {
	return &RecordMultimap{
		table: table,
		rows:  rows,
	}
}

// RowSize - row record size for a value size
func RowSize(valueSize int) uint64 {
	return uint64(rowNextSize + valueSize)
}

// Store - add a new row for key, it becomes the first row found
func (m *RecordMultimap) Store(key []byte, write WriteFunc) error {
	index, err := m.rows.NewRecords(1)
	if nil != err {
		return err
	}
	a, err := m.rows.Get(index)
	if nil != err {
		return err
	}
	write(a.Slice(rowNextSize, m.valueSize()))
	a.Release()

	m.createLock.Lock()
	defer m.createLock.Unlock()

	head := m.Find(key)
	if err := m.link(index, head); nil != err {
		return err
	}
	if EmptyRecord == head {
		_, err = m.table.Store(key, putIndex(index))
	} else {
		err = m.table.Update(key, putIndex(index))
	}
	return err
}

// Find - index of the newest row for key, EmptyRecord if none
func (m *RecordMultimap) Find(key []byte) uint32 {
	a, err := m.table.Find(key)
	if nil != err {
		return EmptyRecord
	}
	defer a.Release()
	return a.Uint32(0)
}

// Get - shared view of the value of a row
func (m *RecordMultimap) Get(index uint32) (*memory.Accessor, error) {
	a, err := m.rows.Get(index)
	if nil != err {
		return nil, err
	}
	a.Restrict(rowNextSize, m.valueSize())
	return a, nil
}

// Next - the row after index, EmptyRecord at the end of the list
func (m *RecordMultimap) Next(index uint32) (uint32, error) {
	a, err := m.rows.Get(index)
	if nil != err {
		return EmptyRecord, err
	}
	defer a.Release()
	return a.Uint32(0), nil
}

// Iterate - walk the rows for key from newest to oldest
func (m *RecordMultimap) Iterate(key []byte) *Iterator {
	return &Iterator{
		multimap: m,
		next:     m.Find(key),
		current:  EmptyRecord,
	}
}

// DeleteLastRow - remove the newest row for key, false when it has none
//
// only the newest row can be removed, which undoes the most recent Store
func (m *RecordMultimap) DeleteLastRow(key []byte) (bool, error) {
	m.createLock.Lock()
	defer m.createLock.Unlock()
	m.updateLock.Lock()
	defer m.updateLock.Unlock()

	head := m.Find(key)
	if EmptyRecord == head {
		return false, nil
	}

	next, err := m.Next(head)
	if nil != err {
		return false, err
	}

	if EmptyRecord == next {
		return m.table.Unlink(key)
	}
	if err := m.table.Update(key, putIndex(next)); nil != err {
		return false, err
	}
	return true, nil
}

func (m *RecordMultimap) link(index uint32, next uint32) error {
	a, err := m.rows.Get(index)
	if nil != err {
		return err
	}
	a.PutUint32(0, next)
	a.Release()
	return nil
}

func (m *RecordMultimap) valueSize() int {
	return int(m.rows.RecordSize()) - rowNextSize
}

func putIndex(index uint32) WriteFunc {
	return func(value []byte) {
		binary.LittleEndian.PutUint32(value, index)
	}
}

// Iterator - cursor over the rows of one key
type Iterator struct {
	multimap *RecordMultimap
	next     uint32
	current  uint32
	err      error
}

// Next - advance, false at the end of the rows or on error
func (it *Iterator) Next() bool {
	if EmptyRecord == it.next || nil != it.err {
		return false
	}
	it.current = it.next
	it.next, it.err = it.multimap.Next(it.current)
	return nil == it.err
}

// Index - the current row
func (it *Iterator) Index() uint32 {
	return it.current
}

// Err - the first error met while walking
func (it *Iterator) Err() error {
	return it.err
}
