// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"bytes"

	"github.com/syndtr/goleveldb/leveldb/iterator"
)

// Map - run a function on every entry from the first key >= start,
// stopping at the first error
func Map(cursor Cursor, start []byte, f func(key []byte, value []byte) error) error {
	var key, value []byte
	if nil == start {
		key, value = cursor.First()
	} else {
		key, value = cursor.SetRange(start)
	}
	for ; nil != key; key, value = cursor.Next() {
		if err := f(key, value); nil != err {
			return err
		}
	}
	return nil
}

// levelCursor - iterator over one table of a snapshot or of the
// committed database, skipping keys deleted by the transaction
type levelCursor struct {
	tx     *levelTransaction
	prefix []byte
	iter   iterator.Iterator
}

func newLevelCursor(t *levelTransaction, table string) *levelCursor {
	searchRange := t.env.tableRange(table)

	var iter iterator.Iterator
	if nil != t.snapshot {
		iter = t.snapshot.NewIterator(searchRange, nil)
	} else {
		iter = t.env.db.NewIterator(searchRange, nil)
	}
	return &levelCursor{
		tx:     t,
		prefix: searchRange.Start,
		iter:   iter,
	}
}

func (c *levelCursor) First() ([]byte, []byte) {
	return c.forward(c.iter.First())
}

func (c *levelCursor) Last() ([]byte, []byte) {
	ok := c.iter.Last()
	for ok && c.deleted(c.iter.Key()) {
		ok = c.iter.Prev()
	}
	return c.current(ok)
}

func (c *levelCursor) Next() ([]byte, []byte) {
	return c.forward(c.iter.Next())
}

func (c *levelCursor) Set(key []byte) ([]byte, []byte) {
	k, v := c.SetRange(key)
	if !bytes.Equal(k, key) {
		return nil, nil
	}
	return k, v
}

func (c *levelCursor) SetRange(key []byte) ([]byte, []byte) {
	target := make([]byte, 0, len(c.prefix)+len(key))
	target = append(target, c.prefix...)
	target = append(target, key...)
	return c.forward(c.iter.Seek(target))
}

func (c *levelCursor) Close() {
	c.iter.Release()
}

func (c *levelCursor) forward(ok bool) ([]byte, []byte) {
	for ok && c.deleted(c.iter.Key()) {
		ok = c.iter.Next()
	}
	return c.current(ok)
}

// current - contents of the iterator slices are only valid until the
// next move, so strip the prefix and copy
func (c *levelCursor) current(ok bool) ([]byte, []byte) {
	if !ok {
		return nil, nil
	}
	key := c.iter.Key()
	value := c.iter.Value()

	dataKey := make([]byte, len(key)-len(c.prefix))
	copy(dataKey, key[len(c.prefix):])

	return dataKey, copyBytes(value)
}

func (c *levelCursor) deleted(key []byte) bool {
	if !c.tx.writable {
		return false
	}
	_, _, deleted := c.tx.cache.Get(string(key))
	return deleted
}
