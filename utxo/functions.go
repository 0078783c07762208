// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

import (
	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/result"
	"github.com/bitmark-inc/chainstore/storage"
)

// map an engine error to a result code
func codeOf(err error) result.Code {
	switch err {
	case nil:
		return result.Success
	case storage.ErrNotFound:
		return result.KeyNotFound
	case storage.ErrKeyExists:
		return result.DuplicatedKey
	default:
		return result.Other
	}
}

// InsertUTXO - add an output unless its outpoint is already present
func InsertUTXO(tx storage.Transaction, key []byte, output chain.Output, fixed []byte) result.Code {
	return codeOf(tx.Put(TableUTXO, key, packEntry(output, fixed), true))
}

// InsertReorgPool - archive the current utxo_db value of key under height
func InsertReorgPool(tx storage.Transaction, height uint32, key []byte) result.Code {
	value, err := tx.Get(TableUTXO, key)
	if nil != err {
		return codeOf(err)
	}
	if err := tx.Put(TableReorgPool, key, value, true); nil != err {
		return codeOf(err)
	}
	return codeOf(tx.Put(TableReorgIndex, indexKey(height, key), key, false))
}

// RemoveUTXO - delete an output, optionally archiving it first
func RemoveUTXO(tx storage.Transaction, height uint32, key []byte, archive bool) result.Code {
	if archive {
		if res := InsertReorgPool(tx, height, key); result.Success != res {
			return res
		}
	}
	return codeOf(tx.Delete(TableUTXO, key))
}

// InsertOutputFromReorgAndRemove - move an archived output back to the live set
func InsertOutputFromReorgAndRemove(tx storage.Transaction, key []byte) result.Code {
	value, err := tx.Get(TableReorgPool, key)
	if nil != err {
		return codeOf(err)
	}
	if err := tx.Put(TableUTXO, key, value, true); nil != err {
		return codeOf(err)
	}
	return codeOf(tx.Delete(TableReorgPool, key))
}

// PushBlockReorg - keep a copy of the block for a later pop
func PushBlockReorg(tx storage.Transaction, block *chain.Block, height uint32) result.Code {
	return codeOf(tx.Put(TableReorgBlock, heightKey(height), block.Pack(), true))
}

// RemoveBlockReorg - drop the copy of the block at height
func RemoveBlockReorg(tx storage.Transaction, height uint32) result.Code {
	return codeOf(tx.Delete(TableReorgBlock, heightKey(height)))
}

// RemoveReorgIndex - drop every index entry of height
//
// the pool entries they name must already be gone; a height that
// archived nothing has no entries and is not an error
func RemoveReorgIndex(tx storage.Transaction, height uint32) result.Code {
	cursor, err := tx.Cursor(TableReorgIndex)
	if nil != err {
		return result.Other
	}
	keys := [][]byte{}
	for k, _ := cursor.SetRange(heightKey(height)); nil != k; k, _ = cursor.Next() {
		h, ok := heightOf(k)
		if !ok || h != height {
			break
		}
		keys = append(keys, k)
	}
	cursor.Close()

	for _, k := range keys {
		if err := tx.Delete(TableReorgIndex, k); nil != err {
			return codeOf(err)
		}
	}
	return result.Success
}

// PruneReorgIndex - drop index entries below removeUntil together with
// the pool entries they name
func PruneReorgIndex(tx storage.Transaction, removeUntil uint32) result.Code {
	cursor, err := tx.Cursor(TableReorgIndex)
	if nil != err {
		return result.Other
	}
	type pair struct {
		index []byte
		point []byte
	}
	pairs := []pair{}
	for k, v := cursor.First(); nil != k; k, v = cursor.Next() {
		h, ok := heightOf(k)
		if !ok {
			cursor.Close()
			return result.DBCorrupt
		}
		if h >= removeUntil {
			break
		}
		pairs = append(pairs, pair{index: k, point: v})
	}
	cursor.Close()

	for _, p := range pairs {
		if err := tx.Delete(TableReorgPool, p.point); nil != err {
			return codeOf(err)
		}
		if err := tx.Delete(TableReorgIndex, p.index); nil != err {
			return codeOf(err)
		}
	}
	return result.Success
}

// PruneReorgBlock - drop the oldest amount block copies
func PruneReorgBlock(tx storage.Transaction, amount uint32) result.Code {
	if 0 == amount {
		return result.Success
	}
	cursor, err := tx.Cursor(TableReorgBlock)
	if nil != err {
		return result.Other
	}
	keys := make([][]byte, 0, amount)
	for k, _ := cursor.First(); nil != k && uint32(len(keys)) < amount; k, _ = cursor.Next() {
		keys = append(keys, k)
	}
	cursor.Close()

	for _, k := range keys {
		if err := tx.Delete(TableReorgBlock, k); nil != err {
			return codeOf(err)
		}
	}
	return result.Success
}
