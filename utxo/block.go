// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

import (
	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/merkle"
	"github.com/bitmark-inc/chainstore/result"
	"github.com/bitmark-inc/chainstore/storage"
)

func pushBlockHeader(tx storage.Transaction, block *chain.Block, height uint32) result.Code {
	key := heightKey(height)
	if err := tx.Put(TableBlockHeader, key, block.Header.Pack(), true); nil != err {
		return codeOf(err)
	}
	hash := block.Hash()
	return codeOf(tx.Put(TableBlockHeaderByHash, hash[:], key, true))
}

func removeBlockHeader(tx storage.Transaction, hash merkle.Digest, height uint32) result.Code {
	if err := tx.Delete(TableBlockHeader, heightKey(height)); nil != err {
		return codeOf(err)
	}
	return codeOf(tx.Delete(TableBlockHeaderByHash, hash[:]))
}

func (d *Database) insertOutputs(tx storage.Transaction, txid merkle.Digest, outputs []chain.Output, fixed []byte) result.Code {
	for i, output := range outputs {
		key := PointKey(chain.Point{Hash: txid, Index: uint32(i)}, d.compact)
		if res := InsertUTXO(tx, key, output, fixed); result.Success != res {
			return res
		}
	}
	return result.Success
}

// a transaction whose outputs already exist is an early duplicate
// coinbase, the existing outputs are kept
func (d *Database) insertOutputsTolerant(tx storage.Transaction, height uint32, txid merkle.Digest, outputs []chain.Output, fixed []byte) result.Code {
	res := d.insertOutputs(tx, txid, outputs, fixed)
	if result.DuplicatedKey == res {
		d.log.Warnf("duplicate outputs: %s  height: %d", txid, height)
		return result.SuccessDuplicateCoinbase
	}
	return res
}

func (d *Database) removeOutputs(tx storage.Transaction, txid merkle.Digest, outputs []chain.Output) result.Code {
	for i := len(outputs) - 1; i >= 0; i -= 1 {
		key := PointKey(chain.Point{Hash: txid, Index: uint32(i)}, d.compact)
		if res := RemoveUTXO(tx, 0, key, false); result.Success != res {
			return res
		}
	}
	return result.Success
}

func (d *Database) pushBlock(tx storage.Transaction, block *chain.Block, height uint32, medianTimePast uint32, archive bool) result.Code {
	if res := pushBlockHeader(tx, block, height); result.Success != res {
		return res
	}
	if archive {
		if res := PushBlockReorg(tx, block, height); result.Success != res {
			return res
		}
	}

	txs := block.Transactions
	coinbase := txs[0]
	res0 := d.insertOutputsTolerant(tx, height, coinbase.Hash(), coinbase.Outputs, FixedData(height, medianTimePast, true))
	if !res0.Succeed() {
		return res0
	}

	// outputs first so a transaction may spend an earlier one in the same block
	fixed := FixedData(height, medianTimePast, false)
	for _, t := range txs[1:] {
		res := d.insertOutputsTolerant(tx, height, t.Hash(), t.Outputs, fixed)
		if !res.Succeed() {
			return res
		}
		if result.SuccessDuplicateCoinbase == res {
			res0 = res
		}
	}
	for _, t := range txs[1:] {
		for _, input := range t.Inputs {
			key := PointKey(input.Previous, d.compact)
			if res := RemoveUTXO(tx, height, key, archive); result.Success != res {
				d.log.Debugf("remove input: %s  height: %d  result: %s", input.Previous, height, res)
				return res
			}
		}
	}
	return res0
}

func (d *Database) removeBlock(tx storage.Transaction, block *chain.Block, height uint32) result.Code {
	txs := block.Transactions
	for i := len(txs) - 1; i >= 1; i -= 1 {
		t := txs[i]
		if res := d.removeOutputs(tx, t.Hash(), t.Outputs); result.Success != res {
			return res
		}
		for _, input := range t.Inputs {
			key := PointKey(input.Previous, d.compact)
			if res := InsertOutputFromReorgAndRemove(tx, key); result.Success != res {
				d.log.Debugf("restore input: %s  height: %d  result: %s", input.Previous, height, res)
				return res
			}
		}
	}

	coinbase := txs[0]
	if res := d.removeOutputs(tx, coinbase.Hash(), coinbase.Outputs); result.Success != res {
		return res
	}
	if res := removeBlockHeader(tx, block.Hash(), height); result.Success != res {
		return res
	}
	if res := RemoveBlockReorg(tx, height); result.Success != res {
		return res
	}
	return RemoveReorgIndex(tx, height)
}
