// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/databases"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/merkle"
	"github.com/bitmark-inc/chainstore/result"
)

// Push - append block at height, which must be the next height
func (d *Database) Push(block *chain.Block, height uint32) error {
	return d.write(func() error {
		if err := d.verifyPush(block, height); nil != err {
			return err
		}
		return d.pushBlock(block, height)
	})
}

// PushAll - append consecutive blocks starting at firstHeight
func (d *Database) PushAll(blocks []*chain.Block, firstHeight uint32) error {
	return d.write(func() error {
		return d.pushAll(blocks, firstHeight)
	})
}

func (d *Database) pushAll(blocks []*chain.Block, firstHeight uint32) error {
	for i, block := range blocks {
		height := firstHeight + uint32(i)
		if err := d.verifyPush(block, height); nil != err {
			return err
		}
		if err := d.pushBlock(block, height); nil != err {
			return err
		}
	}
	return nil
}

// Insert - store block at an unused height without checking its parent
func (d *Database) Insert(block *chain.Block, height uint32) error {
	return d.write(func() error {
		if 0 == len(block.Transactions) {
			return fault.ErrEmptyBlock
		}
		if d.blocks.Exists(height) {
			return fault.ErrStoreBlockDuplicate
		}
		return d.pushBlock(block, height)
	})
}

// PushTransaction - add a transaction to the pool
func (d *Database) PushTransaction(tx *chain.Transaction) error {
	return d.write(func() error {
		hash := tx.Hash()
		if d.unspentDuplicate(hash) {
			return fault.ErrUnspentDuplicate
		}
		if err := d.transactions.Store(tx, 0, 0, databases.Unconfirmed); nil != err {
			return err
		}
		if err := d.unconfirmed.Store(tx); nil != err {
			return err
		}
		if err := d.transactions.Synchronize(); nil != err {
			return err
		}
		return d.unconfirmed.Synchronize()
	})
}

// unspentDuplicate - a stored transaction with the same hash that still
// has an unspent output
func (d *Database) unspentDuplicate(hash merkle.Digest) bool {
	r, err := d.transactions.Get(hash, math.MaxUint32, false)
	if nil != err {
		return false
	}
	for _, spender := range r.Spenders {
		if databases.NotSpent == spender {
			return true
		}
	}
	return false
}

func (d *Database) verifyPush(block *chain.Block, height uint32) error {
	if 0 == len(block.Transactions) {
		return fault.ErrEmptyBlock
	}

	next := uint32(0)
	if top, ok := d.blocks.Top(); ok {
		next = top + 1
	}
	if height != next {
		d.log.Warnf("push height: %d  expected: %d", height, next)
		return fault.ErrStoreBlockInvalidHeight
	}

	parent := merkle.Digest{}
	if height > 0 {
		r, err := d.blocks.Get(height - 1)
		if nil != err {
			d.log.Warnf("push height: %d  no parent: %s", height, err)
			return fault.ErrStoreBlockMissingParent
		}
		parent = r.Hash
	}
	if block.Header.Previous != parent {
		d.log.Warnf("push height: %d  previous: %s  expected: %s", height, block.Header.Previous, parent)
		return fault.ErrStoreBlockMissingParent
	}
	return nil
}

// pushBlock - the unspent output set first, then the mapped stores
func (d *Database) pushBlock(block *chain.Block, height uint32) error {
	var res result.Code
	if 0 == height {
		res = d.utxo.PushGenesis(block)
	} else {
		res = d.utxo.PushBlock(block, height, block.MedianTimePast)
	}
	if !res.Succeed() {
		d.log.Errorf("unspent outputs push: %d  result: %s", height, res)
		return errorOf(res)
	}

	if err := d.storeBlock(block, height); nil != err {
		d.log.Errorf("push: %d  error: %s", height, err)
		d.dirty = true
		if res := d.utxo.RemoveBlock(block, height); result.Success != res {
			fault.Criticalf("unspent outputs rollback: %d  result: %s", height, res)
		}
		return fault.ErrOperationFailed
	}

	d.log.Debugf("pushed: %d  hash: %s  transactions: %d", height, block.Hash(), len(block.Transactions))
	return nil
}

func (d *Database) storeBlock(block *chain.Block, height uint32) error {
	if err := d.pushTransactions(block, height); nil != err {
		return err
	}
	if d.indexed(height) {
		if err := d.pushIndexes(block, height); nil != err {
			return err
		}
	}
	if err := d.pushHeights(block, height); nil != err {
		return err
	}
	if err := d.blocks.Store(block, height); nil != err {
		return err
	}
	return d.synchronize()
}

// indexed - true if the address indexes cover height
func (d *Database) indexed(height uint32) bool {
	return d.settings.IndexesEnabled() && height >= d.settings.IndexStartHeight
}

// pushTransactions - store the block's transactions in parallel buckets
// and drop them from the pool
func (d *Database) pushTransactions(block *chain.Block, height uint32) error {
	txs := block.Transactions
	buckets := runtime.NumCPU()
	if buckets > len(txs) {
		buckets = len(txs)
	}

	var g errgroup.Group
	for bucket := 0; bucket < buckets; bucket += 1 {
		bucket := bucket
		g.Go(func() error {
			for position := bucket; position < len(txs); position += buckets {
				tx := txs[position]
				if err := d.transactions.Store(tx, height, block.MedianTimePast, uint32(position)); nil != err {
					return err
				}
				if err := d.unconfirmed.UnlinkIfExists(tx.Hash()); nil != err {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (d *Database) pushIndexes(block *chain.Block, height uint32) error {
	for _, tx := range block.Transactions {
		hash := tx.Hash()
		if !tx.IsCoinbase() {
			if err := d.pushInputs(hash, tx, height); nil != err {
				return err
			}
		}
		if err := d.pushOutputs(hash, tx, height); nil != err {
			return err
		}
		if err := d.pushStealth(hash, tx, height); nil != err {
			return err
		}
	}
	return nil
}

func (d *Database) pushInputs(hash merkle.Digest, tx *chain.Transaction, height uint32) error {
	for index, input := range tx.Inputs {
		inpoint := chain.Point{Hash: hash, Index: uint32(index)}
		previous := input.Previous
		if err := d.spends.Store(previous, inpoint); nil != err {
			return err
		}
		for _, address := range d.inputAddresses(input) {
			if err := d.history.AddInput(address, inpoint, height, previous); nil != err {
				return err
			}
		}
	}
	return nil
}

func (d *Database) pushOutputs(hash merkle.Digest, tx *chain.Transaction, height uint32) error {
	for index, output := range tx.Outputs {
		outpoint := chain.Point{Hash: hash, Index: uint32(index)}
		for _, address := range output.Addresses() {
			if err := d.history.AddOutput(address, outpoint, height, output.Value); nil != err {
				return err
			}
		}
	}
	return nil
}

// pushStealth - an ephemeral key output followed by a single address payment
func (d *Database) pushStealth(hash merkle.Digest, tx *chain.Transaction, height uint32) error {
	for index := 0; index+1 < len(tx.Outputs); index += 1 {
		ephemeral := tx.Outputs[index]
		key, ok := ephemeral.EphemeralKey()
		if !ok {
			continue
		}
		addresses := tx.Outputs[index+1].Addresses()
		if 1 != len(addresses) {
			continue
		}

		row := databases.StealthRow{
			Prefix:  chain.StealthPrefix(ephemeral.Script),
			Height:  height,
			Address: addresses[0],
			Hash:    hash,
		}
		copy(row.EphemeralKey[:], key)
		if err := d.stealth.Store(row); nil != err {
			return err
		}
	}
	return nil
}

// inputAddresses - the addresses paid by the spent output, or those of
// the input script when the output is not stored
func (d *Database) inputAddresses(input chain.Input) []chain.ShortHash {
	previous, err := d.transactions.GetOutput(input.Previous, math.MaxUint32, false)
	if nil == err {
		if addresses := previous.Output.Addresses(); len(addresses) > 0 {
			return addresses
		}
	}
	return input.Addresses()
}

// pushHeights - mark every spent output with height
func (d *Database) pushHeights(block *chain.Block, height uint32) error {
	for _, tx := range block.Transactions {
		if tx.IsCoinbase() {
			continue
		}
		for _, input := range tx.Inputs {
			if err := d.transactions.Spend(input.Previous, height); nil != err {
				return err
			}
		}
	}
	return nil
}
