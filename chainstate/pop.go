// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import (
	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/merkle"
	"github.com/bitmark-inc/chainstore/result"
)

// Pop - remove the top block, returning it
//
// its transactions other than the coinbase return to the pool
func (d *Database) Pop() (*chain.Block, error) {
	var block *chain.Block
	err := d.write(func() error {
		var err error
		block, err = d.popBlock()
		return err
	})
	if nil != err {
		return nil, err
	}
	return block, nil
}

// PopAbove - remove every block above the one with forkHash, returning
// them lowest first
func (d *Database) PopAbove(forkHash merkle.Digest) ([]*chain.Block, error) {
	var blocks []*chain.Block
	err := d.write(func() error {
		var err error
		blocks, err = d.popAbove(forkHash)
		return err
	})
	if nil != err {
		return nil, err
	}
	return blocks, nil
}

func (d *Database) popAbove(forkHash merkle.Digest) ([]*chain.Block, error) {
	fork, err := d.blocks.GetByHash(forkHash)
	if nil != err {
		d.log.Warnf("fork point: %s  error: %s", forkHash, err)
		return nil, err
	}
	top, ok := d.blocks.Top()
	if !ok {
		return nil, fault.ErrNotInitialised
	}

	count := top - fork.Height
	blocks := make([]*chain.Block, count)
	for i := count; i > 0; i -= 1 {
		block, err := d.popBlock()
		if nil != err {
			return nil, err
		}
		blocks[i-1] = block
	}
	return blocks, nil
}

// popBlock - rebuild the top block from the stores, then undo it
func (d *Database) popBlock() (*chain.Block, error) {
	top, ok := d.blocks.Top()
	if !ok {
		return nil, fault.ErrNotInitialised
	}
	if 0 == top {
		return nil, fault.ErrPopGenesis
	}

	block, err := d.readBlock(top)
	if nil != err {
		return nil, err
	}

	if res := d.utxo.RemoveBlock(block, top); result.Success != res {
		d.log.Errorf("unspent outputs pop: %d  result: %s", top, res)
		return nil, errorOf(res)
	}

	if err := d.unstoreBlock(block, top); nil != err {
		d.log.Errorf("pop: %d  error: %s", top, err)
		d.dirty = true
		return nil, err
	}

	d.log.Debugf("popped: %d  hash: %s", top, block.Hash())
	return block, nil
}

// unstoreBlock - undo storeBlock, last transaction first
func (d *Database) unstoreBlock(block *chain.Block, top uint32) error {
	for i := len(block.Transactions) - 1; i >= 0; i -= 1 {
		tx := block.Transactions[i]
		hash := tx.Hash()
		if err := d.transactions.Unconfirm(hash); nil != err {
			return err
		}
		if !tx.IsCoinbase() {
			if err := d.unconfirmed.Store(tx); nil != err {
				return err
			}
		}
		if d.indexed(top) {
			if err := d.popOutputs(tx); nil != err {
				return err
			}
		}
		if !tx.IsCoinbase() {
			if err := d.popInputs(hash, tx, top); nil != err {
				return err
			}
		}
	}

	if d.indexed(top) {
		if err := d.stealth.Unlink(top); nil != err {
			return err
		}
	}
	if _, err := d.blocks.Unlink(top); nil != err {
		return err
	}
	return d.synchronize()
}

// readBlock - a stored block with its confirmed transactions
func (d *Database) readBlock(height uint32) (*chain.Block, error) {
	r, err := d.blocks.Get(height)
	if nil != err {
		return nil, err
	}

	block := &chain.Block{
		Header:       r.Header,
		Transactions: make([]*chain.Transaction, len(r.TransactionHashes)),
	}
	for position, hash := range r.TransactionHashes {
		t, err := d.transactions.Get(hash, height, true)
		if nil != err {
			d.log.Criticalf("block: %d  transaction: %s  error: %s", height, hash, err)
			return nil, fault.ErrDatabaseCorrupt
		}
		if height != t.Height || uint32(position) != t.Position {
			d.log.Criticalf("block: %d  transaction: %s  at height: %d  position: %d", height, hash, t.Height, t.Position)
			return nil, fault.ErrDatabaseCorrupt
		}
		block.Transactions[position] = t.Transaction
		block.MedianTimePast = t.MedianTimePast
	}
	return block, nil
}

func (d *Database) popOutputs(tx *chain.Transaction) error {
	for i := len(tx.Outputs) - 1; i >= 0; i -= 1 {
		for _, address := range tx.Outputs[i].Addresses() {
			if _, err := d.history.DeleteLastRow(address); nil != err {
				return err
			}
		}
	}
	return nil
}

// popInputs - release the spent outputs and undo the input indexes
func (d *Database) popInputs(hash merkle.Digest, tx *chain.Transaction, height uint32) error {
	for i := len(tx.Inputs) - 1; i >= 0; i -= 1 {
		input := tx.Inputs[i]
		if err := d.transactions.Unspend(input.Previous); nil != err {
			return err
		}
		if !d.indexed(height) {
			continue
		}
		if _, err := d.spends.Unlink(input.Previous); nil != err {
			return err
		}
		for _, address := range d.inputAddresses(input) {
			if _, err := d.history.DeleteLastRow(address); nil != err {
				return err
			}
		}
	}
	return nil
}

// DeleteLastHistoryRow - remove the newest history row of address,
// false if it had none
func (d *Database) DeleteLastHistoryRow(address chain.ShortHash) (bool, error) {
	deleted := false
	err := d.write(func() error {
		var err error
		deleted, err = d.history.DeleteLastRow(address)
		if nil != err {
			return err
		}
		return d.history.Synchronize()
	})
	return deleted, err
}
