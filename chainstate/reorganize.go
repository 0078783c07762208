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

// Checkpoint - a block hash at a known height
type Checkpoint struct {
	Hash   merkle.Digest
	Height uint32
}

// ReorganizeHandler - receives the blocks removed by a reorganization,
// lowest first
type ReorganizeHandler func(outgoing []*chain.Block, err error)

// Reorganize - replace every block above fork with incoming
//
// the work is queued to the background writer; handler is called once
// with the outgoing blocks and the error that stopped the reorganization,
// blocks already popped are passed even when the push of incoming failed
func (d *Database) Reorganize(fork Checkpoint, incoming []*chain.Block, handler ReorganizeHandler) {
	d.queueLock.Lock()
	if !d.running {
		d.queueLock.Unlock()
		handler(nil, fault.ErrDatabaseIsClosed)
		return
	}
	d.requests <- func() {
		outgoing, err := d.reorganize(fork, incoming)
		handler(outgoing, err)
	}
	d.queueLock.Unlock()
}

func (d *Database) reorganize(fork Checkpoint, incoming []*chain.Block) ([]*chain.Block, error) {
	var outgoing []*chain.Block
	err := d.write(func() error {
		r, err := d.blocks.GetByHash(fork.Hash)
		if nil != err {
			return err
		}
		if fork.Height != r.Height {
			d.log.Warnf("fork: %s  height: %d  stored at: %d", fork.Hash, fork.Height, r.Height)
			return fault.ErrStoreBlockInvalidHeight
		}

		outgoing, err = d.popAbove(fork.Hash)
		if nil != err {
			return err
		}
		return d.pushAll(incoming, fork.Height+1)
	})
	if nil != err {
		d.log.Errorf("reorganize at: %d  outgoing: %d  error: %s", fork.Height, len(outgoing), err)
		return outgoing, err
	}
	d.log.Infof("reorganized at: %d  outgoing: %d  incoming: %d", fork.Height, len(outgoing), len(incoming))
	return outgoing, nil
}

// Prune - drop reorganization data beyond the pool limit
func (d *Database) Prune() error {
	d.writeLock.Lock()
	defer d.writeLock.Unlock()

	if d.store.Closed() {
		return fault.ErrDatabaseIsClosed
	}
	if res := d.utxo.Prune(); !res.SucceedPrune() {
		return errorOf(res)
	}
	return nil
}

// errorOf - the error for a failed unspent output set operation
func errorOf(res result.Code) error {
	switch res {
	case result.Success, result.SuccessDuplicateCoinbase, result.NoDataToPrune:
		return nil
	case result.DuplicatedKey:
		return fault.ErrUnspentDuplicate
	case result.KeyNotFound:
		return fault.ErrKeyNotFound
	case result.DBCorrupt:
		return fault.ErrDatabaseCorrupt
	default:
		return fault.ErrOperationFailed
	}
}
