// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"github.com/bitmark-inc/chainstore/merkle"
)

// Block - header and transactions, the first being the coinbase
//
// MedianTimePast is supplied by validation and stored alongside the
// block, it is not part of the packed block
type Block struct {
	Header         Header
	Transactions   []*Transaction
	MedianTimePast uint32
}

// Hash - the header hash
func (b *Block) Hash() merkle.Digest {
	return b.Header.Hash()
}

// TransactionHashes - hash of every transaction in block order
func (b *Block) TransactionHashes() []merkle.Digest {
	hashes := make([]merkle.Digest, len(b.Transactions))
	for i, tx := range b.Transactions {
		hashes[i] = tx.Hash()
	}
	return hashes
}

// MerkleRoot - root over the transaction hashes
func (b *Block) MerkleRoot() merkle.Digest {
	return merkle.Root(b.TransactionHashes())
}

// Pack - header ++ count(varint) ++ transactions
func (b *Block) Pack() []byte {
	buffer := b.Header.Pack()
	buffer = AppendVarint64(buffer, uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		buffer = append(buffer, tx.Pack()...)
	}
	return buffer
}

// UnpackBlock - decode a packed block
func UnpackBlock(buffer []byte) (*Block, error) {
	r := newReader(buffer)
	b := &Block{
		Header: *r.header(),
	}
	n := r.count(4 + 1 + 1 + 4)
	b.Transactions = make([]*Transaction, 0, n)
	for i := 0; i < n && nil == r.err; i += 1 {
		b.Transactions = append(b.Transactions, r.transaction())
	}
	if nil != r.err {
		return nil, r.err
	}
	return b, nil
}
