// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaintest - deterministic blocks and transactions for tests
package chaintest

import (
	"bytes"
	"encoding/binary"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/merkle"
)

// Reward - value of every coinbase output built here
const Reward = 50 * 100000000

// block spacing in seconds
const spacing = 600

// Key - a fake 33 byte public key, distinct for each n
func Key(n byte) []byte {
	return append([]byte{0x02}, bytes.Repeat([]byte{n}, 32)...)
}

// Payee - the address hash of Key(n)
func Payee(n byte) chain.ShortHash {
	return chain.Hash160(Key(n))
}

// Coinbase - a coinbase paying Reward to payee, unique per height
func Coinbase(height uint32, payee chain.ShortHash) *chain.Transaction {
	h := make([]byte, 4)
	binary.LittleEndian.PutUint32(h, height)
	return &chain.Transaction{
		Version: 1,
		Inputs: []chain.Input{
			{
				Previous: chain.NullPoint(),
				Script:   chain.PushScript(h),
				Sequence: 0xffffffff,
			},
		},
		Outputs: []chain.Output{
			{Value: Reward, Script: chain.PayToKeyHashScript(payee)},
		},
	}
}

// Spend - a transaction signed by Key(signer) spending every point,
// with one pay to key hash output per value
func Spend(signer byte, points []chain.Point, payee chain.ShortHash, values ...uint64) *chain.Transaction {
	tx := &chain.Transaction{
		Version: 1,
	}
	for _, p := range points {
		tx.Inputs = append(tx.Inputs, chain.Input{
			Previous: p,
			Script:   chain.PushScript(bytes.Repeat([]byte{0x30}, 71), Key(signer)),
			Sequence: 0xffffffff,
		})
	}
	for _, v := range values {
		tx.Outputs = append(tx.Outputs, chain.Output{
			Value:  v,
			Script: chain.PayToKeyHashScript(payee),
		})
	}
	return tx
}

// Next - a block on top of parent at height, its coinbase paying payee
// followed by the extra transactions
func Next(parent *chain.Block, height uint32, payee chain.ShortHash, extra ...*chain.Transaction) *chain.Block {
	txs := append([]*chain.Transaction{Coinbase(height, payee)}, extra...)
	block := &chain.Block{
		Header: chain.Header{
			Version:   1,
			Previous:  parent.Hash(),
			Timestamp: parent.Header.Timestamp + spacing,
			Bits:      parent.Header.Bits,
			Nonce:     height,
		},
		Transactions:   txs,
		MedianTimePast: parent.Header.Timestamp,
	}
	block.Header.Merkle = block.MerkleRoot()
	return block
}

// Chain - count blocks on top of parent, paying payee, starting at height first
func Chain(parent *chain.Block, first uint32, count int, payee chain.ShortHash) []*chain.Block {
	blocks := make([]*chain.Block, 0, count)
	for i := 0; i < count; i += 1 {
		b := Next(parent, first+uint32(i), payee)
		blocks = append(blocks, b)
		parent = b
	}
	return blocks
}

// Outpoint - point to output index of tx
func Outpoint(tx *chain.Transaction, index uint32) chain.Point {
	return chain.Point{Hash: tx.Hash(), Index: index}
}

// Digest - a digest of a string, for hashes that need not exist
func Digest(s string) merkle.Digest {
	return merkle.NewDigest([]byte(s))
}
