// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/merkle"
)

// Input - spends a previous output
type Input struct {
	Previous Point
	Script   []byte
	Sequence uint32
}

// Output - value locked by a script
type Output struct {
	Value  uint64
	Script []byte
}

// Transaction - inputs and outputs
type Transaction struct {
	Version  uint32
	Inputs   []Input
	Outputs  []Output
	LockTime uint32
}

// minimum packed sizes, used to bound decoded counts
const (
	minimumInputSize  = PointSize + 1 + 4
	minimumOutputSize = 8 + 1
)

// IsCoinbase - a single input spending the null point
func (tx *Transaction) IsCoinbase() bool {
	return 1 == len(tx.Inputs) && tx.Inputs[0].Previous.IsNull()
}

// Hash - SHA3-256 of the packed transaction
func (tx *Transaction) Hash() merkle.Digest {
	return merkle.NewDigest(tx.Pack())
}

// Pack - version ++ inputs ++ outputs ++ lock time
//
//   inputs:  count(varint) ++ [previous hash ++ index(4) ++ script(varint length) ++ sequence(4)]
//   outputs: count(varint) ++ [value(8) ++ script(varint length)]
func (tx *Transaction) Pack() []byte {
	buffer := make([]byte, 0, 256)
	buffer = appendUint32(buffer, tx.Version)

	buffer = AppendVarint64(buffer, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buffer = append(buffer, in.Previous.Pack()...)
		buffer = appendBytes(buffer, in.Script)
		buffer = appendUint32(buffer, in.Sequence)
	}

	buffer = AppendVarint64(buffer, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buffer = out.pack(buffer)
	}

	return appendUint32(buffer, tx.LockTime)
}

// UnpackTransaction - decode one transaction, returning the bytes used
func UnpackTransaction(buffer []byte) (*Transaction, int, error) {
	r := newReader(buffer)
	tx := r.transaction()
	if nil != r.err {
		return nil, 0, r.err
	}
	return tx, r.offset, nil
}

func (r *reader) transaction() *Transaction {
	tx := &Transaction{
		Version: r.uint32(),
	}

	n := r.count(minimumInputSize)
	tx.Inputs = make([]Input, n)
	for i := 0; i < n && nil == r.err; i += 1 {
		tx.Inputs[i].Previous.Hash = r.digest()
		tx.Inputs[i].Previous.Index = r.uint32()
		tx.Inputs[i].Script = r.bytes()
		tx.Inputs[i].Sequence = r.uint32()
	}

	n = r.count(minimumOutputSize)
	tx.Outputs = make([]Output, n)
	for i := 0; i < n && nil == r.err; i += 1 {
		tx.Outputs[i] = r.output()
	}

	tx.LockTime = r.uint32()
	return tx
}

func (out Output) pack(buffer []byte) []byte {
	buffer = appendUint64(buffer, out.Value)
	return appendBytes(buffer, out.Script)
}

// Pack - value(8) ++ script(varint length)
func (out Output) Pack() []byte {
	return out.pack(make([]byte, 0, 8+1+len(out.Script)))
}

// UnpackOutput - decode one output, returning the bytes used
func UnpackOutput(buffer []byte) (Output, int, error) {
	r := newReader(buffer)
	out := r.output()
	if nil != r.err {
		return Output{}, 0, r.err
	}
	return out, r.offset, nil
}

func (r *reader) output() Output {
	return Output{
		Value:  r.uint64(),
		Script: r.bytes(),
	}
}

// Output - the output at index
func (tx *Transaction) Output(index uint32) (Output, error) {
	if int(index) >= len(tx.Outputs) {
		return Output{}, fault.ErrKeyNotFound
	}
	return tx.Outputs[index], nil
}
