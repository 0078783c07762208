// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

import (
	"encoding/binary"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/fault"
)

// size of the fixed data following the output
const fixedSize = 4 + 4 + 1

// Entry - an unspent output and where it was confirmed
type Entry struct {
	Output         chain.Output
	Height         uint32
	MedianTimePast uint32
	Coinbase       bool
}

// FixedData - the trailer shared by every output of one transaction
func FixedData(height uint32, medianTimePast uint32, coinbase bool) []byte {
	fixed := make([]byte, fixedSize)
	binary.LittleEndian.PutUint32(fixed[0:], height)
	binary.LittleEndian.PutUint32(fixed[4:], medianTimePast)
	if coinbase {
		fixed[8] = 1
	}
	return fixed
}

func packEntry(output chain.Output, fixed []byte) []byte {
	return append(output.Pack(), fixed...)
}

// Pack - the utxo_db value
func (e *Entry) Pack() []byte {
	return packEntry(e.Output, FixedData(e.Height, e.MedianTimePast, e.Coinbase))
}

// UnpackEntry - decode a utxo_db or reorg_pool value
func UnpackEntry(buffer []byte) (*Entry, error) {
	output, n, err := chain.UnpackOutput(buffer)
	if nil != err {
		return nil, err
	}
	fixed := buffer[n:]
	if fixedSize != len(fixed) {
		return nil, fault.ErrInvalidValueLength
	}
	return &Entry{
		Output:         output,
		Height:         binary.LittleEndian.Uint32(fixed[0:]),
		MedianTimePast: binary.LittleEndian.Uint32(fixed[4:]),
		Coinbase:       0 != fixed[8],
	}, nil
}
