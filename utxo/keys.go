// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

import (
	"encoding/binary"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/merkle"
)

// table names
const (
	TableUTXO              = "utxo_db"
	TableReorgPool         = "reorg_pool"
	TableReorgIndex        = "reorg_index"
	TableReorgBlock        = "reorg_block"
	TableBlockHeader       = "block_header"
	TableBlockHeaderByHash = "block_header_by_hash"
	TableProperties        = "properties"
)

// Tables - every table the database opens
var Tables = []string{
	TableUTXO,
	TableReorgPool,
	TableReorgIndex,
	TableReorgBlock,
	TableBlockHeader,
	TableBlockHeaderByHash,
	TableProperties,
}

const heightKeySize = 4

// property names
const (
	propertyCompact = "compact_point_index"
)

func heightKey(height uint32) []byte {
	key := make([]byte, heightKeySize)
	binary.BigEndian.PutUint32(key, height)
	return key
}

func heightOf(key []byte) (uint32, bool) {
	if len(key) < heightKeySize {
		return 0, false
	}
	return binary.BigEndian.Uint32(key), true
}

// PointKey - the utxo_db key of an outpoint
//
// compact keys store a 2 byte output index
func PointKey(point chain.Point, compact bool) []byte {
	if compact {
		return point.PackCompact()
	}
	return point.Pack()
}

func pointFromKey(key []byte) (chain.Point, bool) {
	switch len(key) {
	case chain.PointSize:
		p, err := chain.UnpackPoint(key)
		return p, nil == err
	case merkle.DigestLength + 2:
		var p chain.Point
		copy(p.Hash[:], key)
		p.Index = uint32(binary.LittleEndian.Uint16(key[merkle.DigestLength:]))
		return p, true
	default:
		return chain.Point{}, false
	}
}

func indexKey(height uint32, key []byte) []byte {
	return append(heightKey(height), key...)
}
