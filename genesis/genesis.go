// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package genesis

import (
	"github.com/bitmark-inc/chainstore/chain"
)

// some constants embedded into the genesis block
const (
	genesisBlockVersion = 1
	genesisTimestamp    = 1231006505
	genesisBits         = 0x1d00ffff
	genesisNonce        = 2083236893
	genesisReward       = 50 * 100000000
	genesisMessage      = "chainstore genesis"
)

// genesis payee, an address hash no key is known for
var genesisPayee = chain.ShortHash{
	0x62, 0xe9, 0x07, 0xb1, 0x5c, 0xbf, 0x27, 0xd5, 0x42, 0x53,
	0x99, 0xeb, 0xf6, 0xf0, 0xfb, 0x50, 0xeb, 0xb8, 0x8f, 0x18,
}

// Block - the first block of the chain, at height zero
func Block() *chain.Block {
	coinbase := &chain.Transaction{
		Version: 1,
		Inputs: []chain.Input{
			{
				Previous: chain.NullPoint(),
				Script:   chain.PushScript([]byte(genesisMessage)),
				Sequence: 0xffffffff,
			},
		},
		Outputs: []chain.Output{
			{
				Value:  genesisReward,
				Script: chain.PayToKeyHashScript(genesisPayee),
			},
		},
	}

	block := &chain.Block{
		Header: chain.Header{
			Version:   genesisBlockVersion,
			Timestamp: genesisTimestamp,
			Bits:      genesisBits,
			Nonce:     genesisNonce,
		},
		Transactions:   []*chain.Transaction{coinbase},
		MedianTimePast: genesisTimestamp,
	}
	block.Header.Merkle = block.MerkleRoot()
	return block
}
