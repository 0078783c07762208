// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package utxo - the unspent output set and its reorganization ledger
//
// tables of the transactional engine:
//
//   utxo_db               outpoint → output ‖ height:4 ‖ mtp:4 ‖ coinbase:1
//   reorg_pool            outpoint → archived utxo_db value
//   reorg_index           height:4 BE ‖ outpoint → outpoint
//   reorg_block           height:4 BE → packed block
//   block_header          height:4 BE → packed header
//   block_header_by_hash  hash → height:4 BE
//   properties            name → value
//
// heights are big endian so both engines iterate them in order; every
// block push or pop runs in a single write transaction
package utxo
