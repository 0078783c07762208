// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package databases - the per entity stores over memory mapped files
//
// each store owns its files; Create initialises files that already
// exist (one byte long), Open starts from their stored headers
//
// value layouts, all integers little endian:
//
//   block        hash → [header:80][height:4][size:8][count:4][tx hash:32]…
//   block index  height → [slab position:8], 0 is a gap
//   transaction  hash → [height:4][position:4][mtp:4][outputs:4][spender:4]…[tx]
//   spend        outpoint → inpoint
//   history      address → rows of [kind:1][point:36][height:4][value:8]
//   stealth      rows of [prefix:4][height:4][ephemeral:32][address:20][tx:32]
//   unconfirmed  hash → [arrival:4][tx]
package databases
