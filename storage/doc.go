// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage - transactional key value engines for the UTXO set
//
// An Environment holds a set of named tables. Every operation happens
// inside one Transaction, and a write transaction either commits all of
// its tables or none.
//
// Two engines are available, chosen when the environment is opened:
//
//   bolt    - one bbolt bucket per table in a single file
//   leveldb - one LevelDB directory, each key stored as
//             table ++ 0x00 ++ key
//
// Notes:
// 1. ++     = concatenation of byte data
// 2. values returned by Get and cursors are copies and may be retained
// 3. only one write transaction is open at a time, Begin blocks
// 4. a leveldb write transaction buffers its writes in a batch; Get sees
//    them through a write cache but cursors only see committed data
// 5. do not begin a read transaction while holding a write transaction
//    in the same goroutine
package storage
