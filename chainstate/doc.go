// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainstate - the block chain database
//
// A Database owns one directory: the memory mapped block, transaction,
// spend, history and stealth stores, plus the transactional unspent
// output set under utxo_db.  Writers are serialised; readers take a
// BeginRead handle and retry when IsReadValid reports a concurrent
// write.
//
// Reorganizations are queued to a background writer and complete
// through a handler, a second background process prunes the
// reorganization pool of the unspent output set.
package chainstate
