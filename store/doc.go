// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package store - the files of a chain database directory and the
// locks that guard them
//
// every mapped database file is created holding a single byte so it
// can be mapped before its tables are initialised; utxo_db is a
// directory owned by the transactional engine
//
// exclusive_lock is held with flock for as long as the database is
// open, so only one process can use a directory; flush_lock exists
// while mapped pages may not have reached the disk and its presence
// at open means the last shutdown was not clean
package store
