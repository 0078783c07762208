// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package primitives - allocators and chained hash indexes over mapped files
//
// A record file is laid out as:
//
//   [bucket_count:4][bucket:4 ...][record_count:4][record ...]
//
// and a slab file as:
//
//   [bucket_count:4][bucket:8 ...][payload_size:8][slab ...]
//
// where every record or slab of a hash table is a chain node:
//
//   [key][next][value]
//
// An empty bucket or the end of a chain is the all ones value of the
// index type.
//
// Lock order is create lock, update lock, bucket table, mapped file.
// An accessor returned from a lookup holds the mapped file shared; it
// must be released before calling back into any structure on the same
// file.
package primitives
