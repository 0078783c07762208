// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package primitives

import (
	"hash/fnv"
)

// bucketIndex - FNV-1a of the key reduced to a bucket
func bucketIndex(key []byte, buckets uint64) uint64 {
	h := fnv.New64a()
	h.Write(key)
	return h.Sum64() % buckets
}
