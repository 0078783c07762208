// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package merkle

// Root - merkle root of a set of transaction ids
//
// each level hashes adjacent pairs, an odd node is paired with itself;
// the root of a single id is that id and of no ids the zero digest
func Root(ids []Digest) Digest {
	if 0 == len(ids) {
		return Digest{}
	}

	level := make([]Digest, len(ids))
	copy(level, ids)

	for n := len(level); n > 1; n = (n + 1) / 2 {
		for i := 0; i < n; i += 2 {
			j := i + 1
			if j == n {
				j = i // compensate for odd number
			}
			buffer := make([]byte, 0, 2*DigestLength)
			buffer = append(buffer, level[i][:]...)
			buffer = append(buffer, level[j][:]...)
			level[i/2] = NewDigest(buffer)
		}
	}
	return level[0]
}
