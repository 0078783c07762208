// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/merkle"
)

// HeaderSize - packed size of a block header
const HeaderSize = 4 + merkle.DigestLength + merkle.DigestLength + 4 + 4 + 4

// Header - fixed size block header
type Header struct {
	Version   uint32
	Previous  merkle.Digest
	Merkle    merkle.Digest
	Timestamp uint32
	Bits      uint32
	Nonce     uint32
}

// Pack - version ++ previous ++ merkle ++ timestamp ++ bits ++ nonce
func (h *Header) Pack() []byte {
	buffer := make([]byte, 0, HeaderSize)
	buffer = appendUint32(buffer, h.Version)
	buffer = append(buffer, h.Previous[:]...)
	buffer = append(buffer, h.Merkle[:]...)
	buffer = appendUint32(buffer, h.Timestamp)
	buffer = appendUint32(buffer, h.Bits)
	return appendUint32(buffer, h.Nonce)
}

// UnpackHeader - decode a packed header
func UnpackHeader(buffer []byte) (*Header, error) {
	if len(buffer) < HeaderSize {
		return nil, fault.ErrTruncatedData
	}
	r := newReader(buffer[:HeaderSize])
	h := r.header()
	return h, r.err
}

func (r *reader) header() *Header {
	return &Header{
		Version:   r.uint32(),
		Previous:  r.digest(),
		Merkle:    r.digest(),
		Timestamp: r.uint32(),
		Bits:      r.uint32(),
		Nonce:     r.uint32(),
	}
}

// Hash - SHA3-256 of the packed header
func (h *Header) Hash() merkle.Digest {
	return merkle.NewDigest(h.Pack())
}
