// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"encoding/binary"
	"fmt"

	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/merkle"
)

// PointSize - packed size of a point
const PointSize = merkle.DigestLength + 4

// NullIndex - the index of the previous output of a coinbase input
const NullIndex = uint32(0xffffffff)

// Point - a transaction output (outpoint) or input (inpoint) reference
type Point struct {
	Hash  merkle.Digest
	Index uint32
}

// NullPoint - previous output of a coinbase input
func NullPoint() Point {
	return Point{Index: NullIndex}
}

// IsNull - true for the previous output of a coinbase input
func (p Point) IsNull() bool {
	return NullIndex == p.Index && p.Hash.IsZero()
}

// Pack - hash ++ index(LE 4 bytes)
func (p Point) Pack() []byte {
	buffer := make([]byte, 0, PointSize)
	buffer = append(buffer, p.Hash[:]...)
	return appendUint32(buffer, p.Index)
}

// PackCompact - hash ++ index(LE 2 bytes), for index values below 65536
func (p Point) PackCompact() []byte {
	buffer := make([]byte, merkle.DigestLength+2)
	copy(buffer, p.Hash[:])
	binary.LittleEndian.PutUint16(buffer[merkle.DigestLength:], uint16(p.Index))
	return buffer
}

// UnpackPoint - decode a packed point
func UnpackPoint(buffer []byte) (Point, error) {
	if PointSize != len(buffer) {
		return Point{}, fault.ErrInvalidValueLength
	}
	var p Point
	copy(p.Hash[:], buffer)
	p.Index = binary.LittleEndian.Uint32(buffer[merkle.DigestLength:])
	return p, nil
}

// Checksum - a 64 bit value identifying the point in history rows
//
// the high 49 bits come from the hash and the low 15 bits from the index
func (p Point) Checksum() uint64 {
	const indexMask = uint64(0x7fff)
	fromHash := binary.LittleEndian.Uint64(p.Hash[12:20])
	return fromHash&^indexMask | uint64(p.Index)&indexMask
}

// String - hash:index
func (p Point) String() string {
	return fmt.Sprintf("%s:%d", p.Hash, p.Index)
}
