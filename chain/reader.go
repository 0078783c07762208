// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"encoding/binary"

	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/merkle"
)

// reader - sequential little endian decoder that records the first error
type reader struct {
	buffer []byte
	offset int
	err    error
}

func newReader(buffer []byte) *reader {
	return &reader{buffer: buffer}
}

func (r *reader) next(n int) []byte {
	if nil != r.err {
		return nil
	}
	if n < 0 || r.offset+n > len(r.buffer) {
		r.err = fault.ErrTruncatedData
		return nil
	}
	b := r.buffer[r.offset : r.offset+n]
	r.offset += n
	return b
}

func (r *reader) uint32() uint32 {
	b := r.next(4)
	if nil == b {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) uint64() uint64 {
	b := r.next(8)
	if nil == b {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) varint() uint64 {
	if nil != r.err {
		return 0
	}
	value, n := FromVarint64(r.buffer[r.offset:])
	if 0 == n {
		r.err = fault.ErrTruncatedData
		return 0
	}
	r.offset += n
	return value
}

// count - a varint bounded by the bytes left, each item using at least minimum bytes
func (r *reader) count(minimum int) int {
	n := r.varint()
	remaining := uint64(len(r.buffer) - r.offset)
	if nil == r.err && (n > remaining || n*uint64(minimum) > remaining) {
		r.err = fault.ErrTruncatedData
		return 0
	}
	return int(n)
}

func (r *reader) bytes() []byte {
	n := r.varint()
	if n > uint64(len(r.buffer)) {
		r.err = fault.ErrTruncatedData
		return nil
	}
	b := r.next(int(n))
	if nil == b {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

func (r *reader) digest() merkle.Digest {
	var d merkle.Digest
	copy(d[:], r.next(merkle.DigestLength))
	return d
}

func appendUint32(buffer []byte, value uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], value)
	return append(buffer, b[:]...)
}

func appendUint64(buffer []byte, value uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], value)
	return append(buffer, b[:]...)
}

func appendBytes(buffer []byte, data []byte) []byte {
	buffer = AppendVarint64(buffer, uint64(len(data)))
	return append(buffer, data...)
}
