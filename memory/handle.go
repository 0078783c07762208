// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package memory

import (
	"encoding/binary"
	"sync"
)

// Memory - a lock coupled view into a mapping
type Memory interface {
	Bytes() []byte
	Release()
}

// handle bundles the view with the function that drops its lock
type handle struct {
	data   []byte
	unlock func()
	once   sync.Once
}

// Bytes - the view; must not be retained after Release
func (h *handle) Bytes() []byte {
	return h.data
}

// Len - number of bytes in the view
func (h *handle) Len() int {
	return len(h.data)
}

// Release - drop the lock, safe to call more than once
func (h *handle) Release() {
	h.once.Do(func() {
		h.data = nil
		if nil != h.unlock {
			h.unlock()
		}
	})
}

// Restrict - narrow the view to [offset, offset+length), a zero length
// keeps everything from offset onwards
func (h *handle) Restrict(offset int, length int) {
	if 0 == length {
		h.data = h.data[offset:len(h.data):len(h.data)]
		return
	}
	end := offset + length
	h.data = h.data[offset:end:end]
}

// Slice - bounds checked sub-view, panics outside the view
func (h *handle) Slice(offset int, length int) []byte {
	end := offset + length
	return h.data[offset:end:end]
}

// Uint32 - little endian read at offset within the view
func (h *handle) Uint32(offset int) uint32 {
	return binary.LittleEndian.Uint32(h.data[offset : offset+4])
}

// PutUint32 - little endian write at offset within the view
func (h *handle) PutUint32(offset int, value uint32) {
	binary.LittleEndian.PutUint32(h.data[offset:offset+4], value)
}

// Uint64 - little endian read at offset within the view
func (h *handle) Uint64(offset int) uint64 {
	return binary.LittleEndian.Uint64(h.data[offset : offset+8])
}

// PutUint64 - little endian write at offset within the view
func (h *handle) PutUint64(offset int, value uint64) {
	binary.LittleEndian.PutUint64(h.data[offset:offset+8], value)
}

// Accessor - view held under the shared remap lock
type Accessor struct {
	handle
}

// Allocation - view held under the exclusive remap lock
type Allocation struct {
	handle
}
