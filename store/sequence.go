// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"github.com/bitmark-inc/chainstore/counter"
)

// Handle - the sequence seen by a reader when it began
type Handle uint64

// SequentialLock - optimistic reads against a single writer
//
// the sequence is odd while a write is in progress; a read is valid
// only if the sequence it began with is even and still current
type SequentialLock struct {
	sequence counter.Counter
}

// BeginRead - snapshot the sequence
func (s *SequentialLock) BeginRead() Handle {
	return Handle(s.sequence.Uint64())
}

// IsReadValid - true if no write began or was in progress since the handle
func (s *SequentialLock) IsReadValid(h Handle) bool {
	return uint64(h) == s.sequence.Uint64() && !s.IsWriteLocked(h)
}

// IsWriteLocked - true if a write was in progress when the handle was taken
func (s *SequentialLock) IsWriteLocked(h Handle) bool {
	return 1 == h&1
}

// BeginWrite - mark a write in progress, false if one already was
func (s *SequentialLock) BeginWrite() bool {
	return s.IsWriteLocked(Handle(s.sequence.Increment()))
}

// EndWrite - mark the write finished, false if none was in progress
func (s *SequentialLock) EndWrite() bool {
	return !s.IsWriteLocked(Handle(s.sequence.Increment()))
}
