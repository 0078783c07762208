// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault_test

import (
	"testing"

	"github.com/bitmark-inc/chainstore/fault"
)

// test that the error classes are distinct
func TestErrorClasses(t *testing.T) {
	errorList := []struct {
		err      error
		exists   bool
		invalid  bool
		length   bool
		notFound bool
		process  bool
		record   bool
	}{
		{fault.ErrStoreBlockDuplicate, true, false, false, false, false, false},
		{fault.ErrFlushLockExists, true, false, false, false, false, false},
		{fault.ErrEmptyBlock, false, true, false, false, false, false},
		{fault.ErrStoreBlockMissingParent, false, true, false, false, false, false},
		{fault.ErrOutOfRange, false, false, true, false, false, false},
		{fault.ErrTruncatedData, false, false, true, false, false, false},
		{fault.ErrKeyNotFound, false, false, false, true, false, false},
		{fault.ErrReorgDataNotFound, false, false, false, true, false, false},
		{fault.ErrDiskFull, false, false, false, false, true, false},
		{fault.ErrMapFailed, false, false, false, false, true, false},
		{fault.ErrDatabaseCorrupt, false, false, false, false, false, true},
		{fault.ErrBucketCountMismatch, false, false, false, false, false, true},
	}

	for i, e := range errorList {
		err := e.err
		if fault.IsErrExists(err) != e.exists {
			t.Errorf("%d: expected 'exists' == %v for err = %v", i, e.exists, err)
		}
		if fault.IsErrInvalid(err) != e.invalid {
			t.Errorf("%d: expected 'invalid' == %v for err = %v", i, e.invalid, err)
		}
		if fault.IsErrLength(err) != e.length {
			t.Errorf("%d: expected 'length' == %v for err = %v", i, e.length, err)
		}
		if fault.IsErrNotFound(err) != e.notFound {
			t.Errorf("%d: expected 'not found' == %v for err = %v", i, e.notFound, err)
		}
		if fault.IsErrProcess(err) != e.process {
			t.Errorf("%d: expected 'process' == %v for err = %v", i, e.process, err)
		}
		if fault.IsErrRecord(err) != e.record {
			t.Errorf("%d: expected 'record' == %v for err = %v", i, e.record, err)
		}
	}
}
