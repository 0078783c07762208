// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package memory

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/bitmark-inc/chainstore/fault"
)

// allocate - change the file length, reserving disk blocks when growing
// so that exhaustion is reported here rather than as a fault on write
func allocate(file *os.File, current uint64, size uint64) error {
	if size > current {
		err := unix.Fallocate(int(file.Fd()), 0, int64(current), int64(size-current))
		switch err {
		case nil:
			return nil
		case unix.ENOSPC:
			return fault.ErrDiskFull
		case unix.EOPNOTSUPP, unix.ENOSYS:
			// filesystem cannot preallocate, fall back to a sparse extension
		default:
			return err
		}
	}
	if err := file.Truncate(int64(size)); nil != err {
		if pathErr, ok := err.(*os.PathError); ok && unix.ENOSPC == pathErr.Err {
			return fault.ErrDiskFull
		}
		return err
	}
	return nil
}
