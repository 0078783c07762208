// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// +build !linux

package memory

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/bitmark-inc/chainstore/fault"
)

// allocate - change the file length
func allocate(file *os.File, current uint64, size uint64) error {
	if err := file.Truncate(int64(size)); nil != err {
		if pathErr, ok := err.(*os.PathError); ok && unix.ENOSPC == pathErr.Err {
			return fault.ErrDiskFull
		}
		return err
	}
	return nil
}
