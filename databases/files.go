// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package databases

import (
	"github.com/bitmark-inc/chainstore/memory"
)

// open every file, closing the ones already opened if one fails
func openFiles(files ...*memory.MappedFile) error {
	for i, f := range files {
		if err := f.Open(); nil != err {
			for _, opened := range files[:i] {
				opened.Close()
			}
			return err
		}
	}
	return nil
}

// close every file, returning the first error
func closeFiles(files ...*memory.MappedFile) error {
	var first error
	for _, f := range files {
		if err := f.Close(); nil != err && nil == first {
			first = err
		}
	}
	return first
}

// flush every file, returning the first error
func flushFiles(files ...*memory.MappedFile) error {
	var first error
	for _, f := range files {
		if err := f.Flush(); nil != err && nil == first {
			first = err
		}
	}
	return first
}

// run each step until one fails
func firstError(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); nil != err {
			return err
		}
	}
	return nil
}
