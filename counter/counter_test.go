// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package counter_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/chainstore/counter"
)

// test incrementing/decrementing a counter
func TestCounter(t *testing.T) {
	var c1 counter.Counter

	assert.True(t, c1.IsZero(), "counter is not zero at start")

	for i := 0; i < 5; i += 1 {
		c1.Increment()
	}
	assert.Equal(t, uint64(5), c1.Uint64(), "counter after incrementing")
	assert.True(t, c1.IsOdd())

	c1.Decrement()
	assert.Equal(t, uint64(4), c1.Uint64(), "counter after decrementing")
	assert.False(t, c1.IsOdd())

	for i := 0; i < 4; i += 1 {
		c1.Decrement()
	}
	assert.True(t, c1.IsZero(), "counter did not return to zero")

	c1.Decrement()

	// check against underflow, i.e. twos complement -1
	assert.Equal(t, ^uint64(0), c1.Uint64(), "counter did not underflow")

	assert.Equal(t, ^uint64(0), c1.Reset())
	assert.True(t, c1.IsZero())
}

func TestConcurrentIncrement(t *testing.T) {
	var c counter.Counter
	var wg sync.WaitGroup

	for i := 0; i < 8; i += 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j += 1 {
				c.Increment()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(8000), c.Uint64())
}
