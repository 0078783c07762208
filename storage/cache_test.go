// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheGetAfterPut(t *testing.T) {
	c := newCache()
	c.Set(dbPut, "key", []byte("value"))

	value, written, deleted := c.Get("key")
	assert.Equal(t, []byte("value"), value, "wrong value")
	assert.True(t, written, "not written")
	assert.False(t, deleted, "marked deleted")
}

func TestCacheGetAfterDelete(t *testing.T) {
	c := newCache()
	c.Set(dbPut, "key", []byte("value"))
	c.Set(dbDelete, "key", nil)

	value, written, deleted := c.Get("key")
	assert.Nil(t, value, "deleted value returned")
	assert.True(t, written, "not written")
	assert.True(t, deleted, "not marked deleted")
}

func TestCacheClear(t *testing.T) {
	c := newCache()
	c.Set(dbPut, "key", []byte("value"))
	c.Clear()

	_, written, _ := c.Get("key")
	assert.False(t, written, "entry survived clear")
}
