// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/bitmark-inc/chainstore/chain"
)

// headerCache - recently read headers by height, a nil cache holds nothing
type headerCache struct {
	cache *lru.Cache
}

func newHeaderCache(size int) (*headerCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New(size)
	if nil != err {
		return nil, err
	}
	return &headerCache{cache: c}, nil
}

func (h *headerCache) get(height uint32) (*chain.Header, bool) {
	if nil == h {
		return nil, false
	}
	v, ok := h.cache.Get(height)
	if !ok {
		return nil, false
	}
	header := *v.(*chain.Header)
	return &header, true
}

func (h *headerCache) add(height uint32, header *chain.Header) {
	if nil == h {
		return
	}
	stored := *header
	h.cache.Add(height, &stored)
}

func (h *headerCache) remove(height uint32) {
	if nil == h {
		return
	}
	h.cache.Remove(height)
}

func (h *headerCache) purge() {
	if nil == h {
		return
	}
	h.cache.Purge()
}
