// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import (
	"time"

	"github.com/bitmark-inc/logger"
)

const defaultPruneInterval = 10 * time.Minute

// writer - runs queued write requests in order
type writer struct {
	requests <-chan func()
}

func (w *writer) Run(args interface{}, shutdown <-chan struct{}) {
	log := args.(*logger.L)
	log.Info("writer: starting…")

loop:
	for {
		select {
		case <-shutdown:
			break loop
		case request := <-w.requests:
			request()
		}
	}

	// queued requests still complete so every handler is called
	for {
		select {
		case request := <-w.requests:
			request()
		default:
			log.Info("writer: stopped")
			return
		}
	}
}

// pruner - periodically trims the reorganization pool
type pruner struct {
	database *Database
	interval time.Duration
}

func (p *pruner) Run(args interface{}, shutdown <-chan struct{}) {
	log := args.(*logger.L)
	log.Info("pruner: starting…")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-shutdown:
			log.Info("pruner: stopped")
			return
		case <-ticker.C:
			if err := p.database.Prune(); nil != err {
				log.Errorf("pruner: error: %s", err)
			}
		}
	}
}
