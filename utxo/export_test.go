// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

import (
	"time"

	"github.com/bitmark-inc/chainstore/storage"
)

// SetClock - replace the clock used to age blocks
func SetClock(d *Database, now func() time.Time) {
	d.now = now
}

// SetEnvironment - open the database over an existing environment
func SetEnvironment(d *Database, env storage.Environment) {
	d.env = env
}
