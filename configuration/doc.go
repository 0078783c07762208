// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package configuration - chain database settings read from a Lua file
//
// the file is executed with most of base Lua available, so it can
// read environment variables and compute values; it must return a
// table whose keys match the gluamapper tags of Settings
package configuration
