// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package memory - growable memory mapped files
//
// A MappedFile owns one file and its mapping. Bytes of the mapping
// are only reachable through an Accessor (shared lock) or an
// Allocation (exclusive lock); both must be released before the
// holder returns, since a concurrent resize may unmap the region.
//
// Growth is a single truncate-then-remap step under the exclusive
// lock. Reserve downgrades to a shared lock once the remap is done,
// Resize keeps the exclusive lock for an immediate write.
package memory
