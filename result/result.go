// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package result - outcome codes of the index and UTXO layer
//
// these are returned, never thrown; two of them are tolerated
// successes and are classified by Succeed and SucceedPrune
package result

// Code - outcome of a storage operation
type Code int

// the ordering is persisted in logs and must not change
const (
	Success Code = iota
	SuccessDuplicateCoinbase
	DuplicatedKey
	KeyNotFound
	DBEmpty
	NoDataToPrune
	DBCorrupt
	PruneError
	Other
)

var names = [...]string{
	Success:                  "success",
	SuccessDuplicateCoinbase: "success_duplicate_coinbase",
	DuplicatedKey:            "duplicated_key",
	KeyNotFound:              "key_not_found",
	DBEmpty:                  "db_empty",
	NoDataToPrune:            "no_data_to_prune",
	DBCorrupt:                "db_corrupt",
	PruneError:               "prune_error",
	Other:                    "other",
}

// String - printable name of a code
func (c Code) String() string {
	if c < 0 || int(c) >= len(names) {
		return "unknown"
	}
	return names[c]
}

// Succeed - success or a tolerated duplicate coinbase
func (c Code) Succeed() bool {
	return Success == c || SuccessDuplicateCoinbase == c
}

// SucceedPrune - success or nothing to prune
func (c Code) SucceedPrune() bool {
	return Success == c || NoDataToPrune == c
}
