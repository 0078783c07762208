// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"

	"github.com/bitmark-inc/chainstore/fault"
)

// ShortHashSize - bytes in an address hash
const ShortHashSize = 20

// EphemeralKeySize - bytes of a stealth ephemeral key
const EphemeralKeySize = 32

// ShortHash - hash160 of a public key or a redeem script
type ShortHash [ShortHashSize]byte

// script opcodes
const (
	opPushData1   = 0x4c
	opPushData2   = 0x4d
	opPushData4   = 0x4e
	opReturn      = 0x6a
	opDup         = 0x76
	opEqual       = 0x87
	opEqualVerify = 0x88
	opHash160     = 0xa9
	opCheckSig    = 0xac
)

// Hash160 - RIPEMD-160 of SHA3-256
func Hash160(data []byte) ShortHash {
	digest := sha3.Sum256(data)
	h := ripemd160.New()
	h.Write(digest[:])

	var result ShortHash
	copy(result[:], h.Sum(nil))
	return result
}

// ShortHashFromHex - decode a 40 character hex address hash
func ShortHashFromHex(s string) (ShortHash, error) {
	var result ShortHash
	b, err := hex.DecodeString(s)
	if nil != err {
		return result, err
	}
	if ShortHashSize != len(b) {
		return result, fault.ErrInvalidKeyLength
	}
	copy(result[:], b)
	return result, nil
}

// String - hex
func (h ShortHash) String() string {
	return hex.EncodeToString(h[:])
}

// PayToKeyHashScript - DUP HASH160 <hash> EQUALVERIFY CHECKSIG
func PayToKeyHashScript(h ShortHash) []byte {
	script := []byte{opDup, opHash160, ShortHashSize}
	script = append(script, h[:]...)
	return append(script, opEqualVerify, opCheckSig)
}

// PayToScriptHashScript - HASH160 <hash> EQUAL
func PayToScriptHashScript(h ShortHash) []byte {
	script := []byte{opHash160, ShortHashSize}
	script = append(script, h[:]...)
	return append(script, opEqual)
}

// NullDataScript - RETURN <data>
func NullDataScript(data []byte) []byte {
	return append([]byte{opReturn}, push(data)...)
}

// PushScript - a script of data pushes, as used to sign inputs
func PushScript(items ...[]byte) []byte {
	script := []byte{}
	for _, item := range items {
		script = append(script, push(item)...)
	}
	return script
}

func push(data []byte) []byte {
	n := len(data)
	switch {
	case n < opPushData1:
		return append([]byte{byte(n)}, data...)
	case n <= 0xff:
		return append([]byte{opPushData1, byte(n)}, data...)
	default:
		b := []byte{opPushData2, 0, 0}
		binary.LittleEndian.PutUint16(b[1:], uint16(n))
		return append(b, data...)
	}
}

// pushes - the data of a script made only of pushes
func pushes(script []byte) ([][]byte, bool) {
	items := [][]byte{}
	for i := 0; i < len(script); {
		op := int(script[i])
		i += 1

		n := 0
		switch {
		case op > 0 && op < opPushData1:
			n = op
		case opPushData1 == op && i+1 <= len(script):
			n = int(script[i])
			i += 1
		case opPushData2 == op && i+2 <= len(script):
			n = int(binary.LittleEndian.Uint16(script[i:]))
			i += 2
		case opPushData4 == op && i+4 <= len(script):
			n = int(binary.LittleEndian.Uint32(script[i:]))
			i += 4
		default:
			return nil, false
		}
		if n < 0 || i+n > len(script) {
			return nil, false
		}
		items = append(items, script[i:i+n])
		i += n
	}
	return items, true
}

// Addresses - the address hash paid by an output, if the script is a
// pay to key hash or pay to script hash
func (out Output) Addresses() []ShortHash {
	s := out.Script
	var h ShortHash
	switch {
	case 25 == len(s) && opDup == s[0] && opHash160 == s[1] && ShortHashSize == s[2] &&
		opEqualVerify == s[23] && opCheckSig == s[24]:
		copy(h[:], s[3:23])
	case 23 == len(s) && opHash160 == s[0] && ShortHashSize == s[1] && opEqual == s[22]:
		copy(h[:], s[2:22])
	default:
		return nil
	}
	return []ShortHash{h}
}

// Addresses - the address hash an input spends from, the hash160 of the
// trailing public key or redeem script push
func (in Input) Addresses() []ShortHash {
	items, ok := pushes(in.Script)
	if !ok || len(items) < 2 {
		return nil
	}
	last := items[len(items)-1]
	if 0 == len(last) {
		return nil
	}
	return []ShortHash{Hash160(last)}
}

// EphemeralKey - the stealth ephemeral key of a null data output
func (out Output) EphemeralKey() ([]byte, bool) {
	s := out.Script
	if 0 == len(s) || opReturn != s[0] {
		return nil, false
	}
	items, ok := pushes(s[1:])
	if !ok || 1 != len(items) || len(items[0]) < EphemeralKeySize {
		return nil, false
	}
	key := make([]byte, EphemeralKeySize)
	copy(key, items[0])
	return key, true
}

// StealthPrefix - the first four bytes of the SHA3-256 of a script
func StealthPrefix(script []byte) uint32 {
	digest := sha3.Sum256(script)
	return binary.LittleEndian.Uint32(digest[:4])
}
