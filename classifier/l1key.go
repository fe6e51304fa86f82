// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package classifier

import (
	"bytes"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // L1 key checksums are ripemd160

	"github.com/luxfi/crypto/secp256k1"
)

const (
	l1KeyPrefix      = "STM"
	l1KeyLen         = 33
	l1KeyChecksumLen = 4
)

// isValidL1PubKey reports whether s is a checksummed, on-curve L1 public key.
func isValidL1PubKey(s string) bool {
	encoded, ok := strings.CutPrefix(s, l1KeyPrefix)
	if !ok {
		return false
	}
	raw, err := base58.Decode(encoded)
	if err != nil || len(raw) != l1KeyLen+l1KeyChecksumLen {
		return false
	}
	key, checksum := raw[:l1KeyLen], raw[l1KeyLen:]
	h := ripemd160.New()
	_, _ = h.Write(key)
	if !bytes.Equal(h.Sum(nil)[:l1KeyChecksumLen], checksum) {
		return false
	}
	x, y := secp256k1.DecompressPubkey(key)
	return x != nil && y != nil
}
