// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bitset converts committee signer vectors between their wire
// encodings and [set.Bits].
//
// Bit i of the vector is the i-th least significant bit of the big-endian
// number the encoding represents. Bit i set means the committee member at
// position i contributed to the aggregate signature.
package bitset

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/luxfi/math/set"
)

var (
	ErrInvalidEncoding = errors.New("invalid bitset encoding")
	ErrUnknownSigner   = errors.New("bitset references unknown committee member")
)

// FromHex parses a hex encoded bit vector. Odd length strings and an optional
// 0x prefix are accepted.
func FromHex(s string) (set.Bits, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return set.NewBits(), nil
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return set.Bits{}, fmt.Errorf("%w: %q is not hex", ErrInvalidEncoding, s)
	}
	return set.BitsFromBytes(n.Bytes()), nil
}

// FromBase64URL parses a base64url encoded bit vector. Padding is optional.
func FromBase64URL(s string) (set.Bits, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return set.Bits{}, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	return set.BitsFromBytes(b), nil
}

// ToHex returns the minimal hex encoding of bits.
func ToHex(bits set.Bits) string {
	return hex.EncodeToString(bits.Bytes())
}

// ToBase64URL returns the unpadded base64url encoding of bits.
func ToBase64URL(bits set.Bits) string {
	return base64.RawURLEncoding.EncodeToString(bits.Bytes())
}

// FromMembers returns the vector with exactly the provided positions set.
func FromMembers(positions ...int) set.Bits {
	return set.NewBits(positions...)
}

// Members returns the set positions of bits in ascending order.
//
// Returns an error if bits references a position >= size.
func Members(bits set.Bits, size int) ([]int, error) {
	if err := Fits(bits, size); err != nil {
		return nil, err
	}
	positions := make([]int, 0, bits.Len())
	for i := 0; i < size; i++ {
		if bits.Contains(i) {
			positions = append(positions, i)
		}
	}
	return positions, nil
}

// Fits returns an error if bits is longer than a committee of size members.
func Fits(bits set.Bits, size int) error {
	if bits.BitLen() > size {
		return fmt.Errorf(
			"%w: highest position (%d) >= committee size (%d)",
			ErrUnknownSigner,
			bits.BitLen()-1,
			size,
		)
	}
	return nil
}
