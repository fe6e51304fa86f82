// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contractid derives and checks contract addresses.
//
// A contract address is the bech32 encoding, under the "vs4" prefix, of the
// content address of {ref_id: creating transaction id, index: operation
// position}.
package contractid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/luxfi/l2index/codec/dagcbor"
)

const (
	HRP    = "vs4"
	MaxLen = 68
)

var ErrInvalid = errors.New("invalid contract id")

type reference struct {
	RefID string `cbor:"ref_id"`
	Index uint32 `cbor:"index"`
}

// Derive returns the address of the contract created by operation opIndex of
// transaction trxID.
func Derive(trxID string, opIndex uint32) (string, error) {
	c, err := dagcbor.Sum(reference{
		RefID: trxID,
		Index: opIndex,
	})
	if err != nil {
		return "", err
	}
	conv, err := bech32.ConvertBits(c.Bytes(), 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(HRP, conv)
}

// Validate returns an error if id is not shaped like a contract address.
func Validate(id string) error {
	if len(id) > MaxLen || !strings.HasPrefix(id, HRP) {
		return fmt.Errorf("%w: %q", ErrInvalid, id)
	}
	hrp, _, err := bech32.Decode(id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if hrp != HRP {
		return fmt.Errorf("%w: prefix %q", ErrInvalid, hrp)
	}
	return nil
}
