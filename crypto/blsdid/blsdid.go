// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package blsdid maps committee member identifiers to BLS12-381 keys.
//
// A member identifier is a did:key whose method specific id is the base58btc
// multibase encoding of the bls12_381-g1-pub multicodec (0xea 0x01) followed by
// the 48 byte compressed public key.
package blsdid

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/luxfi/crypto/bls"
)

const (
	Prefix = "did:key:z"

	// MaxLen bounds every DID accepted from operation payloads.
	MaxLen = 78
)

var (
	ErrInvalidDID       = errors.New("invalid bls did")
	ErrInvalidSignature = errors.New("invalid bls signature")

	g1PubMulticodec = []byte{0xea, 0x01}
)

// Format returns the DID of pk.
func Format(pk *bls.PublicKey) string {
	raw := make([]byte, 0, len(g1PubMulticodec)+bls.PublicKeyLen)
	raw = append(raw, g1PubMulticodec...)
	raw = append(raw, bls.PublicKeyToCompressedBytes(pk)...)
	return Prefix + base58.Encode(raw)
}

// Parse returns the public key identified by did.
func Parse(did string) (*bls.PublicKey, error) {
	encoded, ok := strings.CutPrefix(did, Prefix)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrInvalidDID, Prefix)
	}
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDID, err)
	}
	if !bytes.HasPrefix(raw, g1PubMulticodec) {
		return nil, fmt.Errorf("%w: not a bls12_381-g1 key", ErrInvalidDID)
	}
	keyBytes := raw[len(g1PubMulticodec):]
	if len(keyBytes) != bls.PublicKeyLen {
		return nil, fmt.Errorf("%w: key length %d != %d", ErrInvalidDID, len(keyBytes), bls.PublicKeyLen)
	}
	pk, err := bls.PublicKeyFromCompressedBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDID, err)
	}
	return pk, nil
}

// IsDID reports whether s is shaped like a DID accepted as an L2 identity.
func IsDID(s string) bool {
	return strings.HasPrefix(s, "did:") && len(s) <= MaxLen
}

// ParseSignature parses a compressed G2 signature. Input of any length other
// than [bls.SignatureLen] is rejected.
func ParseSignature(b []byte) (*bls.Signature, error) {
	if len(b) != bls.SignatureLen {
		return nil, fmt.Errorf("%w: length %d != %d", ErrInvalidSignature, len(b), bls.SignatureLen)
	}
	sig, err := bls.SignatureFromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return sig, nil
}

// AggregateKeys sums pks. Aggregating zero keys is an error.
func AggregateKeys(pks []*bls.PublicKey) (*bls.PublicKey, error) {
	return bls.AggregatePublicKeys(pks)
}

// AggregateSignatures sums sigs. Aggregating zero signatures is an error.
func AggregateSignatures(sigs []*bls.Signature) (*bls.Signature, error) {
	return bls.AggregateSignatures(sigs)
}

// Verify reports whether sig is a valid signature of msg by pk.
func Verify(pk *bls.PublicKey, sig *bls.Signature, msg []byte) bool {
	if pk == nil || sig == nil {
		return false
	}
	return bls.Verify(pk, sig, msg)
}
