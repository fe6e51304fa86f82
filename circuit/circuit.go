// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package circuit verifies committee aggregate signatures.
//
// Every function is pure: the committee, the signer vector and the weights are
// threaded explicitly and a fresh aggregate is built per call.
package circuit

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/math/set"

	safemath "github.com/luxfi/math"

	"github.com/luxfi/l2index/codec/dagcbor"
	"github.com/luxfi/l2index/crypto/blsdid"
	"github.com/luxfi/l2index/utils/bitset"
)

var (
	ErrWeightsMismatch    = errors.New("weights length does not match committee")
	ErrWeightOverflow     = errors.New("weight overflowed")
	ErrInsufficientWeight = errors.New("signature weight is insufficient")
	ErrMalformedSignature = errors.New("malformed aggregate signature")
)

// Signature is an aggregate signature together with the vector of committee
// positions that contributed to it.
type Signature struct {
	Sig     []byte
	Signers set.Bits
}

// ParseSignature decodes the wire form of an aggregate signature: base64url
// signature bytes and a base64url signer vector.
func ParseSignature(sig, bv string) (Signature, error) {
	sigBytes, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(sig, "="))
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %w", ErrMalformedSignature, err)
	}
	if len(sigBytes) != bls.SignatureLen {
		return Signature{}, fmt.Errorf("%w: length %d != %d", ErrMalformedSignature, len(sigBytes), bls.SignatureLen)
	}
	signers, err := bitset.FromBase64URL(bv)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %w", ErrMalformedSignature, err)
	}
	return Signature{
		Sig:     sigBytes,
		Signers: signers,
	}, nil
}

// Result describes a verified circuit.
type Result struct {
	// Participants are the committee positions that signed, ascending.
	Participants []int
	PublicKeys   []*bls.PublicKey
	AggregateKey *bls.PublicKey
	VotedWeight  uint64
	TotalWeight  uint64
	Valid        bool
}

// Verify checks sig against the aggregate of the committee keys selected by
// its signer vector.
//
// If weights is nil every member weighs 1. An error is only returned for
// inputs that can not describe a circuit over keys; a well formed signature
// that fails to verify yields a Result with Valid set to false. An empty
// signer vector never verifies.
func Verify(msg []byte, sig Signature, keys []*bls.PublicKey, weights []uint64) (*Result, error) {
	if weights != nil && len(weights) != len(keys) {
		return nil, fmt.Errorf("%w: %d != %d", ErrWeightsMismatch, len(weights), len(keys))
	}
	participants, err := bitset.Members(sig.Signers, len(keys))
	if err != nil {
		return nil, err
	}

	result := &Result{
		Participants: participants,
		PublicKeys:   make([]*bls.PublicKey, len(participants)),
	}
	for i, pos := range participants {
		result.PublicKeys[i] = keys[pos]
		result.VotedWeight, err = safemath.Add(result.VotedWeight, weightOf(weights, pos))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrWeightOverflow, err)
		}
	}
	for i := range keys {
		result.TotalWeight, err = safemath.Add(result.TotalWeight, weightOf(weights, i))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrWeightOverflow, err)
		}
	}

	if len(participants) == 0 {
		return result, nil
	}
	result.AggregateKey, err = blsdid.AggregateKeys(result.PublicKeys)
	if err != nil {
		return nil, err
	}
	aggSig, err := blsdid.ParseSignature(sig.Sig)
	if err != nil {
		return result, nil
	}
	result.Valid = blsdid.Verify(result.AggregateKey, aggSig, msg)
	return result, nil
}

// VerifyValue is [Verify] over the content address of msg.
func VerifyValue(msg any, sig Signature, keys []*bls.PublicKey, weights []uint64) (*Result, error) {
	msgBytes, err := dagcbor.Hash(msg)
	if err != nil {
		return nil, err
	}
	return Verify(msgBytes, sig, keys, weights)
}

func weightOf(weights []uint64, i int) uint64 {
	if weights == nil {
		return 1
	}
	return weights[i]
}

// VerifyWeight returns nil if sigWeight is at least quorumNum/quorumDen of
// totalWeight.
func VerifyWeight(
	sigWeight uint64,
	totalWeight uint64,
	quorumNum uint64,
	quorumDen uint64,
) error {
	// Verifies that quorumNum * totalWeight <= quorumDen * sigWeight
	scaledTotalWeight := new(big.Int).SetUint64(totalWeight)
	scaledTotalWeight.Mul(scaledTotalWeight, new(big.Int).SetUint64(quorumNum))
	scaledSigWeight := new(big.Int).SetUint64(sigWeight)
	scaledSigWeight.Mul(scaledSigWeight, new(big.Int).SetUint64(quorumDen))
	if scaledTotalWeight.Cmp(scaledSigWeight) == 1 {
		return fmt.Errorf(
			"%w: %d*%d > %d*%d",
			ErrInsufficientWeight,
			quorumNum,
			totalWeight,
			quorumDen,
			sigWeight,
		)
	}
	return nil
}

// VerifyCount returns nil if sigWeight reaches the absolute quorum.
func VerifyCount(sigWeight, quorum uint64) error {
	if sigWeight < quorum {
		return fmt.Errorf("%w: %d < %d", ErrInsufficientWeight, sigWeight, quorum)
	}
	return nil
}
