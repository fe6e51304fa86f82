// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package jws verifies node announcement proofs: general JWS serializations
// signed by an Ed25519 did:key.
package jws

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/mr-tron/base58"
)

const didKeyPrefix = "did:key:z"

var (
	ErrMalformedProof = errors.New("malformed proof")
	ErrInvalidKeyID   = errors.New("invalid key id")

	ed25519PubMulticodec = []byte{0xed, 0x01}
)

// Signature is one entry of a general JWS serialization.
type Signature struct {
	Protected string `json:"protected"`
	Signature string `json:"signature"`
}

// General is a JWS in general JSON serialization.
type General struct {
	Payload    string      `json:"payload"`
	Signatures []Signature `json:"signatures"`
}

// Compact returns the compact serialization of the first signature.
func (g General) Compact() (string, error) {
	if g.Payload == "" || len(g.Signatures) == 0 {
		return "", ErrMalformedProof
	}
	s := g.Signatures[0]
	if s.Protected == "" || s.Signature == "" {
		return "", ErrMalformedProof
	}
	return s.Protected + "." + g.Payload + "." + s.Signature, nil
}

// Verifier checks proofs against the did:key named by their kid header.
type Verifier struct{}

// Verify returns the proof claims and the signer DID, without its fragment.
func (Verifier) Verify(proof General) (map[string]any, string, error) {
	compact, err := proof.Compact()
	if err != nil {
		return nil, "", err
	}

	var signer string
	token, err := jwt.Parse(
		compact,
		func(token *jwt.Token) (any, error) {
			kid, ok := token.Header["kid"].(string)
			if !ok {
				return nil, fmt.Errorf("%w: missing kid", ErrInvalidKeyID)
			}
			did, _, _ := strings.Cut(kid, "#")
			pk, err := ParseDIDKey(did)
			if err != nil {
				return nil, err
			}
			signer = did
			return pk, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		// Verdicts must not depend on the time of indexing.
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrMalformedProof, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, "", ErrMalformedProof
	}
	return claims, signer, nil
}

// ParseDIDKey returns the Ed25519 key identified by did.
func ParseDIDKey(did string) (ed25519.PublicKey, error) {
	encoded, ok := strings.CutPrefix(did, didKeyPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKeyID, did)
	}
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyID, err)
	}
	if len(raw) != len(ed25519PubMulticodec)+ed25519.PublicKeySize ||
		raw[0] != ed25519PubMulticodec[0] ||
		raw[1] != ed25519PubMulticodec[1] {
		return nil, fmt.Errorf("%w: not an ed25519 key", ErrInvalidKeyID)
	}
	return ed25519.PublicKey(raw[len(ed25519PubMulticodec):]), nil
}

// FormatDIDKey returns the did:key of pk.
func FormatDIDKey(pk ed25519.PublicKey) string {
	raw := make([]byte, 0, len(ed25519PubMulticodec)+len(pk))
	raw = append(raw, ed25519PubMulticodec...)
	raw = append(raw, pk...)
	return didKeyPrefix + base58.Encode(raw)
}
