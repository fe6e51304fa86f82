// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package jws

import (
	"crypto/ed25519"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, claims jwt.MapClaims) (General, string) {
	t.Helper()
	require := require.New(t)

	pk, sk, err := ed25519.GenerateKey(nil)
	require.NoError(err)
	did := FormatDIDKey(pk)

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = did + "#" + strings.TrimPrefix(did, "did:key:")
	compact, err := token.SignedString(sk)
	require.NoError(err)

	parts := strings.Split(compact, ".")
	require.Len(parts, 3)
	return General{
		Payload: parts[1],
		Signatures: []Signature{{
			Protected: parts[0],
			Signature: parts[2],
		}},
	}, did
}

func TestVerify(t *testing.T) {
	require := require.New(t)

	proof, did := sign(t, jwt.MapClaims{
		"net_id":     "testnet",
		"git_commit": "abc",
	})

	claims, signer, err := Verifier{}.Verify(proof)
	require.NoError(err)
	require.Equal(did, signer)
	require.Equal("testnet", claims["net_id"])
}

func TestVerifyIgnoresTimeClaims(t *testing.T) {
	now := time.Now()
	tests := map[string]jwt.MapClaims{
		"expired":        {"net_id": "testnet", "exp": now.Add(-time.Hour).Unix()},
		"issued later":   {"net_id": "testnet", "iat": now.Add(time.Hour).Unix()},
		"not yet usable": {"net_id": "testnet", "nbf": now.Add(time.Hour).Unix()},
	}
	for name, claims := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			proof, did := sign(t, claims)
			got, signer, err := Verifier{}.Verify(proof)
			require.NoError(err)
			require.Equal(did, signer)
			require.Equal("testnet", got["net_id"])
		})
	}
}

func TestVerifyTampered(t *testing.T) {
	require := require.New(t)

	proof, _ := sign(t, jwt.MapClaims{"net_id": "testnet"})
	other, _ := sign(t, jwt.MapClaims{"net_id": "mainnet"})
	proof.Payload = other.Payload

	_, _, err := Verifier{}.Verify(proof)
	require.ErrorIs(err, ErrMalformedProof)
}

func TestVerifyMalformed(t *testing.T) {
	tests := map[string]General{
		"empty":           {},
		"no signatures":   {Payload: "e30"},
		"empty protected": {Payload: "e30", Signatures: []Signature{{Signature: "x"}}},
	}
	for name, proof := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Verifier{}.Verify(proof)
			require.ErrorIs(t, err, ErrMalformedProof)
		})
	}
}

func TestParseDIDKey(t *testing.T) {
	require := require.New(t)

	pk, _, err := ed25519.GenerateKey(nil)
	require.NoError(err)

	got, err := ParseDIDKey(FormatDIDKey(pk))
	require.NoError(err)
	require.Equal(pk, got)

	_, err = ParseDIDKey("did:web:example.com")
	require.ErrorIs(err, ErrInvalidKeyID)
	_, err = ParseDIDKey("did:key:z111")
	require.ErrorIs(err, ErrInvalidKeyID)
}
