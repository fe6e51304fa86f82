// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/crypto/bls/signer/localsigner"

	"github.com/luxfi/l2index/crypto/blsdid"
	"github.com/luxfi/l2index/protocol"
)

func TestGetConfig(t *testing.T) {
	tests := map[string]struct {
		givenJSON []byte
		expected  func(*testing.T) Config
	}{
		"default": {
			givenJSON: []byte(`{}`),
			expected: func(*testing.T) Config {
				return Default
			},
		},
		"empty": {
			expected: func(*testing.T) Config {
				return Default
			},
		},
		"overlay": {
			givenJSON: []byte(`{
				"params": {"network-id": "mainnet", "round-length": 20},
				"late-proposal-rounds": 2,
				"batch-size": 10,
				"poll-interval": 1000000000,
				"haf-url": "postgres://haf@localhost/haf_block_log"
			}`),
			expected: func(*testing.T) Config {
				c := Default
				c.Params.NetworkID = "mainnet"
				c.Params.RoundLength = 20
				c.LateProposalRounds = 2
				c.BatchSize = 10
				c.PollInterval = time.Second
				c.HAFURL = "postgres://haf@localhost/haf_block_log"
				return c
			},
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			c, err := GetConfig(test.givenJSON)
			require.NoError(err)
			require.Equal(test.expected(t), *c)
		})
	}
}

func TestVerify(t *testing.T) {
	tests := map[string]struct {
		mutate      func(*Config)
		expectedErr error
	}{
		"default": {
			mutate: func(*Config) {},
		},
		"zero batch size": {
			mutate: func(c *Config) {
				c.BatchSize = 0
			},
			expectedErr: errInvalidConfig,
		},
		"zero content cache": {
			mutate: func(c *Config) {
				c.ContentCacheSize = 0
			},
			expectedErr: errInvalidConfig,
		},
		"zero import batch": {
			mutate: func(c *Config) {
				c.ImportBatchSize = 0
			},
			expectedErr: errInvalidConfig,
		},
		"invalid params": {
			mutate: func(c *Config) {
				c.Params.RoundLength = 0
			},
			expectedErr: protocol.ErrInvalidParams,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			c := Default
			test.mutate(&c)
			require.ErrorIs(t, c.Verify(), test.expectedErr)
		})
	}
}

func TestGenesisCommittee(t *testing.T) {
	require := require.New(t)

	c := Default
	gc, err := c.GenesisCommittee()
	require.NoError(err)
	require.Nil(gc)

	sk, err := localsigner.New()
	require.NoError(err)
	did := blsdid.Format(sk.PublicKey())

	genesisJSON := fmt.Sprintf(`{"genesis": [
		{"account": "alice", "did": %q},
		{"account": "bob", "did": %q, "weight": 3}
	]}`, did, did)
	parsed, err := GetConfig([]byte(genesisJSON))
	require.NoError(err)

	gc, err = parsed.GenesisCommittee()
	require.NoError(err)
	require.Zero(gc.Epoch)
	require.Equal(protocol.Testnet.StartHeight, gc.Height)
	require.Len(gc.Members, 2)
	require.Equal(uint64(1), gc.Members[0].Weight)
	require.Equal(uint64(3), gc.Members[1].Weight)
	require.Equal("bob", gc.Members[1].Account)

	parsed.Genesis[0].DID = "did:key:invalid"
	_, err = parsed.GenesisCommittee()
	require.ErrorIs(err, blsdid.ErrInvalidDID)
}
