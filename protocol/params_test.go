// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func testParams() Params {
	p := Testnet
	p.BLSHeight = 100
	p.WeightedHeight = 200
	p.MultisigSwitchHeight = 150
	p.ElectionQuorumEpoch = 5
	return p
}

func TestVersionAt(t *testing.T) {
	p := testParams()

	tests := map[uint64]Version{
		0:   Legacy,
		99:  Legacy,
		100: BLS,
		199: BLS,
		200: Weighted,
		500: Weighted,
	}
	for height, expected := range tests {
		require.Equal(t, expected, p.VersionAt(height), "height %d", height)
	}
}

func TestMultisigAt(t *testing.T) {
	require := require.New(t)

	p := testParams()
	require.Equal("vsc.gateway", p.MultisigAt(149))
	require.Equal("vsc.gateway2", p.MultisigAt(150))

	p.NextMultisigAccount = ""
	require.Equal("vsc.gateway", p.MultisigAt(150))
}

func TestGeometry(t *testing.T) {
	require := require.New(t)

	p := testParams()
	require.Equal(uint64(1200), p.WindowLength())
	require.Equal(uint64(120), p.RoundFloor(129))
	require.Equal(uint64(130), p.RoundFloor(130))
	require.Equal(uint64(1200), p.WindowStart(1200))
	require.Equal(uint64(1200), p.WindowStart(2399))
	require.Equal(uint64(0), p.WindowStart(1199))
	require.Equal(uint64(1200), p.FirstSeedHeight(2450))
	require.Equal(uint64(0), p.FirstSeedHeight(1300))
	require.Equal(uint64(0), p.FirstSeedHeight(5))
}

func TestVerify(t *testing.T) {
	tests := map[string]func(*Params){
		"no network":       func(p *Params) { p.NetworkID = "" },
		"no multisig":      func(p *Params) { p.MultisigAccount = "" },
		"no rounds":        func(p *Params) { p.TotalRounds = 0 },
		"quorum above one": func(p *Params) { p.BlockQuorumNum = 4 },
		"inverted bounds":  func(p *Params) { p.ElectionMaxElapsed = p.ElectionMinElapsed },
		"weighted first":   func(p *Params) { p.WeightedHeight = p.BLSHeight - 1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			p := testParams()
			require.NoError(t, p.Verify())
			mutate(&p)
			require.ErrorIs(t, p.Verify(), ErrInvalidParams)
		})
	}
}

func TestElectionQuorum(t *testing.T) {
	p := testParams()

	tests := map[string]struct {
		epoch    uint64
		total    uint64
		elapsed  uint64
		expected uint64
	}{
		"legacy epoch ignores elapsed": {
			epoch:    4,
			total:    100,
			elapsed:  p.ElectionMaxElapsed,
			expected: 67,
		},
		"at min bound": {
			epoch:    5,
			total:    100,
			elapsed:  p.ElectionMinElapsed,
			expected: 67,
		},
		"below min bound": {
			epoch:    5,
			total:    100,
			elapsed:  0,
			expected: 67,
		},
		"at max bound": {
			epoch:    5,
			total:    100,
			elapsed:  p.ElectionMaxElapsed,
			expected: 51,
		},
		"after max bound": {
			epoch:    5,
			total:    100,
			elapsed:  10 * p.ElectionMaxElapsed,
			expected: 51,
		},
		"halfway": {
			epoch:    5,
			total:    100,
			elapsed:  (p.ElectionMinElapsed + p.ElectionMaxElapsed) / 2,
			expected: 59,
		},
		"single member": {
			epoch:    5,
			total:    1,
			elapsed:  p.ElectionMinElapsed,
			expected: 1,
		},
		"three members": {
			epoch:    5,
			total:    3,
			elapsed:  p.ElectionMinElapsed,
			expected: 2,
		},
		"max weight at min bound": {
			epoch:    5,
			total:    math.MaxUint64,
			elapsed:  p.ElectionMinElapsed,
			expected: math.MaxUint64 / 3 * 2,
		},
		"max weight at max bound": {
			epoch:    5,
			total:    math.MaxUint64,
			elapsed:  p.ElectionMaxElapsed,
			expected: math.MaxUint64/2 + 1,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, test.expected, p.ElectionQuorum(test.epoch, test.total, test.elapsed))
		})
	}
}
