// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bitset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	tests := map[string]struct {
		size      int
		positions []int
	}{
		"single member": {
			size:      1,
			positions: []int{0},
		},
		"non byte aligned": {
			size:      17,
			positions: []int{0, 3, 8, 15, 16},
		},
		"non byte aligned sparse": {
			size:      17,
			positions: []int{16},
		},
		"full byte range": {
			size:      256,
			positions: []int{0, 1, 7, 8, 100, 128, 200, 254, 255},
		},
		"empty": {
			size:      256,
			positions: []int{},
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			bits := FromMembers(test.positions...)

			fromHex, err := FromHex(ToHex(bits))
			require.NoError(err)
			got, err := Members(fromHex, test.size)
			require.NoError(err)
			require.Equal(test.positions, got)

			fromB64, err := FromBase64URL(ToBase64URL(bits))
			require.NoError(err)
			got, err = Members(fromB64, test.size)
			require.NoError(err)
			require.Equal(test.positions, got)
		})
	}
}

func TestFromHex(t *testing.T) {
	tests := map[string]struct {
		in        string
		size      int
		expected  []int
		expectErr error
	}{
		"101": {
			in:       "5",
			size:     3,
			expected: []int{0, 2},
		},
		"prefixed": {
			in:       "0x05",
			size:     3,
			expected: []int{0, 2},
		},
		"leading zero bytes": {
			in:       "0005",
			size:     3,
			expected: []int{0, 2},
		},
		"empty": {
			in:       "",
			size:     3,
			expected: []int{},
		},
		"not hex": {
			in:        "zz",
			expectErr: ErrInvalidEncoding,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			bits, err := FromHex(test.in)
			require.ErrorIs(err, test.expectErr)
			if test.expectErr != nil {
				return
			}
			got, err := Members(bits, test.size)
			require.NoError(err)
			require.Equal(test.expected, got)
		})
	}
}

func TestFits(t *testing.T) {
	require := require.New(t)

	bits := FromMembers(0, 3)
	require.NoError(Fits(bits, 4))
	require.ErrorIs(Fits(bits, 3), ErrUnknownSigner)

	_, err := Members(bits, 3)
	require.ErrorIs(err, ErrUnknownSigner)
}

func TestFromBase64URLInvalid(t *testing.T) {
	_, err := FromBase64URL("!!")
	require.ErrorIs(t, err, ErrInvalidEncoding)
}
