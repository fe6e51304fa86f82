// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package committee

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTotalWeight(t *testing.T) {
	tests := map[string]struct {
		weights     []uint64
		expected    uint64
		expectedErr error
	}{
		"empty": {},
		"sum": {
			weights:  []uint64{1, 2, 3},
			expected: 6,
		},
		"max": {
			weights:  []uint64{math.MaxUint64 - 1, 1},
			expected: math.MaxUint64,
		},
		"overflow": {
			weights:     []uint64{math.MaxUint64, 1},
			expectedErr: ErrWeightOverflow,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			c := &Committee{}
			for _, w := range test.weights {
				c.Members = append(c.Members, Member{Weight: w})
			}
			total, err := c.TotalWeight()
			require.ErrorIs(err, test.expectedErr)
			require.Equal(test.expected, total)
		})
	}
}
