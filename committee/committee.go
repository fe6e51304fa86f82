// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package committee

import (
	"errors"
	"fmt"

	"github.com/luxfi/crypto/bls"
	safemath "github.com/luxfi/math"
)

var (
	ErrNoCommittee    = errors.New("no committee")
	ErrWeightOverflow = errors.New("weight overflowed")
)

// Member is a committee seat.
type Member struct {
	Account string
	// DID is the consensus key in did:key form.
	DID    string
	Key    *bls.PublicKey
	Weight uint64
}

// Committee is the ordered member list governing a range of heights. Member
// order defines the positions of signer vectors.
type Committee struct {
	Epoch uint64
	// Height is the L1 height the committee took effect at.
	Height  uint64
	Members []Member
}

func (c *Committee) Len() int {
	return len(c.Members)
}

// Keys returns the member keys in committee order.
func (c *Committee) Keys() []*bls.PublicKey {
	keys := make([]*bls.PublicKey, len(c.Members))
	for i, m := range c.Members {
		keys[i] = m.Key
	}
	return keys
}

// Weights returns the member weights in committee order.
func (c *Committee) Weights() []uint64 {
	weights := make([]uint64, len(c.Members))
	for i, m := range c.Members {
		weights[i] = m.Weight
	}
	return weights
}

// TotalWeight returns the sum of the member weights.
func (c *Committee) TotalWeight() (uint64, error) {
	var (
		total uint64
		err   error
	)
	for _, m := range c.Members {
		total, err = safemath.Add(total, m.Weight)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrWeightOverflow, err)
		}
	}
	return total, nil
}

// Index returns the position of account, or -1.
func (c *Committee) Index(account string) int {
	for i, m := range c.Members {
		if m.Account == account {
			return i
		}
	}
	return -1
}
