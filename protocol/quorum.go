// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import "math/big"

// ElectionQuorum returns the minimum voted weight an election of epoch needs,
// given the total weight of the previous committee and the number of heights
// elapsed since the previous election.
//
// Before [Params.ElectionQuorumEpoch] the quorum is two thirds of the total,
// rounded up. From it on the quorum shrinks linearly from that value at
// [Params.ElectionMinElapsed] to a simple majority at
// [Params.ElectionMaxElapsed]. Elapsed values outside the bounds are clamped.
func (p *Params) ElectionQuorum(epoch uint64, total uint64, elapsed uint64) uint64 {
	maxQuorum := ceilTwoThirds(total)
	if epoch < p.ElectionQuorumEpoch {
		return maxQuorum
	}
	minQuorum := total/2 + 1
	if maxQuorum <= minQuorum {
		return minQuorum
	}

	elapsed = min(max(elapsed, p.ElectionMinElapsed), p.ElectionMaxElapsed)
	var (
		span  = new(big.Int).SetUint64(p.ElectionMaxElapsed - p.ElectionMinElapsed)
		drift = new(big.Int).SetUint64(p.ElectionMaxElapsed - elapsed)
		delta = new(big.Int).SetUint64(maxQuorum - minQuorum)
	)
	// minQuorum + round(delta * drift / span), rounding half up. The result
	// is at most delta.
	n := new(big.Int).Mul(delta, drift)
	n.Lsh(n, 1)
	n.Add(n, span)
	n.Quo(n, span.Lsh(span, 1))
	return minQuorum + n.Uint64()
}

func ceilTwoThirds(total uint64) uint64 {
	return total/3*2 + (total%3*2+2)/3
}
