// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package protocol holds the consensus parameters of the network and the
// rules that change with protocol history.
package protocol

import (
	"errors"
	"fmt"
)

// Version selects the operation dialect in effect at an L1 height.
type Version uint8

const (
	// Legacy operations predate committee signatures.
	Legacy Version = iota
	// BLS operations carry committee aggregate signatures. Every member
	// weighs 1.
	BLS
	// Weighted operations carry per-member election weights.
	Weighted
)

var ErrInvalidParams = errors.New("invalid protocol parameters")

func (v Version) String() string {
	switch v {
	case Legacy:
		return "legacy"
	case BLS:
		return "bls"
	case Weighted:
		return "weighted"
	default:
		return fmt.Sprintf("version(%d)", uint8(v))
	}
}

// Params are the consensus parameters shared by every validator. Two indexers
// with different Params derive different chains.
type Params struct {
	// NetworkID must be carried by every network bound operation.
	NetworkID string `json:"network-id"`
	// StartHeight is the first L1 height with L2 activity. Block ranges
	// can not begin below it.
	StartHeight uint64 `json:"start-height"`

	BLSHeight      uint64 `json:"bls-height"`
	WeightedHeight uint64 `json:"weighted-height"`

	MultisigAccount      string `json:"multisig-account"`
	NextMultisigAccount  string `json:"next-multisig-account"`
	MultisigSwitchHeight uint64 `json:"multisig-switch-height"`

	// ContractProofHeight is the height from which contract creation must
	// carry a storage proof.
	ContractProofHeight uint64 `json:"contract-proof-height"`

	RoundLength uint64 `json:"round-length"`
	TotalRounds uint64 `json:"total-rounds"`

	BlockQuorumNum uint64 `json:"block-quorum-num"`
	BlockQuorumDen uint64 `json:"block-quorum-den"`

	// ElectionQuorumEpoch is the first epoch whose quorum is interpolated
	// by the time elapsed since the previous election.
	ElectionQuorumEpoch uint64 `json:"election-quorum-epoch"`
	ElectionMinElapsed  uint64 `json:"election-min-elapsed"`
	ElectionMaxElapsed  uint64 `json:"election-max-elapsed"`
}

// Testnet are the parameters of the public test network.
var Testnet = Params{
	NetworkID:            "testnet/d12e6110-9c8c-4498-88f8-67ddf90d451c",
	StartHeight:          74869131,
	BLSHeight:            74869131,
	WeightedHeight:       90000000,
	MultisigAccount:      "vsc.gateway",
	NextMultisigAccount:  "vsc.gateway2",
	MultisigSwitchHeight: 85000000,
	ContractProofHeight:  84162592,
	RoundLength:          10,
	TotalRounds:          120,
	BlockQuorumNum:       2,
	BlockQuorumDen:       3,
	ElectionQuorumEpoch:  2,
	ElectionMinElapsed:   1200,
	ElectionMaxElapsed:   403200,
}

// Verify returns an error if the parameters can not drive a chain.
func (p *Params) Verify() error {
	switch {
	case p.NetworkID == "":
		return fmt.Errorf("%w: empty network id", ErrInvalidParams)
	case p.MultisigAccount == "":
		return fmt.Errorf("%w: empty multisig account", ErrInvalidParams)
	case p.RoundLength == 0 || p.TotalRounds == 0:
		return fmt.Errorf("%w: zero round geometry", ErrInvalidParams)
	case p.BlockQuorumDen == 0 || p.BlockQuorumNum > p.BlockQuorumDen:
		return fmt.Errorf("%w: block quorum %d/%d", ErrInvalidParams, p.BlockQuorumNum, p.BlockQuorumDen)
	case p.ElectionMaxElapsed <= p.ElectionMinElapsed:
		return fmt.Errorf("%w: election elapsed bounds [%d, %d]", ErrInvalidParams, p.ElectionMinElapsed, p.ElectionMaxElapsed)
	case p.WeightedHeight < p.BLSHeight:
		return fmt.Errorf("%w: weighted height below bls height", ErrInvalidParams)
	default:
		return nil
	}
}

func (p *Params) IsBLSActivated(height uint64) bool {
	return height >= p.BLSHeight
}

func (p *Params) IsWeightedActivated(height uint64) bool {
	return height >= p.WeightedHeight
}

// VersionAt returns the dialect in effect at height.
func (p *Params) VersionAt(height uint64) Version {
	switch {
	case p.IsWeightedActivated(height):
		return Weighted
	case p.IsBLSActivated(height):
		return BLS
	default:
		return Legacy
	}
}

// MultisigAt returns the privileged gateway account at height.
func (p *Params) MultisigAt(height uint64) string {
	if p.NextMultisigAccount != "" && height >= p.MultisigSwitchHeight {
		return p.NextMultisigAccount
	}
	return p.MultisigAccount
}

func (p *Params) RequiresContractProof(height uint64) bool {
	return height >= p.ContractProofHeight
}

// RoundFloor returns the first height of the round containing height.
func (p *Params) RoundFloor(height uint64) uint64 {
	return height - height%p.RoundLength
}

// WindowLength is the number of heights covered by one schedule.
func (p *Params) WindowLength() uint64 {
	return p.RoundLength * p.TotalRounds
}

// WindowStart returns the first height of the schedule window containing
// height.
func (p *Params) WindowStart(height uint64) uint64 {
	return height - height%p.WindowLength()
}

// FirstSeedHeight returns the lowest L1 block a schedule at or above height
// can be seeded from, including a late round reaching into the preceding
// window.
func (p *Params) FirstSeedHeight(height uint64) uint64 {
	start := p.WindowStart(height)
	if start < p.WindowLength() {
		return 0
	}
	return start - p.WindowLength()
}
