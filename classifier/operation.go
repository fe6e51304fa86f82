// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package classifier

import (
	"encoding/json"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/luxfi/l2index/circuit"
	"github.com/luxfi/l2index/protocol"
)

// RawOperation is an L1 operation as recorded by the L1 sync framework.
// (L1Height, TrxIndex, OpIndex) identifies it; ID increases with it.
type RawOperation struct {
	ID        uint64
	L1Height  uint64
	TrxIndex  uint32
	OpIndex   uint32
	TrxID     string
	Timestamp time.Time
	// Body is the JSON {type, value} encoding of the operation.
	Body []byte
}

// Operation is a decoded intent. Invalid operations carry no payload.
type Operation struct {
	Raw     RawOperation
	Valid   bool
	Version protocol.Version
	Actor   string
	Kind    Kind
	Payload any
}

func (o *Operation) L1Height() uint64 {
	return o.Raw.L1Height
}

// BlockProposal is the payload of [ProposeBlock].
type BlockProposal struct {
	Block      cid.Cid
	Range      [2]uint64
	Previous   string
	MerkleRoot []byte
	Signature  circuit.Signature
}

// StorageProof is a committee attestation that contract code is retrievable.
type StorageProof struct {
	Hash      cid.Cid
	Signature circuit.Signature
}

// ContractCreation is the payload of [CreateContract].
type ContractCreation struct {
	Code        cid.Cid
	Name        string
	Description string
	// Proof is only decoded from the contract proof height on.
	Proof *StorageProof
}

// ContractCall is the payload of [CallContract].
type ContractCall struct {
	ContractID string
	Action     string
	Payload    json.RawMessage
}

// Election is the payload of [ElectionResult].
type Election struct {
	Data      cid.Cid
	Epoch     uint64
	NetID     string
	Signature circuit.Signature
}

// Reference is the payload of [MultisigTxRef] and [BridgeRef].
type Reference struct {
	RefID cid.Cid
}

// SigningKeys are the L1 keys a node announces for gateway signing.
type SigningKeys struct {
	Posting string
	Active  string
	Owner   string
}

// NodeAnnouncement is the payload of [AnnounceNode].
type NodeAnnouncement struct {
	DID            string
	ConsensusDID   string
	WitnessEnabled bool
	GitCommit      string
	SigningKeys    SigningKeys
}

// OwnerType tells how a deposit owner is identified on L2.
type OwnerType uint8

const (
	OwnerAccount OwnerType = iota
	OwnerDID
)

// Transfer is the payload of [Deposit], [Withdrawal] and [WithdrawRequest].
type Transfer struct {
	// Amount is in thousandths of Asset.
	Amount uint64
	Asset  protocol.Asset
	Owner  string
	// OwnerType is only meaningful for deposits.
	OwnerType OwnerType
	// Requested is the amount a withdrawal request asks for, while Amount is
	// what the request transferred to the gateway.
	Requested uint64
}

// SavingsMovement is the payload of [Savings].
type SavingsMovement struct {
	Op     string
	From   string
	To     string
	Amount uint64
	Asset  protocol.Asset
}
