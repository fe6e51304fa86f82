// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"fmt"
	"time"

	"github.com/luxfi/l2index/classifier"
	"github.com/luxfi/l2index/committee"
	"github.com/luxfi/l2index/crypto/blsdid"
)

type operationRecord struct {
	L1Height  uint64 `serialize:"true"`
	TrxIndex  uint32 `serialize:"true"`
	OpIndex   uint32 `serialize:"true"`
	TrxID     string `serialize:"true"`
	Timestamp int64  `serialize:"true"`
	Body      []byte `serialize:"true"`
}

func newOperationRecord(op classifier.RawOperation) *operationRecord {
	return &operationRecord{
		L1Height:  op.L1Height,
		TrxIndex:  op.TrxIndex,
		OpIndex:   op.OpIndex,
		TrxID:     op.TrxID,
		Timestamp: op.Timestamp.Unix(),
		Body:      op.Body,
	}
}

func (r *operationRecord) operation(id uint64) classifier.RawOperation {
	return classifier.RawOperation{
		ID:        id,
		L1Height:  r.L1Height,
		TrxIndex:  r.TrxIndex,
		OpIndex:   r.OpIndex,
		TrxID:     r.TrxID,
		Timestamp: time.Unix(r.Timestamp, 0).UTC(),
		Body:      r.Body,
	}
}

type memberRecord struct {
	Account string `serialize:"true"`
	DID     string `serialize:"true"`
	Weight  uint64 `serialize:"true"`
}

// ElectionRecord is a stored election result.
type ElectionRecord struct {
	Epoch       uint64         `serialize:"true"`
	Height      uint64         `serialize:"true"`
	Data        string         `serialize:"true"`
	Proposer    string         `serialize:"true"`
	VotedWeight uint64         `serialize:"true"`
	TotalWeight uint64         `serialize:"true"`
	Members     []memberRecord `serialize:"true"`
}

// Committee parses the member keys of the election.
func (r *ElectionRecord) Committee() (*committee.Committee, error) {
	c := &committee.Committee{
		Epoch:   r.Epoch,
		Height:  r.Height,
		Members: make([]committee.Member, len(r.Members)),
	}
	for i, m := range r.Members {
		key, err := blsdid.Parse(m.DID)
		if err != nil {
			return nil, fmt.Errorf("election %d member %d: %w", r.Epoch, i, err)
		}
		c.Members[i] = committee.Member{
			Account: m.Account,
			DID:     m.DID,
			Key:     key,
			Weight:  m.Weight,
		}
	}
	return c, nil
}

func membersOf(c *committee.Committee) []memberRecord {
	members := make([]memberRecord, len(c.Members))
	for i, m := range c.Members {
		members[i] = memberRecord{
			Account: m.Account,
			DID:     m.DID,
			Weight:  m.Weight,
		}
	}
	return members
}

// WitnessRecord is the latest announcement of a node.
type WitnessRecord struct {
	Account        string `serialize:"true"`
	DID            string `serialize:"true"`
	ConsensusDID   string `serialize:"true"`
	Enabled        bool   `serialize:"true"`
	Allowed        bool   `serialize:"true"`
	GitCommit      string `serialize:"true"`
	PostingKey     string `serialize:"true"`
	ActiveKey      string `serialize:"true"`
	OwnerKey       string `serialize:"true"`
	LastUpdateOpID uint64 `serialize:"true"`
	LastUpdate     uint64 `serialize:"true"`
}

// ContractRecord is a stored contract.
type ContractRecord struct {
	ID          string `serialize:"true"`
	Code        string `serialize:"true"`
	Name        string `serialize:"true"`
	Description string `serialize:"true"`
	Creator     string `serialize:"true"`
	L1Height    uint64 `serialize:"true"`
	TrxID       string `serialize:"true"`
	ProofWeight uint64 `serialize:"true"`
}

// TxRecord is a stored block body entry.
type TxRecord struct {
	Index uint32 `serialize:"true"`
	ID    string `serialize:"true"`
	Type  uint8  `serialize:"true"`
	// Detail is the JSON encoding of the validated entry.
	Detail []byte `serialize:"true"`
}

// BlockRecord is a stored block.
type BlockRecord struct {
	ID          string     `serialize:"true"`
	Proposer    string     `serialize:"true"`
	L1Height    uint64     `serialize:"true"`
	StartHeight uint64     `serialize:"true"`
	EndHeight   uint64     `serialize:"true"`
	Previous    string     `serialize:"true"`
	MerkleRoot  []byte     `serialize:"true"`
	Signature   []byte     `serialize:"true"`
	Signers     []byte     `serialize:"true"`
	VotedWeight uint64     `serialize:"true"`
	TotalWeight uint64     `serialize:"true"`
	Late        uint64     `serialize:"true"`
	Txs         []TxRecord `serialize:"true"`
}

// TransferStatus is the settlement state of a gateway transfer.
type TransferStatus uint8

const (
	Pending TransferStatus = iota
	Completed
)

// TransferRecord is a gateway transfer, keyed by the id of its operation.
type TransferRecord struct {
	Kind      uint8          `serialize:"true"`
	L1Height  uint64         `serialize:"true"`
	TrxID     string         `serialize:"true"`
	OpIndex   uint32         `serialize:"true"`
	From      string         `serialize:"true"`
	To        string         `serialize:"true"`
	Owner     string         `serialize:"true"`
	OwnerType uint8          `serialize:"true"`
	Amount    uint64         `serialize:"true"`
	Asset     uint8          `serialize:"true"`
	Requested uint64         `serialize:"true"`
	Status    TransferStatus `serialize:"true"`
	// CompletedAt is the L1 height of the bridge reference settling it.
	CompletedAt uint64 `serialize:"true"`
}

// OperationRecord is the outcome of an L1 operation.
type OperationRecord struct {
	Valid bool   `serialize:"true"`
	Kind  uint8  `serialize:"true"`
	Actor string `serialize:"true"`
}
