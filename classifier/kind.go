// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package classifier

import "fmt"

// Kind is the intent of a classified operation.
type Kind uint8

const (
	Unknown Kind = iota

	// Committee consensus.
	ProposeBlock
	ElectionResult

	// Contracts.
	CreateContract
	CallContract

	// Gateway.
	MultisigTxRef
	BridgeRef
	Deposit
	Withdrawal
	WithdrawRequest
	Savings

	// Node registry.
	AnnounceNode
	RotateMultisig

	// Legacy dialect.
	EnableWitness
	DisableWitness
	AllowWitness
	DisallowWitness
	AnnounceBlock
	JoinContract
	LeaveContract
)

var kindNames = map[Kind]string{
	Unknown:         "unknown",
	ProposeBlock:    "propose_block",
	ElectionResult:  "election_result",
	CreateContract:  "create_contract",
	CallContract:    "call_contract",
	MultisigTxRef:   "multisig_txref",
	BridgeRef:       "bridge_ref",
	Deposit:         "deposit",
	Withdrawal:      "withdrawal",
	WithdrawRequest: "withdrawal_request",
	Savings:         "savings",
	AnnounceNode:    "announce_node",
	RotateMultisig:  "rotate_multisig",
	EnableWitness:   "enable_witness",
	DisableWitness:  "disable_witness",
	AllowWitness:    "allow_witness",
	DisallowWitness: "disallow_witness",
	AnnounceBlock:   "announce_block",
	JoinContract:    "join_contract",
	LeaveContract:   "leave_contract",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Auth is the L1 authority an operation must be signed with.
type Auth uint8

const (
	Posting Auth = iota
	Active
	// Either accepts active or posting authority, preferring active.
	Either
)

func (a Auth) String() string {
	switch a {
	case Posting:
		return "posting"
	case Active:
		return "active"
	case Either:
		return "either"
	default:
		return fmt.Sprintf("auth(%d)", uint8(a))
	}
}
