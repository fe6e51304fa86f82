// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package classifier

import "github.com/luxfi/l2index/protocol"

// Intent is the catalog entry of a custom-JSON id.
type Intent struct {
	Kind Kind
	Auth Auth
	// Privileged intents may only be issued by the multisig account.
	Privileged bool
	// NetworkBound intents must carry the network id unless issued by the
	// multisig account.
	NetworkBound bool
}

// Dialect is the operation catalog of a protocol version.
type Dialect struct {
	Version    protocol.Version
	CustomJSON map[string]Intent
}

var (
	legacyDialect = &Dialect{
		Version: protocol.Legacy,
		CustomJSON: map[string]Intent{
			"vsc.enable_witness":   {Kind: EnableWitness, Auth: Posting, NetworkBound: true},
			"vsc.disable_witness":  {Kind: DisableWitness, Auth: Posting, NetworkBound: true},
			"vsc.allow_witness":    {Kind: AllowWitness, Auth: Posting, NetworkBound: true},
			"vsc.disallow_witness": {Kind: DisallowWitness, Auth: Posting, NetworkBound: true},
			"vsc.announce_block":   {Kind: AnnounceBlock, Auth: Active, NetworkBound: true},
			"vsc.create_contract":  {Kind: CreateContract, Auth: Active, NetworkBound: true},
			"vsc.join_contract":    {Kind: JoinContract, Auth: Posting, NetworkBound: true},
			"vsc.leave_contract":   {Kind: LeaveContract, Auth: Posting, NetworkBound: true},
		},
	}

	blsCatalog = map[string]Intent{
		"vsc.propose_block":   {Kind: ProposeBlock, Auth: Active, NetworkBound: true},
		"vsc.create_contract": {Kind: CreateContract, Auth: Active, NetworkBound: true},
		"vsc.call":            {Kind: CallContract, Auth: Either, NetworkBound: true},
		"vsc.call_active":     {Kind: CallContract, Auth: Active, NetworkBound: true},
		"vsc.election_result": {Kind: ElectionResult, Auth: Active, NetworkBound: true},
		"vsc.multisig_txref":  {Kind: MultisigTxRef, Auth: Active, Privileged: true},
		"vsc.bridge_ref":      {Kind: BridgeRef, Auth: Active, Privileged: true},
	}

	blsDialect = &Dialect{
		Version:    protocol.BLS,
		CustomJSON: blsCatalog,
	}
	weightedDialect = &Dialect{
		Version:    protocol.Weighted,
		CustomJSON: blsCatalog,
	}
)

// DialectFor returns the catalog in effect under version.
func DialectFor(version protocol.Version) *Dialect {
	switch version {
	case protocol.Legacy:
		return legacyDialect
	case protocol.BLS:
		return blsDialect
	default:
		return weightedDialect
	}
}
