// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package classifier

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/luxfi/l2index/circuit"
	"github.com/luxfi/l2index/codec/dagcbor"
	"github.com/luxfi/l2index/contractid"
)

// blockReplayID is the replay protection marker block proposals carry.
const blockReplayID = 2

type customJSON struct {
	ID                   string   `json:"id"`
	JSON                 string   `json:"json"`
	RequiredAuths        []string `json:"required_auths"`
	RequiredPostingAuths []string `json:"required_posting_auths"`
}

type wireSignature struct {
	Sig string `json:"sig"`
	BV  string `json:"bv"`
}

func (w *wireSignature) parse() (circuit.Signature, error) {
	if w == nil {
		return circuit.Signature{}, fmt.Errorf("%w: missing signature", errMalformed)
	}
	return circuit.ParseSignature(w.Sig, w.BV)
}

func (c *Classifier) classifyCustomJSON(op *Operation, dialect *Dialect, value json.RawMessage) error {
	var cj customJSON
	if err := decode(value, &cj); err != nil {
		return err
	}
	intent, ok := dialect.CustomJSON[cj.ID]
	if !ok {
		return fmt.Errorf("%w: %q under %s", errUnknownOp, cj.ID, dialect.Version)
	}
	if cj.JSON == "" {
		return fmt.Errorf("%w: empty json", errMalformed)
	}

	actor, err := resolveActor(intent.Auth, cj.RequiredAuths, cj.RequiredPostingAuths)
	if err != nil {
		return err
	}

	var envelope struct {
		NetID string `json:"net_id"`
	}
	if err := decode([]byte(cj.JSON), &envelope); err != nil {
		return err
	}

	multisig := c.params.MultisigAt(op.Raw.L1Height)
	if intent.Privileged && actor != multisig {
		return fmt.Errorf("%w: %s is not the multisig account", errUnauthorized, actor)
	}
	if intent.NetworkBound && actor != multisig && envelope.NetID != c.params.NetworkID {
		return fmt.Errorf("%w: %q", errWrongNetwork, envelope.NetID)
	}

	payload, err := c.decodeCustomJSON(op, intent.Kind, []byte(cj.JSON))
	if err != nil {
		return err
	}
	op.Actor = actor
	op.Kind = intent.Kind
	op.Payload = payload
	return nil
}

func resolveActor(auth Auth, active, posting []string) (string, error) {
	switch auth {
	case Active:
		if len(active) > 0 {
			return active[0], nil
		}
	case Either:
		if len(active) > 0 {
			return active[0], nil
		}
		if len(posting) > 0 {
			return posting[0], nil
		}
	default:
		if len(posting) > 0 {
			return posting[0], nil
		}
	}
	return "", fmt.Errorf("%w: %s", errUnauthorized, auth)
}

func (c *Classifier) decodeCustomJSON(op *Operation, kind Kind, raw []byte) (any, error) {
	switch kind {
	case ProposeBlock:
		return decodeBlockProposal(raw, c.params.StartHeight)
	case CreateContract:
		return decodeContractCreation(raw, c.params.RequiresContractProof(op.Raw.L1Height))
	case CallContract:
		return decodeContractCall(raw)
	case ElectionResult:
		return decodeElection(raw)
	case MultisigTxRef, BridgeRef:
		return decodeReference(raw)
	default:
		// Legacy intents are recorded without a payload.
		return nil, nil
	}
}

func parseLink(s string, codecs ...uint64) (cid.Cid, error) {
	c, err := dagcbor.ParseCID(s, codecs...)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %w", errMalformed, err)
	}
	return c, nil
}

func decodeBase64URL(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformed, err)
	}
	return b, nil
}

func decodeBlockProposal(raw []byte, startHeight uint64) (*BlockProposal, error) {
	var p struct {
		ReplayID    int `json:"replay_id"`
		SignedBlock *struct {
			Block   string `json:"block"`
			Headers *struct {
				Range    []uint64 `json:"br"`
				Previous *string  `json:"prevb"`
			} `json:"headers"`
			MerkleRoot string         `json:"merkle_root"`
			Signature  *wireSignature `json:"signature"`
		} `json:"signed_block"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	sb := p.SignedBlock
	switch {
	case p.ReplayID != blockReplayID:
		return nil, fmt.Errorf("%w: replay id %d", errMalformed, p.ReplayID)
	case sb == nil || sb.Headers == nil:
		return nil, fmt.Errorf("%w: missing signed block", errMalformed)
	case len(sb.Headers.Range) != 2:
		return nil, fmt.Errorf("%w: block range length %d", errMalformed, len(sb.Headers.Range))
	case sb.Headers.Range[0] < startHeight || sb.Headers.Range[1] < sb.Headers.Range[0]:
		return nil, fmt.Errorf("%w: block range %v", errMalformed, sb.Headers.Range)
	}

	block, err := parseLink(sb.Block, cid.DagCBOR)
	if err != nil {
		return nil, err
	}
	merkle, err := decodeBase64URL(sb.MerkleRoot)
	if err != nil {
		return nil, err
	}
	if len(merkle) != 32 {
		return nil, fmt.Errorf("%w: merkle root length %d", errMalformed, len(merkle))
	}
	sig, err := sb.Signature.parse()
	if err != nil {
		return nil, err
	}

	proposal := &BlockProposal{
		Block:      block,
		Range:      [2]uint64{sb.Headers.Range[0], sb.Headers.Range[1]},
		MerkleRoot: merkle,
		Signature:  sig,
	}
	if sb.Headers.Previous != nil {
		proposal.Previous = *sb.Headers.Previous
	}
	return proposal, nil
}

func decodeContractCreation(raw []byte, requiresProof bool) (*ContractCreation, error) {
	var p struct {
		Code         string `json:"code"`
		Name         string `json:"name"`
		Description  string `json:"description"`
		StorageProof *struct {
			Hash      string         `json:"hash"`
			Signature *wireSignature `json:"signature"`
		} `json:"storage_proof"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	code, err := parseLink(p.Code, cid.Raw, cid.DagCBOR)
	if err != nil {
		return nil, err
	}
	creation := &ContractCreation{
		Code:        code,
		Name:        p.Name,
		Description: p.Description,
	}
	if !requiresProof {
		return creation, nil
	}

	if p.StorageProof == nil {
		return nil, fmt.Errorf("%w: missing storage proof", errMalformed)
	}
	hash, err := parseLink(p.StorageProof.Hash, cid.DagCBOR)
	if err != nil {
		return nil, err
	}
	sig, err := p.StorageProof.Signature.parse()
	if err != nil {
		return nil, err
	}
	creation.Proof = &StorageProof{
		Hash:      hash,
		Signature: sig,
	}
	return creation, nil
}

func decodeContractCall(raw []byte) (*ContractCall, error) {
	var p struct {
		Tx *struct {
			Action     *string         `json:"action"`
			ContractID string          `json:"contract_id"`
			Payload    json.RawMessage `json:"payload"`
		} `json:"tx"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if p.Tx == nil || p.Tx.Action == nil {
		return nil, fmt.Errorf("%w: missing call", errMalformed)
	}
	if err := contractid.Validate(p.Tx.ContractID); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformed, err)
	}
	return &ContractCall{
		ContractID: p.Tx.ContractID,
		Action:     *p.Tx.Action,
		Payload:    p.Tx.Payload,
	}, nil
}

func decodeElection(raw []byte) (*Election, error) {
	var p struct {
		Data      string         `json:"data"`
		Epoch     *uint64        `json:"epoch"`
		NetID     string         `json:"net_id"`
		Signature *wireSignature `json:"signature"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if p.Epoch == nil {
		return nil, fmt.Errorf("%w: missing epoch", errMalformed)
	}
	data, err := parseLink(p.Data, cid.DagCBOR)
	if err != nil {
		return nil, err
	}
	sig, err := p.Signature.parse()
	if err != nil {
		return nil, err
	}
	return &Election{
		Data:      data,
		Epoch:     *p.Epoch,
		NetID:     p.NetID,
		Signature: sig,
	}, nil
}

func decodeReference(raw []byte) (*Reference, error) {
	var p struct {
		RefID string `json:"ref_id"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	ref, err := parseLink(p.RefID, cid.DagCBOR)
	if err != nil {
		return nil, err
	}
	return &Reference{RefID: ref}, nil
}
