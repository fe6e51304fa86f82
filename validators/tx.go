// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package validators

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/luxfi/ids"

	"github.com/luxfi/l2index/codec/dagcbor"
	"github.com/luxfi/l2index/crypto/blsdid"
	"github.com/luxfi/l2index/protocol"
)

const maxInputIDLen = 64

// TxType is the declared type of a block body entry.
type TxType uint8

const (
	CallTx TxType = iota + 1
	OutputTx
	TransferTx
	WithdrawTx
	AnchorRefTx
	EventsTx
)

func (t TxType) String() string {
	switch t {
	case CallTx:
		return "call"
	case OutputTx:
		return "output"
	case TransferTx:
		return "transfer"
	case WithdrawTx:
		return "withdraw"
	case AnchorRefTx:
		return "anchor_ref"
	case EventsTx:
		return "events"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// affectsBalances reports whether invalid entries of t reject their block.
func (t TxType) affectsBalances() bool {
	return t == TransferTx || t == WithdrawTx
}

// Tx is a validated block body entry.
type Tx struct {
	// Index is the position of the entry in the block body.
	Index   int
	ID      cid.Cid
	Type    TxType
	Payload any
}

// Call is the payload of a [CallTx].
type Call struct {
	ContractID    string
	Action        string
	Payload       []byte
	Nonce         uint64
	RequiredAuths []string
}

// Output is the payload of an [OutputTx].
type Output struct {
	ContractID  string
	Inputs      []string
	Results     [][]byte
	StateMerkle string
}

// BalanceTx is the payload of a [TransferTx] or [WithdrawTx].
type BalanceTx struct {
	From   string
	To     string
	Amount uint64
	Asset  protocol.Asset
}

// AnchorRef is the payload of an [AnchorRefTx].
type AnchorRef struct {
	Root ids.ID
	Txs  []ids.ShortID
}

// Events is the payload of an [EventsTx]. Events are validated when applied.
type Events struct {
	Raw []byte
}

type txRef struct {
	ID   cbor.RawMessage `cbor:"id"`
	Type uint64          `cbor:"type"`
}

type callEnvelope struct {
	Headers struct {
		Nonce         *uint64  `cbor:"nonce"`
		RequiredAuths []string `cbor:"required_auths"`
	} `cbor:"headers"`
	Tx struct {
		ContractID string          `cbor:"contract_id"`
		Action     string          `cbor:"action"`
		Payload    cbor.RawMessage `cbor:"payload"`
	} `cbor:"tx"`
}

type outputEnvelope struct {
	ContractID  string            `cbor:"contract_id"`
	Inputs      []string          `cbor:"inputs"`
	Results     []cbor.RawMessage `cbor:"results"`
	StateMerkle string            `cbor:"state_merkle"`
}

type anchorEnvelope struct {
	Root []byte   `cbor:"root"`
	Txs  [][]byte `cbor:"txs"`
}

// validateTx validates a single body entry. Rejections of balance entries
// wrap [ErrInvalidTransfer].
func (v *Validator) validateTx(ctx context.Context, index int, entry cbor.RawMessage) (*Tx, error) {
	var ref txRef
	if err := dagcbor.Decode(entry, &ref); err != nil {
		return nil, reject(fmt.Errorf("%w: %w", ErrMalformedContent, err))
	}
	if ref.Type < uint64(CallTx) || ref.Type > uint64(EventsTx) {
		return nil, reject(fmt.Errorf("%w: tx type %d", ErrMalformedContent, ref.Type))
	}
	typ := TxType(ref.Type)

	invalid := func(err error) error {
		if typ.affectsBalances() {
			return reject(fmt.Errorf("%w: %s: %w", ErrInvalidTransfer, typ, err))
		}
		return reject(fmt.Errorf("%s: %w", typ, err))
	}

	var link dagcbor.Link
	if err := dagcbor.Decode(ref.ID, &link); err != nil {
		return nil, invalid(fmt.Errorf("%w: %w", ErrMalformedContent, err))
	}
	raw, err := v.content.Get(ctx, link.Cid)
	if err != nil {
		return nil, reject(fmt.Errorf("%s: %w: %w", typ, ErrContentUnavailable, err))
	}

	var payload any
	switch typ {
	case CallTx:
		payload, err = v.decodeCall(ctx, raw)
	case OutputTx:
		payload, err = v.decodeOutput(ctx, raw)
	case TransferTx, WithdrawTx:
		payload, err = decodeBalanceTx(raw)
	case AnchorRefTx:
		payload, err = decodeAnchorRef(raw)
	case EventsTx:
		payload = &Events{Raw: raw}
	}
	if IsRejected(err) {
		return nil, invalid(err)
	}
	if err != nil {
		return nil, err
	}
	return &Tx{
		Index:   index,
		ID:      link.Cid,
		Type:    typ,
		Payload: payload,
	}, nil
}

func malformed(format string, args ...any) error {
	return reject(fmt.Errorf("%w: "+format, append([]any{ErrMalformedContent}, args...)...))
}

func (v *Validator) contractExists(ctx context.Context, id string) error {
	exists, err := v.store.ContractExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return malformed("unknown contract %q", id)
	}
	return nil
}

func (v *Validator) decodeCall(ctx context.Context, raw []byte) (*Call, error) {
	var env callEnvelope
	if err := dagcbor.Decode(raw, &env); err != nil {
		return nil, malformed("%v", err)
	}
	if env.Headers.Nonce == nil {
		return nil, malformed("missing nonce")
	}
	if len(env.Headers.RequiredAuths) == 0 {
		return nil, malformed("missing required auths")
	}
	for _, auth := range env.Headers.RequiredAuths {
		if !blsdid.IsDID(auth) {
			return nil, malformed("invalid auth %q", auth)
		}
	}
	if err := v.contractExists(ctx, env.Tx.ContractID); err != nil {
		return nil, err
	}
	return &Call{
		ContractID:    env.Tx.ContractID,
		Action:        env.Tx.Action,
		Payload:       env.Tx.Payload,
		Nonce:         *env.Headers.Nonce,
		RequiredAuths: env.Headers.RequiredAuths,
	}, nil
}

func (v *Validator) decodeOutput(ctx context.Context, raw []byte) (*Output, error) {
	var env outputEnvelope
	if err := dagcbor.Decode(raw, &env); err != nil {
		return nil, malformed("%v", err)
	}
	if len(env.Inputs) != len(env.Results) {
		return nil, malformed("%d inputs for %d results", len(env.Inputs), len(env.Results))
	}
	for _, input := range env.Inputs {
		if input == "" || len(input) > maxInputIDLen {
			return nil, malformed("invalid input %q", input)
		}
	}
	if err := v.contractExists(ctx, env.ContractID); err != nil {
		return nil, err
	}
	results := make([][]byte, len(env.Results))
	for i, r := range env.Results {
		results[i] = r
	}
	return &Output{
		ContractID:  env.ContractID,
		Inputs:      env.Inputs,
		Results:     results,
		StateMerkle: env.StateMerkle,
	}, nil
}

// decodeBalanceTx checks field types explicitly so that no value is coerced.
func decodeBalanceTx(raw []byte) (*BalanceTx, error) {
	var fields map[string]any
	if err := dagcbor.Decode(raw, &fields); err != nil {
		return nil, malformed("%v", err)
	}
	from, ok := fields["from"].(string)
	if !ok {
		return nil, malformed("from is %T", fields["from"])
	}
	to, ok := fields["to"].(string)
	if !ok {
		return nil, malformed("to is %T", fields["to"])
	}
	// Non-negative integers decode as uint64.
	amount, ok := fields["amount"].(uint64)
	if !ok {
		return nil, malformed("amount is %T", fields["amount"])
	}
	symbol, _ := fields["tk"].(string)
	asset, ok := protocol.AssetFromSymbol(symbol)
	if !ok {
		return nil, malformed("unknown token %q", symbol)
	}
	return &BalanceTx{
		From:   from,
		To:     to,
		Amount: amount,
		Asset:  asset,
	}, nil
}

func decodeAnchorRef(raw []byte) (*AnchorRef, error) {
	var env anchorEnvelope
	if err := dagcbor.Decode(raw, &env); err != nil {
		return nil, malformed("%v", err)
	}
	root, err := ids.ToID(env.Root)
	if err != nil {
		return nil, malformed("root: %v", err)
	}
	anchor := &AnchorRef{
		Root: root,
		Txs:  make([]ids.ShortID, len(env.Txs)),
	}
	for i, b := range env.Txs {
		anchor.Txs[i], err = ids.ToShortID(b)
		if err != nil {
			return nil, malformed("tx %d: %v", i, err)
		}
	}
	return anchor, nil
}
