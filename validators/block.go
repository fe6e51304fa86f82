// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package validators

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/luxfi/log"

	"github.com/luxfi/l2index/circuit"
	"github.com/luxfi/l2index/classifier"
	"github.com/luxfi/l2index/codec/dagcbor"
	"github.com/luxfi/l2index/committee"
)

var ErrInvalidTransfer = errors.New("invalid balance transaction")

// Block is an accepted block proposal.
type Block struct {
	ID          cid.Cid
	Proposer    string
	L1Height    uint64
	Range       [2]uint64
	Previous    string
	MerkleRoot  []byte
	Signature   circuit.Signature
	VotedWeight uint64
	TotalWeight uint64
	// Late is the number of rounds the proposal trailed its slot.
	Late uint64
	// Txs are the entries of the block body that passed validation, in body
	// order.
	Txs []*Tx
}

type blockHeaders struct {
	Range    [2]uint64 `cbor:"br"`
	Previous string    `cbor:"prevb,omitempty"`
}

// unsignedBlock is the message committee members sign for a block.
type unsignedBlock struct {
	Block      dagcbor.Link `cbor:"block"`
	Headers    blockHeaders `cbor:"headers"`
	MerkleRoot string       `cbor:"merkle_root"`
}

func blockMessage(p *classifier.BlockProposal) unsignedBlock {
	return unsignedBlock{
		Block: dagcbor.NewLink(p.Block),
		Headers: blockHeaders{
			Range:    p.Range,
			Previous: p.Previous,
		},
		MerkleRoot: base64.RawURLEncoding.EncodeToString(p.MerkleRoot),
	}
}

type blockBody struct {
	Txs []cbor.RawMessage `cbor:"txs"`
}

// ValidateBlock checks the proposer slot and the committee signature of a
// block proposal, then extracts the valid entries of its body.
func (v *Validator) ValidateBlock(ctx context.Context, op *classifier.Operation) (*Block, error) {
	proposal, err := payloadOf[classifier.BlockProposal](op, classifier.ProposeBlock)
	if err != nil {
		return nil, err
	}
	height := op.L1Height()

	slot, late, err := v.committees.SlotFor(ctx, height, op.Actor, v.lateRounds)
	switch {
	case errors.Is(err, committee.ErrNotScheduled),
		errors.Is(err, committee.ErrNoCommittee),
		errors.Is(err, committee.ErrNoSeed):
		return nil, reject(err)
	case err != nil:
		return nil, err
	}
	if late > 0 {
		v.log.Warn("accepting out of schedule block proposal",
			log.String("proposer", op.Actor),
			log.Uint64("height", height),
			log.Uint64("slot", slot.Height),
			log.Uint64("roundsLate", late),
		)
	}

	c, err := v.members(ctx, height)
	if err != nil {
		return nil, err
	}
	result, err := v.verifyValue(blockMessage(proposal), proposal.Signature, c, op.Version)
	if err != nil {
		return nil, err
	}
	if err := v.verifySupermajority(result); err != nil {
		return nil, err
	}

	block := &Block{
		ID:          proposal.Block,
		Proposer:    op.Actor,
		L1Height:    height,
		Range:       proposal.Range,
		Previous:    proposal.Previous,
		MerkleRoot:  proposal.MerkleRoot,
		Signature:   proposal.Signature,
		VotedWeight: result.VotedWeight,
		TotalWeight: result.TotalWeight,
		Late:        late,
	}
	block.Txs, err = v.blockTxs(ctx, proposal.Block)
	if err != nil {
		return nil, err
	}
	return block, nil
}

// blockTxs walks the block body. An unavailable or undecodable body yields an
// empty transaction list.
func (v *Validator) blockTxs(ctx context.Context, id cid.Cid) ([]*Tx, error) {
	raw, err := v.content.Get(ctx, id)
	if err != nil {
		v.log.Warn("block body unavailable",
			log.Stringer("block", id),
			log.Err(err),
		)
		return nil, nil
	}
	var body blockBody
	if err := dagcbor.Decode(raw, &body); err != nil {
		v.log.Warn("block body malformed",
			log.Stringer("block", id),
			log.Err(err),
		)
		return nil, nil
	}

	txs := make([]*Tx, 0, len(body.Txs))
	for i, entry := range body.Txs {
		tx, err := v.validateTx(ctx, i, entry)
		switch {
		case errors.Is(err, ErrInvalidTransfer):
			return nil, reject(fmt.Errorf("entry %d: %w", i, err))
		case IsRejected(err):
			v.log.Warn("skipping block transaction",
				log.Stringer("block", id),
				log.Int("index", i),
				log.Err(err),
			)
		case err != nil:
			return nil, err
		default:
			txs = append(txs, tx)
		}
	}
	return txs, nil
}
