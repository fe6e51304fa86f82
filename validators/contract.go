// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package validators

import (
	"context"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"github.com/luxfi/l2index/classifier"
	"github.com/luxfi/l2index/codec/dagcbor"
	"github.com/luxfi/l2index/contractid"
)

const availabilityProofType = "data-availability"

var (
	ErrMissingProof = errors.New("missing storage proof")
	ErrInvalidProof = errors.New("invalid storage proof")
)

// Contract is an accepted contract creation.
type Contract struct {
	ID          string
	Code        cid.Cid
	Name        string
	Description string
	Creator     string
	L1Height    uint64
	TrxID       string
	// ProofWeight is the committee weight attesting code availability, if a
	// proof was required.
	ProofWeight uint64
}

type availabilityProof struct {
	Type string       `cbor:"type"`
	CID  dagcbor.Link `cbor:"cid"`
}

// ValidateContract derives the address of a new contract and, from the
// contract proof height on, checks the committee attestation that its code is
// retrievable.
func (v *Validator) ValidateContract(ctx context.Context, op *classifier.Operation) (*Contract, error) {
	creation, err := payloadOf[classifier.ContractCreation](op, classifier.CreateContract)
	if err != nil {
		return nil, err
	}
	id, err := contractid.Derive(op.Raw.TrxID, op.Raw.OpIndex)
	if err != nil {
		return nil, reject(err)
	}
	contract := &Contract{
		ID:          id,
		Code:        creation.Code,
		Name:        creation.Name,
		Description: creation.Description,
		Creator:     op.Actor,
		L1Height:    op.L1Height(),
		TrxID:       op.Raw.TrxID,
	}
	if !v.params.RequiresContractProof(op.L1Height()) {
		return contract, nil
	}
	if creation.Proof == nil {
		return nil, reject(ErrMissingProof)
	}
	contract.ProofWeight, err = v.verifyAvailability(ctx, op, creation)
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// verifyAvailability requires the proof to attest the creation's code and to
// carry a committee supermajority over the proof address.
func (v *Validator) verifyAvailability(
	ctx context.Context,
	op *classifier.Operation,
	creation *classifier.ContractCreation,
) (uint64, error) {
	proof := creation.Proof
	raw, err := v.content.Get(ctx, proof.Hash)
	if err != nil {
		return 0, reject(fmt.Errorf("%w: %w", ErrContentUnavailable, err))
	}
	var statement availabilityProof
	if err := dagcbor.Decode(raw, &statement); err != nil {
		return 0, reject(fmt.Errorf("%w: %w", ErrInvalidProof, err))
	}
	if statement.Type != availabilityProofType || !statement.CID.Equals(creation.Code) {
		return 0, reject(fmt.Errorf("%w: does not attest %s", ErrInvalidProof, creation.Code))
	}

	c, err := v.members(ctx, op.L1Height())
	if err != nil {
		return 0, err
	}
	result, err := v.verifyCircuit(proof.Hash.Bytes(), proof.Signature, c, op.Version)
	if err != nil {
		return 0, err
	}
	if err := v.verifySupermajority(result); err != nil {
		return 0, err
	}
	return result.VotedWeight, nil
}
