// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package validators decides which classified block proposals, election
// results, contract creations and bridge references are final.
//
// Every Validate method returns either the accepted effect or an error. Errors
// wrapping [ErrRejected] describe an invalid operation and must not abort
// indexing; any other error is a store failure.
package validators

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxfi/log"

	"github.com/luxfi/l2index/circuit"
	"github.com/luxfi/l2index/classifier"
	"github.com/luxfi/l2index/codec/dagcbor"
	"github.com/luxfi/l2index/committee"
	"github.com/luxfi/l2index/content"
	"github.com/luxfi/l2index/protocol"
)

var (
	ErrRejected = errors.New("rejected")

	ErrWrongKind          = errors.New("unexpected operation kind")
	ErrInvalidSignature   = errors.New("invalid aggregate signature")
	ErrContentUnavailable = errors.New("content unavailable")
	ErrMalformedContent   = errors.New("malformed content")
)

// Store is the indexer state the validators read.
type Store interface {
	AccountExists(ctx context.Context, name string) (bool, error)
	ContractExists(ctx context.Context, id string) (bool, error)
	// LastElectionBefore returns the most recent election activated strictly
	// below height, or nil if only the genesis committee precedes it.
	LastElectionBefore(ctx context.Context, height uint64) (*committee.Committee, error)
	// LastElectionAt is LastElectionBefore including elections activated at
	// height.
	LastElectionAt(ctx context.Context, height uint64) (*committee.Committee, error)
	// WithdrawRequest returns the id of the withdraw request issued by the
	// given L1 operation.
	WithdrawRequest(ctx context.Context, trxID string, opIndex uint32) (uint64, bool, error)
}

type Validator struct {
	log        log.Logger
	params     *protocol.Params
	committees *committee.Provider
	content    content.Store
	store      Store
	lateRounds uint64
}

// New returns a validator accepting proposals up to lateRounds rounds behind
// their slot.
func New(
	logger log.Logger,
	params *protocol.Params,
	committees *committee.Provider,
	contentStore content.Store,
	store Store,
	lateRounds uint64,
) *Validator {
	return &Validator{
		log:        logger,
		params:     params,
		committees: committees,
		content:    contentStore,
		store:      store,
		lateRounds: lateRounds,
	}
}

func reject(reason error) error {
	return fmt.Errorf("%w: %w", ErrRejected, reason)
}

// IsRejected reports whether err describes an invalid operation rather than
// a store failure.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

// members resolves the committee at height. A height without a committee
// rejects the operation.
func (v *Validator) members(ctx context.Context, height uint64) (*committee.Committee, error) {
	c, err := v.committees.MembersAt(ctx, height)
	if errors.Is(err, committee.ErrNoCommittee) {
		return nil, reject(err)
	}
	return c, err
}

// weightsFor returns the member weights counted under version. Before
// weighted elections every member weighs 1.
func weightsFor(version protocol.Version, c *committee.Committee) []uint64 {
	if version < protocol.Weighted {
		return nil
	}
	return c.Weights()
}

// verifyCircuit checks sig over msg against c and returns the circuit. The
// circuit is only returned if the signature verifies.
func (v *Validator) verifyCircuit(
	msg []byte,
	sig circuit.Signature,
	c *committee.Committee,
	version protocol.Version,
) (*circuit.Result, error) {
	result, err := circuit.Verify(msg, sig, c.Keys(), weightsFor(version, c))
	if err != nil {
		return nil, reject(fmt.Errorf("%w: %w", ErrInvalidSignature, err))
	}
	if !result.Valid {
		return nil, reject(fmt.Errorf("%w: %d signers", ErrInvalidSignature, len(result.Participants)))
	}
	return result, nil
}

// verifyValue is [Validator.verifyCircuit] over the content address of msg.
func (v *Validator) verifyValue(
	msg any,
	sig circuit.Signature,
	c *committee.Committee,
	version protocol.Version,
) (*circuit.Result, error) {
	b, err := dagcbor.Hash(msg)
	if err != nil {
		return nil, reject(fmt.Errorf("%w: %w", ErrInvalidSignature, err))
	}
	return v.verifyCircuit(b, sig, c, version)
}

// verifySupermajority requires the block quorum fraction of the committee
// weight to have signed.
func (v *Validator) verifySupermajority(result *circuit.Result) error {
	err := circuit.VerifyWeight(
		result.VotedWeight,
		result.TotalWeight,
		v.params.BlockQuorumNum,
		v.params.BlockQuorumDen,
	)
	if err != nil {
		return reject(err)
	}
	return nil
}

func payloadOf[T any](op *classifier.Operation, kind classifier.Kind) (*T, error) {
	if !op.Valid || op.Kind != kind {
		return nil, reject(fmt.Errorf("%w: %s", ErrWrongKind, op.Kind))
	}
	p, ok := op.Payload.(*T)
	if !ok {
		return nil, reject(fmt.Errorf("%w: payload %T", ErrWrongKind, op.Payload))
	}
	return p, nil
}
