// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package validators

import (
	"context"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/luxfi/log"
	safemath "github.com/luxfi/math"

	"github.com/luxfi/l2index/circuit"
	"github.com/luxfi/l2index/classifier"
	"github.com/luxfi/l2index/codec/dagcbor"
	"github.com/luxfi/l2index/committee"
	"github.com/luxfi/l2index/crypto/blsdid"
	"github.com/luxfi/l2index/protocol"
)

var (
	ErrWrongNetwork     = errors.New("wrong network id")
	ErrStaleEpoch       = errors.New("epoch does not advance")
	ErrInvalidMembers   = errors.New("invalid elected members")
	ErrQuorumNotReached = errors.New("election quorum not reached")
)

// Election is an accepted election result. Its committee takes effect at the
// L1 height of the election.
type Election struct {
	Committee *committee.Committee
	Data      cid.Cid
	Proposer  string
	// VotedWeight, TotalWeight and Quorum are zero for the genesis epoch.
	VotedWeight uint64
	TotalWeight uint64
	Quorum      uint64
}

// electionMessage is the message committee members sign for an election.
type electionMessage struct {
	Data  dagcbor.Link `cbor:"data"`
	Epoch uint64       `cbor:"epoch"`
	NetID string       `cbor:"net_id"`
}

type electedMember struct {
	Account string `cbor:"account"`
	Key     string `cbor:"key"`
}

type electionData struct {
	Members []electedMember `cbor:"members"`
	Weights []uint64        `cbor:"weights"`
}

// ValidateElection checks an election result against the committee of the
// window it was proposed in and resolves the elected committee.
func (v *Validator) ValidateElection(ctx context.Context, op *classifier.Operation) (*Election, error) {
	e, err := payloadOf[classifier.Election](op, classifier.ElectionResult)
	if err != nil {
		return nil, err
	}
	if e.NetID != v.params.NetworkID {
		return nil, reject(fmt.Errorf("%w: %q", ErrWrongNetwork, e.NetID))
	}
	height := op.L1Height()

	// An election activated in the same L1 block also counts.
	last, err := v.store.LastElectionAt(ctx, height)
	if err != nil {
		return nil, err
	}
	if last != nil && e.Epoch <= last.Epoch {
		return nil, reject(fmt.Errorf("%w: %d after %d", ErrStaleEpoch, e.Epoch, last.Epoch))
	}
	prev, err := v.store.LastElectionBefore(ctx, height)
	if err != nil {
		return nil, err
	}

	election := &Election{
		Data:     e.Data,
		Proposer: op.Actor,
	}
	if e.Epoch != 0 {
		if err := v.verifyElectionVote(ctx, op, e, prev, election); err != nil {
			return nil, err
		}
	}

	members, err := v.electedMembers(ctx, e.Data, op.Version)
	if err != nil {
		return nil, err
	}
	election.Committee = &committee.Committee{
		Epoch:   e.Epoch,
		Height:  height,
		Members: members,
	}
	v.log.Info("accepted election",
		log.Uint64("epoch", e.Epoch),
		log.Uint64("height", height),
		log.Int("members", len(members)),
		log.Uint64("votedWeight", election.VotedWeight),
		log.Uint64("quorum", election.Quorum),
	)
	return election, nil
}

// verifyElectionVote checks the vote of the committee at the start of the
// window containing the election.
func (v *Validator) verifyElectionVote(
	ctx context.Context,
	op *classifier.Operation,
	e *classifier.Election,
	prev *committee.Committee,
	election *Election,
) error {
	height := op.L1Height()
	c, err := v.members(ctx, v.params.WindowStart(height))
	if err != nil {
		return err
	}
	msg := electionMessage{
		Data:  dagcbor.NewLink(e.Data),
		Epoch: e.Epoch,
		NetID: e.NetID,
	}
	result, err := v.verifyValue(msg, e.Signature, c, op.Version)
	if err != nil {
		return err
	}

	since := c.Height
	if prev != nil {
		since = prev.Height
	}
	var elapsed uint64
	if height > since {
		elapsed = height - since
	}
	quorum := v.params.ElectionQuorum(e.Epoch, result.TotalWeight, elapsed)
	if err := circuit.VerifyCount(result.VotedWeight, quorum); err != nil {
		return reject(fmt.Errorf("%w: %w", ErrQuorumNotReached, err))
	}

	election.VotedWeight = result.VotedWeight
	election.TotalWeight = result.TotalWeight
	election.Quorum = quorum
	return nil
}

// electedMembers fetches and resolves the elected member list. Elections
// from the weighted dialect on must weigh every member.
func (v *Validator) electedMembers(ctx context.Context, id cid.Cid, version protocol.Version) ([]committee.Member, error) {
	raw, err := v.content.Get(ctx, id)
	if err != nil {
		return nil, reject(fmt.Errorf("%w: %w", ErrContentUnavailable, err))
	}
	var data electionData
	if err := dagcbor.Decode(raw, &data); err != nil {
		return nil, reject(fmt.Errorf("%w: %w", ErrInvalidMembers, err))
	}
	if len(data.Members) == 0 {
		return nil, reject(fmt.Errorf("%w: empty member list", ErrInvalidMembers))
	}
	weighted := version >= protocol.Weighted
	if weighted && len(data.Weights) != len(data.Members) {
		return nil, reject(fmt.Errorf("%w: %d weights for %d members", ErrInvalidMembers, len(data.Weights), len(data.Members)))
	}

	var (
		members = make([]committee.Member, len(data.Members))
		total   uint64
	)
	for i, m := range data.Members {
		exists, err := v.store.AccountExists(ctx, m.Account)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, reject(fmt.Errorf("%w: unknown account %q", ErrInvalidMembers, m.Account))
		}
		key, err := blsdid.Parse(m.Key)
		if err != nil {
			return nil, reject(fmt.Errorf("%w: member %d: %w", ErrInvalidMembers, i, err))
		}
		weight := uint64(1)
		if weighted {
			weight = data.Weights[i]
		}
		if weight == 0 {
			return nil, reject(fmt.Errorf("%w: member %d has no weight", ErrInvalidMembers, i))
		}
		total, err = safemath.Add(total, weight)
		if err != nil {
			return nil, reject(fmt.Errorf("%w: %w", ErrInvalidMembers, err))
		}
		members[i] = committee.Member{
			Account: m.Account,
			DID:     m.Key,
			Key:     key,
			Weight:  weight,
		}
	}
	return members, nil
}
