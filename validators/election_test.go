// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package validators

import (
	"context"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/crypto/bls/signer/localsigner"

	"github.com/luxfi/l2index/circuit"
	"github.com/luxfi/l2index/classifier"
	"github.com/luxfi/l2index/codec/dagcbor"
	"github.com/luxfi/l2index/committee"
	"github.com/luxfi/l2index/crypto/blsdid"
	"github.com/luxfi/l2index/protocol"
)

const electionHeight = 2015

func newElectedKey(t *testing.T) string {
	t.Helper()

	sk, err := localsigner.New()
	require.NoError(t, err)
	return blsdid.Format(sk.PublicKey())
}

func (h *harness) putMembers(t *testing.T, weights []uint64, accounts ...string) cid.Cid {
	t.Helper()

	members := make([]any, len(accounts))
	for i, account := range accounts {
		members[i] = map[string]any{
			"account": account,
			"key":     newElectedKey(t),
		}
	}
	data := map[string]any{"members": members}
	if weights != nil {
		data["weights"] = weights
	}
	return h.put(t, data)
}

func (h *harness) election(t *testing.T, data cid.Cid, epoch uint64, positions ...int) *classifier.Election {
	t.Helper()

	e := &classifier.Election{
		Data:  data,
		Epoch: epoch,
		NetID: testNetID,
	}
	e.Signature = h.signValue(t, electionMessage{
		Data:  dagcbor.NewLink(data),
		Epoch: epoch,
		NetID: testNetID,
	}, positions...)
	return e
}

func TestValidateElection(t *testing.T) {
	require := require.New(t)

	h := newHarness(t)
	data := h.putMembers(t, nil, "dave", "erin")
	op := testOperation(classifier.ElectionResult, "alice", electionHeight, h.election(t, data, 1, 0, 1))

	election, err := h.validator.ValidateElection(context.Background(), op)
	require.NoError(err)
	require.Equal(data, election.Data)
	require.Equal(uint64(2), election.VotedWeight)
	require.Equal(uint64(3), election.TotalWeight)
	require.Equal(uint64(2), election.Quorum)

	c := election.Committee
	require.Equal(uint64(1), c.Epoch)
	require.Equal(uint64(electionHeight), c.Height)
	require.Equal(2, c.Len())
	require.Equal("dave", c.Members[0].Account)
	require.Equal("erin", c.Members[1].Account)
	for _, m := range c.Members {
		require.Equal(uint64(1), m.Weight)
		require.NotNil(m.Key)
	}
}

func TestValidateElectionGenesis(t *testing.T) {
	require := require.New(t)

	h := newHarness(t)
	e := &classifier.Election{
		Data:  h.putMembers(t, nil, "dave"),
		NetID: testNetID,
	}
	op := testOperation(classifier.ElectionResult, "alice", electionHeight, e)

	election, err := h.validator.ValidateElection(context.Background(), op)
	require.NoError(err)
	require.Zero(election.Committee.Epoch)
	require.Zero(election.VotedWeight)

	// Genesis epochs still need a valid member list.
	e.Data = h.putMembers(t, nil, "mallory")
	_, err = h.validator.ValidateElection(context.Background(), op)
	require.ErrorIs(err, ErrInvalidMembers)
}

func TestValidateElectionRejections(t *testing.T) {
	tests := map[string]struct {
		setup       func(*testing.T, *harness) *classifier.Operation
		expectedErr error
	}{
		"quorum not reached": {
			setup: func(t *testing.T, h *harness) *classifier.Operation {
				e := h.election(t, h.putMembers(t, nil, "dave"), 1, 2)
				return testOperation(classifier.ElectionResult, "alice", electionHeight, e)
			},
			expectedErr: ErrQuorumNotReached,
		},
		"invalid signature": {
			setup: func(t *testing.T, h *harness) *classifier.Operation {
				e := h.election(t, h.putMembers(t, nil, "dave"), 1, 0, 1, 2)
				e.Epoch = 2
				return testOperation(classifier.ElectionResult, "alice", electionHeight, e)
			},
			expectedErr: ErrInvalidSignature,
		},
		"wrong network": {
			setup: func(t *testing.T, h *harness) *classifier.Operation {
				e := h.election(t, h.putMembers(t, nil, "dave"), 1, 0, 1, 2)
				e.NetID = "mainnet"
				return testOperation(classifier.ElectionResult, "alice", electionHeight, e)
			},
			expectedErr: ErrWrongNetwork,
		},
		"stale epoch": {
			setup: func(t *testing.T, h *harness) *classifier.Operation {
				h.store.elections = append(h.store.elections, &committee.Committee{
					Epoch:  1,
					Height: electionHeight - 1,
				})
				e := h.election(t, h.putMembers(t, nil, "dave"), 1, 0, 1, 2)
				return testOperation(classifier.ElectionResult, "alice", electionHeight, e)
			},
			expectedErr: ErrStaleEpoch,
		},
		"epoch elected in the same block": {
			setup: func(t *testing.T, h *harness) *classifier.Operation {
				h.store.elections = append(h.store.elections, &committee.Committee{
					Epoch:  1,
					Height: electionHeight,
				})
				e := h.election(t, h.putMembers(t, nil, "dave"), 1, 0, 1, 2)
				return testOperation(classifier.ElectionResult, "alice", electionHeight, e)
			},
			expectedErr: ErrStaleEpoch,
		},
		"genesis epoch after an election": {
			setup: func(t *testing.T, h *harness) *classifier.Operation {
				h.store.elections = append(h.store.elections, &committee.Committee{
					Epoch:  1,
					Height: 1,
				})
				e := &classifier.Election{
					Data:  h.putMembers(t, nil, "dave"),
					NetID: testNetID,
				}
				return testOperation(classifier.ElectionResult, "alice", electionHeight, e)
			},
			expectedErr: ErrStaleEpoch,
		},
		"members unavailable": {
			setup: func(t *testing.T, h *harness) *classifier.Operation {
				data, err := dagcbor.Sum(map[string]any{"members": []any{}})
				require.NoError(t, err)
				e := h.election(t, data, 1, 0, 1, 2)
				return testOperation(classifier.ElectionResult, "alice", electionHeight, e)
			},
			expectedErr: ErrContentUnavailable,
		},
		"empty members": {
			setup: func(t *testing.T, h *harness) *classifier.Operation {
				e := h.election(t, h.putMembers(t, nil), 1, 0, 1, 2)
				return testOperation(classifier.ElectionResult, "alice", electionHeight, e)
			},
			expectedErr: ErrInvalidMembers,
		},
		"unknown member account": {
			setup: func(t *testing.T, h *harness) *classifier.Operation {
				e := h.election(t, h.putMembers(t, nil, "dave", "mallory"), 1, 0, 1, 2)
				return testOperation(classifier.ElectionResult, "alice", electionHeight, e)
			},
			expectedErr: ErrInvalidMembers,
		},
		"malformed member key": {
			setup: func(t *testing.T, h *harness) *classifier.Operation {
				data := h.put(t, map[string]any{"members": []any{
					map[string]any{"account": "dave", "key": "did:key:zbad"},
				}})
				e := h.election(t, data, 1, 0, 1, 2)
				return testOperation(classifier.ElectionResult, "alice", electionHeight, e)
			},
			expectedErr: ErrInvalidMembers,
		},
		"weighted without weights": {
			setup: func(t *testing.T, h *harness) *classifier.Operation {
				e := h.election(t, h.putMembers(t, nil, "dave"), 1, 0, 1, 2)
				op := testOperation(classifier.ElectionResult, "alice", electionHeight, e)
				op.Version = protocol.Weighted
				return op
			},
			expectedErr: ErrInvalidMembers,
		},
		"weighted with zero weight": {
			setup: func(t *testing.T, h *harness) *classifier.Operation {
				e := h.election(t, h.putMembers(t, []uint64{1, 0}, "dave", "erin"), 1, 0, 1, 2)
				op := testOperation(classifier.ElectionResult, "alice", electionHeight, e)
				op.Version = protocol.Weighted
				return op
			},
			expectedErr: ErrInvalidMembers,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			h := newHarness(t)
			_, err := h.validator.ValidateElection(context.Background(), test.setup(t, h))
			require.ErrorIs(err, test.expectedErr)
			require.True(IsRejected(err))
		})
	}
}

func TestValidateElectionWeighted(t *testing.T) {
	require := require.New(t)

	h := newHarness(t, 4, 3, 3)
	e := h.election(t, h.putMembers(t, []uint64{2, 5}, "dave", "erin"), 1, 0, 1)
	op := testOperation(classifier.ElectionResult, "alice", electionHeight, e)
	op.Version = protocol.Weighted

	election, err := h.validator.ValidateElection(context.Background(), op)
	require.NoError(err)
	require.Equal(uint64(7), election.VotedWeight)
	require.Equal(uint64(10), election.TotalWeight)
	require.Equal([]uint64{2, 5}, election.Committee.Weights())
}

func TestValidateElectionQuorumShrinks(t *testing.T) {
	tests := map[string]struct {
		prevHeight  uint64
		expected    uint64
		expectedErr error
	}{
		"at minimum elapsed": {
			prevHeight:  electionHeight - 100,
			expected:    7,
			expectedErr: ErrQuorumNotReached,
		},
		"at maximum elapsed": {
			prevHeight: electionHeight - 1100,
			expected:   6,
		},
		"beyond maximum elapsed": {
			prevHeight: 1,
			expected:   6,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			h := newHarness(t, 4, 3, 3)
			h.store.elections = append(h.store.elections, &committee.Committee{
				Epoch:  1,
				Height: test.prevHeight,
			})
			require.Equal(test.expected, h.params.ElectionQuorum(2, 10, electionHeight-test.prevHeight))

			// bob and carol weigh 6 of 10.
			e := h.election(t, h.putMembers(t, []uint64{1}, "dave"), 2, 1, 2)
			op := testOperation(classifier.ElectionResult, "alice", electionHeight, e)
			op.Version = protocol.Weighted

			election, err := h.validator.ValidateElection(context.Background(), op)
			require.ErrorIs(err, test.expectedErr)
			if test.expectedErr != nil {
				require.ErrorIs(err, circuit.ErrInsufficientWeight)
				return
			}
			require.Equal(test.expected, election.Quorum)
		})
	}
}

func TestValidateElectionStoreFailure(t *testing.T) {
	require := require.New(t)

	h := newHarness(t)
	h.store.err = errTest
	op := testOperation(classifier.ElectionResult, "alice", electionHeight, h.election(t, h.putMembers(t, nil, "dave"), 1, 0, 1))
	_, err := h.validator.ValidateElection(context.Background(), op)
	require.ErrorIs(err, errTest)
	require.False(IsRejected(err))
}
