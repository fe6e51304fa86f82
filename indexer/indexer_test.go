// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package indexer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/crypto/bls/signer/localsigner"
	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/l2index/classifier"
	"github.com/luxfi/l2index/codec/dagcbor"
	"github.com/luxfi/l2index/committee"
	"github.com/luxfi/l2index/content"
	"github.com/luxfi/l2index/crypto/blsdid"
	"github.com/luxfi/l2index/crypto/jws"
	"github.com/luxfi/l2index/metrics"
	"github.com/luxfi/l2index/protocol"
	"github.com/luxfi/l2index/state"
	"github.com/luxfi/l2index/validators"
)

const (
	testNetID    = "testnet"
	testMultisig = "vsc.gateway"
	testTrxID    = "0f2b4e3e5c4a1d7b9f8e6a5c3b2d1e0f9a8b7c6d"
	hiveNAI      = "@@000000021"
)

var errTest = errors.New("non-nil error")

func testParams() *protocol.Params {
	p := protocol.Testnet
	p.NetworkID = testNetID
	p.StartHeight = 100
	p.BLSHeight = 100
	p.WeightedHeight = 1_000_000
	p.ContractProofHeight = 1_000_000
	p.MultisigAccount = testMultisig
	p.NextMultisigAccount = ""
	p.RoundLength = 10
	p.TotalRounds = 3
	return &p
}

type env struct {
	db      database.Database
	l1      *state.L1
	state   *state.State
	indexer *Indexer
}

func genesisCommittee(t *testing.T) *committee.Committee {
	t.Helper()

	c := &committee.Committee{}
	for _, account := range []string{"alice", "bob", "carol"} {
		sk, err := localsigner.New()
		require.NoError(t, err)
		pk := sk.PublicKey()
		c.Members = append(c.Members, committee.Member{
			Account: account,
			DID:     blsdid.Format(pk),
			Key:     pk,
			Weight:  1,
		})
	}
	return c
}

// newEnv returns an indexer over a fresh database holding ops. wrap may
// intercept the effect writes of the indexer.
func newEnv(
	t *testing.T,
	genesis *committee.Committee,
	ops []classifier.RawOperation,
	wrap func(*state.State) Effects,
) *env {
	t.Helper()
	return newEnvFrom(t, genesis, ops, wrap, 0)
}

// newEnvFrom is newEnv with L1 block ids known from firstBlock on.
func newEnvFrom(
	t *testing.T,
	genesis *committee.Committee,
	ops []classifier.RawOperation,
	wrap func(*state.State) Effects,
	firstBlock uint64,
) *env {
	t.Helper()
	require := require.New(t)

	db := memdb.New()
	l1 := state.NewL1(db)
	blockIDs := make(map[uint64]string)
	for h := firstBlock; h <= 200; h++ {
		blockIDs[h] = fmt.Sprintf("%040x", h)
	}
	require.NoError(l1.Import(&state.Import{
		Height:     200,
		Operations: ops,
		BlockIDs:   blockIDs,
		Accounts:   []string{"alice", "bob", "mallory", testMultisig},
	}))

	logger := log.NewNoOpLogger()
	s, err := state.New(logger, db, l1, genesis)
	require.NoError(err)

	params := testParams()
	registry := metric.NewRegistry()
	provider, err := committee.NewProvider(logger, s, params, registry)
	require.NoError(err)
	m, err := metrics.New(registry)
	require.NoError(err)

	var effects Effects = s
	if wrap != nil {
		effects = wrap(s)
	}
	return &env{
		db:    db,
		l1:    l1,
		state: s,
		indexer: New(
			logger,
			Config{
				BatchSize:    100,
				PollInterval: time.Millisecond,
			},
			l1,
			classifier.New(logger, params, s, jws.Verifier{}),
			validators.New(logger, params, provider, content.NewMemory(), s, 1),
			effects,
			m,
		),
	}
}

func opBody(t *testing.T, opType string, value any) []byte {
	t.Helper()

	b, err := json.Marshal(map[string]any{
		"type":  opType,
		"value": value,
	})
	require.NoError(t, err)
	return b
}

func transferBody(t *testing.T, from, to, amount, memo string) []byte {
	return opBody(t, "transfer_operation", map[string]any{
		"from": from,
		"to":   to,
		"amount": map[string]any{
			"amount":    amount,
			"precision": 3,
			"nai":       hiveNAI,
		},
		"memo": memo,
	})
}

func proposalBody(t *testing.T, proposer string) []byte {
	t.Helper()

	block, err := dagcbor.Sum(map[string]any{"txs": []any{}})
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]any{
		"net_id":    testNetID,
		"replay_id": 2,
		"signed_block": map[string]any{
			"block": block.String(),
			"headers": map[string]any{
				"br": []uint64{100, 110},
			},
			"merkle_root": base64.RawURLEncoding.EncodeToString(make([]byte, 32)),
			"signature": map[string]any{
				"sig": base64.RawURLEncoding.EncodeToString(make([]byte, 96)),
				"bv":  "Bw",
			},
		},
	})
	require.NoError(t, err)
	return opBody(t, "custom_json_operation", map[string]any{
		"id":                     "vsc.propose_block",
		"json":                   string(payload),
		"required_auths":         []string{proposer},
		"required_posting_auths": []string{},
	})
}

// testOperations are a deposit, a withdraw request, an unrelated transfer and
// a proposal from an account outside the committee.
func testOperations(t *testing.T) []classifier.RawOperation {
	bodies := [][]byte{
		transferBody(t, "alice", testMultisig, "1000", ""),
		transferBody(t, "alice", testMultisig, "1", `{"action":"withdraw","amount":"2.5"}`),
		transferBody(t, "alice", "bob", "1", ""),
		proposalBody(t, "mallory"),
	}
	ops := make([]classifier.RawOperation, len(bodies))
	for i, body := range bodies {
		ops[i] = classifier.RawOperation{
			ID:        uint64(i + 1),
			L1Height:  uint64(111 + i),
			OpIndex:   0,
			TrxID:     fmt.Sprintf("%039x%d", 0, i),
			Timestamp: time.Unix(1_700_000_000, 0).UTC(),
			Body:      body,
		}
	}
	return ops
}

func snapshot(t *testing.T, db database.Database) map[string][]byte {
	t.Helper()

	it := db.NewIterator()
	defer it.Release()

	kvs := make(map[string][]byte)
	for it.Next() {
		kvs[string(it.Key())] = append([]byte(nil), it.Value()...)
	}
	require.NoError(t, it.Error())
	return kvs
}

func TestStep(t *testing.T) {
	require := require.New(t)

	e := newEnv(t, genesisCommittee(t), testOperations(t), nil)
	processed, err := e.indexer.Step(context.Background())
	require.NoError(err)
	require.Equal(4, processed)

	cursor, err := e.state.Cursor()
	require.NoError(err)
	require.Equal(uint64(4), cursor)

	tests := map[uint64]struct {
		valid bool
		kind  classifier.Kind
	}{
		1: {valid: true, kind: classifier.Deposit},
		2: {valid: true, kind: classifier.WithdrawRequest},
		3: {valid: false, kind: classifier.Unknown},
		4: {valid: false, kind: classifier.ProposeBlock},
	}
	for id, test := range tests {
		r, err := e.state.GetOutcome(id)
		require.NoError(err)
		require.Equal(test.valid, r.Valid, "operation %d", id)
		require.Equal(uint8(test.kind), r.Kind, "operation %d", id)
	}

	deposit, err := e.state.GetTransfer(1)
	require.NoError(err)
	require.Equal(uint64(1000), deposit.Amount)
	require.Equal("alice", deposit.Owner)

	id, ok, err := e.state.WithdrawRequest(context.Background(), testOperations(t)[1].TrxID, 0)
	require.NoError(err)
	require.True(ok)
	require.Equal(uint64(2), id)

	// The log is exhausted.
	processed, err = e.indexer.Step(context.Background())
	require.NoError(err)
	require.Zero(processed)
}

type failingEffects struct {
	*state.State
	failAt uint64
}

func (f *failingEffects) PutOutcome(op *classifier.Operation) error {
	if op.Raw.ID == f.failAt {
		return errTest
	}
	return f.State.PutOutcome(op)
}

func TestReplayAfterFailure(t *testing.T) {
	require := require.New(t)

	genesis := genesisCommittee(t)
	ops := testOperations(t)

	expected := newEnv(t, genesis, ops, nil)
	_, err := expected.indexer.Step(context.Background())
	require.NoError(err)

	var failing *failingEffects
	e := newEnv(t, genesis, ops, func(s *state.State) Effects {
		failing = &failingEffects{State: s, failAt: 3}
		return failing
	})
	before := snapshot(t, e.db)

	_, err = e.indexer.Step(context.Background())
	require.ErrorIs(err, errTest)

	// Nothing of the failed batch was written.
	require.Equal(before, snapshot(t, e.db))
	cursor, err := e.state.Cursor()
	require.NoError(err)
	require.Zero(cursor)

	failing.failAt = 0
	processed, err := e.indexer.Step(context.Background())
	require.NoError(err)
	require.Equal(len(ops), processed)
	require.Equal(snapshot(t, expected.db), snapshot(t, e.db))
}

func TestStepWithoutWindowSeed(t *testing.T) {
	require := require.New(t)

	// Block ids are known from 105 on, inside the window starting at 90.
	ops := []classifier.RawOperation{{
		ID:        1,
		L1Height:  105,
		TrxID:     testTrxID,
		Timestamp: time.Unix(1_700_000_000, 0).UTC(),
		Body:      proposalBody(t, "mallory"),
	}}
	e := newEnvFrom(t, genesisCommittee(t), ops, nil, 105)

	processed, err := e.indexer.Step(context.Background())
	require.NoError(err)
	require.Equal(1, processed)

	cursor, err := e.state.Cursor()
	require.NoError(err)
	require.Equal(uint64(1), cursor)

	r, err := e.state.GetOutcome(1)
	require.NoError(err)
	require.False(r.Valid)
	require.Equal(uint8(classifier.ProposeBlock), r.Kind)
}

// sparseLog reports id ranges holding no operations.
type sparseLog struct {
	*state.L1
}

func (*sparseLog) Operations(context.Context, uint64, uint64) ([]classifier.RawOperation, error) {
	return nil, nil
}

func TestStepEmptyRange(t *testing.T) {
	require := require.New(t)

	e := newEnv(t, genesisCommittee(t), testOperations(t), nil)
	e.indexer.l1 = &sparseLog{L1: e.l1}

	processed, err := e.indexer.Step(context.Background())
	require.NoError(err)
	require.Zero(processed)

	cursor, err := e.state.Cursor()
	require.NoError(err)
	require.Equal(uint64(4), cursor)
}

func TestStepIgnoresCancellation(t *testing.T) {
	require := require.New(t)

	e := newEnv(t, genesisCommittee(t), testOperations(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	processed, err := e.indexer.Step(ctx)
	require.NoError(err)
	require.Equal(4, processed)
}

func TestRunCanceled(t *testing.T) {
	require := require.New(t)

	e := newEnv(t, genesisCommittee(t), testOperations(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(e.indexer.Run(ctx))

	cursor, err := e.state.Cursor()
	require.NoError(err)
	require.Zero(cursor)
}

func TestRunStoreFailure(t *testing.T) {
	e := newEnv(t, genesisCommittee(t), testOperations(t), func(s *state.State) Effects {
		return &failingEffects{State: s, failAt: 1}
	})
	require.ErrorIs(t, e.indexer.Run(context.Background()), errTest)
}
